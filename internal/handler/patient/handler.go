package patient

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dentalclinic-api/internal/handler"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

var messages = handler.MessagesFor("un paciente")

type Service interface {
	Create(ctx context.Context, req model.PatientRequest) (*model.Patient, error)
	Update(ctx context.Context, id int64, req model.PatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.Patient, error)
	List(ctx context.Context, params listquery.Params) (listquery.Page[model.Patient], error)
}

type Handler struct {
	service Service
	loc     *time.Location
}

func NewHandler(service Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc}
}

// RegisterRoutes mounts reads on r and mutations behind write.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)

		w := patients.Group("", write...)
		w.POST("", h.CreatePatient)
		w.PUT("/:id", h.UpdatePatient)
		w.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.PatientRequest
	if !handler.Bind(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Create)
		return
	}
	handler.RespondAction(c, http.StatusCreated, p.ID, nil, messages.Create)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Update)
		return
	}

	var req model.PatientRequest
	if !handler.Bind(c, &req) {
		return
	}

	_, err = h.service.Update(c.Request.Context(), id, req)
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Update)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err == nil {
		err = h.service.Delete(c.Request.Context(), id)
	}
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Delete)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Respond(c, nil, err)
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	handler.Respond(c, p, err)
}

func (h *Handler) ListPatients(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), handler.ListParams(c, h.loc))
	handler.RespondPage(c, page, err)
}
