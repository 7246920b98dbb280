package catalog

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dentalclinic-api/internal/handler"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

var messages = handler.MessagesFor("un servicio")

type Service interface {
	Create(ctx context.Context, req model.ServiceRequest) (*model.Service, error)
	Update(ctx context.Context, id int64, req model.ServiceRequest) (*model.Service, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.Service, error)
	List(ctx context.Context, params listquery.Params) (listquery.Page[model.Service], error)
}

type Handler struct {
	service Service
	loc     *time.Location
}

func NewHandler(service Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc) {
	services := r.Group("/services")
	{
		services.GET("", h.ListServices)
		services.GET("/:id", h.GetService)

		w := services.Group("", write...)
		w.POST("", h.CreateService)
		w.PUT("/:id", h.UpdateService)
		w.DELETE("/:id", h.DeleteService)
	}
}

func (h *Handler) CreateService(c *gin.Context) {
	var req model.ServiceRequest
	if !handler.Bind(c, &req) {
		return
	}

	s, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Create)
		return
	}
	handler.RespondAction(c, http.StatusCreated, s.ID, nil, messages.Create)
}

func (h *Handler) UpdateService(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Update)
		return
	}

	var req model.ServiceRequest
	if !handler.Bind(c, &req) {
		return
	}

	_, err = h.service.Update(c.Request.Context(), id, req)
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Update)
}

func (h *Handler) DeleteService(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err == nil {
		err = h.service.Delete(c.Request.Context(), id)
	}
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Delete)
}

func (h *Handler) GetService(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Respond(c, nil, err)
		return
	}

	s, err := h.service.Get(c.Request.Context(), id)
	handler.Respond(c, s, err)
}

func (h *Handler) ListServices(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), handler.ListParams(c, h.loc))
	handler.RespondPage(c, page, err)
}
