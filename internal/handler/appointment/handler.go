package appointment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dentalclinic-api/internal/handler"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

var messages = handler.MessagesFor("una cita")

type Service interface {
	Create(ctx context.Context, req model.AppointmentRequest) (*model.Appointment, error)
	Update(ctx context.Context, id int64, req model.AppointmentRequest) (*model.Appointment, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.Appointment, error)
	List(ctx context.Context, params listquery.Params, filter model.AppointmentFilter) (listquery.Page[model.Appointment], error)
	Summary(ctx context.Context) (*model.AppointmentSummary, error)
}

type Handler struct {
	service Service
	loc     *time.Location
}

func NewHandler(service Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/summary", h.Summary)
		appointments.GET("/:id", h.GetAppointment)

		w := appointments.Group("", write...)
		w.POST("", h.CreateAppointment)
		w.PUT("/:id", h.UpdateAppointment)
		w.DELETE("/:id", h.DeleteAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.AppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}

	a, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Create)
		return
	}
	handler.RespondAction(c, http.StatusCreated, a.ID, nil, messages.Create)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Update)
		return
	}

	var req model.AppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}

	_, err = h.service.Update(c.Request.Context(), id, req)
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Update)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err == nil {
		err = h.service.Delete(c.Request.Context(), id)
	}
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Delete)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Respond(c, nil, err)
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	handler.Respond(c, a, err)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filter := model.AppointmentFilter{
		PatientID:  handler.QueryID(c, "patient_id"),
		EmployeeID: handler.QueryID(c, "employee_id"),
		Status:     model.AppointmentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
	}

	page, err := h.service.List(c.Request.Context(), handler.ListParams(c, h.loc), filter)
	handler.RespondPage(c, page, err)
}

func (h *Handler) Summary(c *gin.Context) {
	s, err := h.service.Summary(c.Request.Context())
	handler.Respond(c, s, err)
}
