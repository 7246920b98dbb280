package employee

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dentalclinic-api/internal/handler"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

var messages = handler.MessagesFor("un empleado")

const specialtyFailed = "Error al actualizar la especialidad"

type Service interface {
	Create(ctx context.Context, req model.EmployeeRequest) (*model.Employee, error)
	Update(ctx context.Context, id int64, req model.EmployeeRequest) (*model.Employee, error)
	UpdateSpecialty(ctx context.Context, id int64, specialty string) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.Employee, error)
	List(ctx context.Context, params listquery.Params) (listquery.Page[model.Employee], error)
	Doctors(ctx context.Context) ([]model.Employee, error)
}

type Handler struct {
	service Service
	loc     *time.Location
}

func NewHandler(service Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc}
}

// RegisterRoutes mounts reads on r. Employee mutations go behind admin and
// the specialty action behind doctor.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, admin, doctor gin.HandlerFunc) {
	employees := r.Group("/employees")
	{
		employees.GET("", h.ListEmployees)
		employees.GET("/doctors", h.ListDoctors)
		employees.GET("/:id", h.GetEmployee)

		employees.POST("", admin, h.CreateEmployee)
		employees.PUT("/:id", admin, h.UpdateEmployee)
		employees.DELETE("/:id", admin, h.DeleteEmployee)
		employees.PATCH("/:id/specialty", doctor, h.UpdateSpecialty)
	}
}

func (h *Handler) CreateEmployee(c *gin.Context) {
	var req model.EmployeeRequest
	if !handler.Bind(c, &req) {
		return
	}

	e, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Create)
		return
	}
	handler.RespondAction(c, http.StatusCreated, e.ID, nil, messages.Create)
}

func (h *Handler) UpdateEmployee(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Update)
		return
	}

	var req model.EmployeeRequest
	if !handler.Bind(c, &req) {
		return
	}

	_, err = h.service.Update(c.Request.Context(), id, req)
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Update)
}

func (h *Handler) UpdateSpecialty(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondAction(c, 0, 0, err, specialtyFailed)
		return
	}

	var req model.SpecialtyRequest
	if !handler.Bind(c, &req) {
		return
	}

	err = h.service.UpdateSpecialty(c.Request.Context(), id, req.Specialty)
	handler.RespondAction(c, http.StatusOK, 0, err, specialtyFailed)
}

func (h *Handler) DeleteEmployee(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err == nil {
		err = h.service.Delete(c.Request.Context(), id)
	}
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Delete)
}

func (h *Handler) GetEmployee(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Respond(c, nil, err)
		return
	}

	e, err := h.service.Get(c.Request.Context(), id)
	handler.Respond(c, e, err)
}

func (h *Handler) ListEmployees(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), handler.ListParams(c, h.loc))
	handler.RespondPage(c, page, err)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.Doctors(c.Request.Context())
	if doctors == nil {
		doctors = []model.Employee{}
	}
	handler.Respond(c, doctors, err)
}
