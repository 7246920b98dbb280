package ticket

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dentalclinic-api/internal/handler"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

var messages = handler.MessagesFor("una boleta")

const paymentFailed = "Error al registrar el pago"

type Service interface {
	Create(ctx context.Context, req model.CreateTicketRequest) (*model.Ticket, error)
	Update(ctx context.Context, id int64, req model.UpdateTicketRequest) (*model.Ticket, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.Ticket, error)
	List(ctx context.Context, params listquery.Params, ticketID int64) (listquery.Page[model.Ticket], error)
	RecordPayment(ctx context.Context, ticketID int64, req model.PaymentRequest) (*model.Payment, error)
}

type Handler struct {
	service Service
	loc     *time.Location
}

func NewHandler(service Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc) {
	tickets := r.Group("/tickets")
	{
		tickets.GET("", h.ListTickets)
		tickets.GET("/:id", h.GetTicket)

		w := tickets.Group("", write...)
		w.POST("", h.CreateTicket)
		w.PUT("/:id", h.UpdateTicket)
		w.DELETE("/:id", h.DeleteTicket)
		w.POST("/:id/payments", h.RecordPayment)
	}
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var req model.CreateTicketRequest
	if !handler.Bind(c, &req) {
		return
	}

	t, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Create)
		return
	}
	handler.RespondAction(c, http.StatusCreated, t.ID, nil, messages.Create)
}

func (h *Handler) UpdateTicket(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondAction(c, 0, 0, err, messages.Update)
		return
	}

	var req model.UpdateTicketRequest
	if !handler.Bind(c, &req) {
		return
	}

	_, err = h.service.Update(c.Request.Context(), id, req)
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Update)
}

func (h *Handler) DeleteTicket(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err == nil {
		err = h.service.Delete(c.Request.Context(), id)
	}
	handler.RespondAction(c, http.StatusOK, 0, err, messages.Delete)
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondAction(c, 0, 0, err, paymentFailed)
		return
	}

	var req model.PaymentRequest
	if !handler.Bind(c, &req) {
		return
	}

	p, err := h.service.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		handler.RespondAction(c, 0, 0, err, paymentFailed)
		return
	}
	handler.RespondAction(c, http.StatusCreated, p.ID, nil, paymentFailed)
}

func (h *Handler) GetTicket(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Respond(c, nil, err)
		return
	}

	t, err := h.service.Get(c.Request.Context(), id)
	handler.Respond(c, t, err)
}

// ListTickets honours id_ticket in addition to the common list parameters.
func (h *Handler) ListTickets(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), handler.ListParams(c, h.loc), handler.QueryID(c, "id_ticket"))
	handler.RespondPage(c, page, err)
}
