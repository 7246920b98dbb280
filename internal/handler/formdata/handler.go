package formdata

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dentalclinic-api/internal/handler"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
)

type Service interface {
	RelatedData(ctx context.Context, table string, mode model.FormMode, id int64) (interface{}, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/forms/:table", h.RelatedData)
}

// RelatedData serves GET /forms/:table?type=create|update|view|delete&id=.
func (h *Handler) RelatedData(c *gin.Context) {
	mode := model.FormMode(strings.ToLower(strings.TrimSpace(c.DefaultQuery("type", string(model.FormCreate)))))

	data, err := h.service.RelatedData(c.Request.Context(), c.Param("table"), mode, handler.QueryID(c, "id"))
	handler.Respond(c, data, err)
}
