// Package handler holds the helpers shared by every HTTP handler: request
// binding, id parsing, list parameters and the action result envelope.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/httputil"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
	"github.com/jwalitptl/dentalclinic-api/pkg/validator"
)

// InvalidInput is the action error for payloads rejected before any write.
const InvalidInput = "Datos inválidos"

// Messages are the localized action errors of one entity.
type Messages struct {
	Create string
	Update string
	Delete string
}

// MessagesFor builds the messages for a noun with its article, e.g.
// "un paciente".
func MessagesFor(noun string) Messages {
	return Messages{
		Create: "Error al crear " + noun,
		Update: "Error al actualizar " + noun,
		Delete: "Error al eliminar " + noun,
	}
}

type actionFailure struct {
	model.ActionResult
	Fields []validator.FieldError `json:"fields,omitempty"`
}

// Bind decodes the JSON body into obj. On failure it writes a 400 action
// result listing the offending fields and returns false.
func Bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, actionFailure{
			ActionResult: model.Failed(InvalidInput),
			Fields:       validator.Errors(err),
		})
		return false
	}
	return true
}

// ParseID reads a positive integer path parameter.
func ParseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid "+name, err)
	}
	return id, nil
}

// QueryID reads an optional positive integer query parameter; anything else
// yields zero.
func QueryID(c *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// ListParams parses the list query string in the clinic timezone.
func ListParams(c *gin.Context, loc *time.Location) listquery.Params {
	return listquery.Parse(c.Request.URL.Query(), loc)
}

// RespondAction writes the action result of a mutation. Errors are logged
// with their cause and surfaced only as msg.
func RespondAction(c *gin.Context, status int, id int64, err error, msg string) {
	if err != nil {
		log.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg(msg)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), model.Failed(msg))
		return
	}

	if id > 0 {
		c.JSON(status, model.OKWithID(id))
		return
	}
	c.JSON(status, model.OK())
}

// RespondPage writes one page of a list.
func RespondPage[T any](c *gin.Context, page listquery.Page[T], err error) {
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []T{}
	}
	httputil.RespondWithPagination(c, items, page.Page, page.PageSize, page.Total)
}

// Respond writes data, or the error envelope when err is set.
func Respond(c *gin.Context, data interface{}, err error) {
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, data)
}
