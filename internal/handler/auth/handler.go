package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/dentalclinic-api/internal/handler"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/service/auth"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/httputil"
)

type Service interface {
	Login(ctx context.Context, dni, password string) (*model.Session, error)
	Session(token string) (*model.SessionUser, error)
}

type Handler struct {
	svc      Service
	failures prometheus.Counter
}

func NewHandler(svc Service, failures prometheus.Counter) *Handler {
	return &Handler{svc: svc, failures: failures}
}

// RegisterRoutes mounts the auth routes; limit guards the login endpoint.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, limit ...gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", append(limit, h.Login)...)
		auth.GET("/session", h.Session)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("dni and password are required", err))
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.DNI, req.Password)
	switch {
	case err == nil:
		httputil.RespondWithSuccess(c, session)
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.failed()
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
	case errors.Is(err, auth.ErrTooManyAttempts):
		h.failed()
		httputil.RespondWithError(c, apperrors.TooManyRequests("too many failed login attempts"))
	default:
		httputil.RespondWithError(c, apperrors.Internal(err))
	}
}

// Session returns the identity of the bearer token.
func (h *Handler) Session(c *gin.Context) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if token == "" {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	user, err := h.svc.Session(token)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}
	handler.Respond(c, user, nil)
}

func (h *Handler) failed() {
	if h.failures != nil {
		h.failures.Inc()
	}
}
