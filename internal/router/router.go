package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dentalclinic-api/internal/middleware"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/metrics"
)

// Handler is a handler that owns a set of routes.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// WriteHandler mounts reads on the group and mutations behind write.
type WriteHandler interface {
	RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc)
}

// EmployeeHandler guards mutations with an admin check and the specialty
// update with a doctor check.
type EmployeeHandler interface {
	RegisterRoutes(r *gin.RouterGroup, admin, doctor gin.HandlerFunc)
}

// AuthHandler mounts login behind limit.
type AuthHandler interface {
	RegisterRoutes(r *gin.RouterGroup, limit ...gin.HandlerFunc)
}

type Handlers struct {
	Health      Handler
	Auth        AuthHandler
	Patient     WriteHandler
	Employee    EmployeeHandler
	Catalog     WriteHandler
	Appointment WriteHandler
	Ticket      WriteHandler
	FormData    Handler
}

type RouterConfig struct {
	Mode         string
	MaxBodyBytes int64
	CORS         middleware.CORSConfig
	RateLimit    bool
	RPS          float64
	Burst        int
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	limiter  *middleware.RateLimiter
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics, config RouterConfig) (*Router, error) {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if err := middleware.RegisterValidation(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.CORS(config.CORS),
	)
	if m != nil {
		engine.Use(middleware.Metrics(m))
	}
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(config.MaxBodyBytes))
	}

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}
	if config.RateLimit {
		r.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(config.RPS),
			Burst: config.Burst,
		})
	}
	return r, nil
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.handlers.Health.RegisterRoutes(api)

	var limit []gin.HandlerFunc
	if r.limiter != nil {
		limit = append(limit, r.limiter.RateLimit())
	}
	r.handlers.Auth.RegisterRoutes(api, limit...)

	// Back-office routes are for clinic staff only; patients just hold a session.
	protected := api.Group("")
	protected.Use(
		r.auth.Authenticate(),
		r.auth.RequireRole(model.RoleAdmin, model.RoleReceptionist, model.RoleDoctor),
	)
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	staff := r.auth.RequireRole(model.RoleAdmin, model.RoleReceptionist)
	admin := r.auth.RequireRole(model.RoleAdmin)
	doctor := r.auth.RequireRole(model.RoleAdmin, model.RoleDoctor)

	r.handlers.Patient.RegisterRoutes(rg, staff)
	r.handlers.Employee.RegisterRoutes(rg, admin, doctor)
	r.handlers.Catalog.RegisterRoutes(rg, staff)
	r.handlers.Appointment.RegisterRoutes(rg, staff)
	r.handlers.Ticket.RegisterRoutes(rg, staff)
	r.handlers.FormData.RegisterRoutes(rg)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
