package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/infrastructure/logger"
	"github.com/opsdesk/backend/internal/interfaces/http/handler"
	"github.com/opsdesk/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar registers a handler's routes on the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router assembles the HTTP surface: health endpoint at the root plus
// versioned API routes.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	health     *handler.HealthHandler
	registrars []RouteRegistrar
}

// New creates a Router with the standard middleware chain installed
func New(log *zap.Logger, health *handler.HealthHandler) *Router {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
	)

	return &Router{
		engine:     engine,
		apiVersion: "v1",
		health:     health,
		registrars: make([]RouteRegistrar, 0),
	}
}

// Register adds a RouteRegistrar to be wired by Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes and returns the engine
func (r *Router) Setup() *gin.Engine {
	r.engine.GET("/healthz", r.health.Healthz)

	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}

	return r.engine
}
