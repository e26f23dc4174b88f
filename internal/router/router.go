// Package router registers HTTP routes per audience.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/dormitory-occupancy/internal/handler"
	"github.com/iliyamo/dormitory-occupancy/internal/middleware"
	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// Config carries what the route groups need besides the handlers.
type Config struct {
	JWTSecret string
	// Limit guards mutating routes. Nil means no rate limiting.
	Limit    echo.MiddlewareFunc
	Gatherer prometheus.Gatherer
}

func (c Config) limit() echo.MiddlewareFunc {
	if c.Limit == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return c.Limit
}

// Register mounts every route on e.
func Register(e *echo.Echo, h *handler.Handlers, cfg Config) {
	RegisterRoutes(e, cfg.Gatherer)
	RegisterShared(e, h, cfg)
	RegisterStudent(e, h, cfg)
	RegisterStaff(e, h, cfg)
	RegisterAdmin(e, h, cfg)
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, g prometheus.Gatherer) {
	e.GET("/healthz", handler.Health)
	if g != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}
}

// RegisterShared registers endpoints open to every role. The services
// decide what each caller may see or change.
func RegisterShared(e *echo.Echo, h *handler.Handlers, cfg Config) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManagement, model.RoleStaff, model.RoleStudent),
	)
	g.GET("/rooms/:id", h.Statistics.Room)

	g.GET("/registrations", h.Registrations.List)
	g.GET("/registrations/:id", h.Registrations.Get)
	g.DELETE("/registrations/:id", h.Registrations.Cancel, cfg.limit())

	g.GET("/contracts", h.Contracts.List)
	g.GET("/contracts/:id", h.Contracts.Get)
	g.GET("/contracts/:id/history", h.Contracts.History)

	g.GET("/payments", h.Payments.List)
	g.GET("/payments/:id", h.Payments.Get)
	g.PATCH("/payments/:id", h.Payments.Update, cfg.limit())

	g.GET("/maintenance", h.Maintenance.List)
	g.GET("/maintenance/:id", h.Maintenance.Get)
	g.POST("/maintenance/:id/cancel", h.Maintenance.Cancel, cfg.limit())
}
