package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormitory-occupancy/internal/handler"
	"github.com/iliyamo/dormitory-occupancy/internal/middleware"
	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// RegisterStudent registers student-scoped endpoints under /v1. All
// routes require a valid JWT and the student role.
func RegisterStudent(e *echo.Echo, h *handler.Handlers, cfg Config) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleStudent),
		cfg.limit(),
	)
	g.POST("/registrations", h.Registrations.Create)
	g.POST("/payments", h.Payments.Submit)
	g.POST("/maintenance", h.Maintenance.Create)
}
