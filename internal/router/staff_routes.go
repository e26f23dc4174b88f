package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormitory-occupancy/internal/handler"
	"github.com/iliyamo/dormitory-occupancy/internal/middleware"
	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// RegisterStaff registers the maintenance work endpoints. Only the
// assigned staff member may move a ticket forward; the service checks
// the assignment.
func RegisterStaff(e *echo.Echo, h *handler.Handlers, cfg Config) {
	g := e.Group(
		"/v1/maintenance",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleStaff),
		cfg.limit(),
	)
	g.POST("/:id/start", h.Maintenance.Start)
	g.POST("/:id/complete", h.Maintenance.Complete)
}
