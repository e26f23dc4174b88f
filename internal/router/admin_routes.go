package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormitory-occupancy/internal/handler"
	"github.com/iliyamo/dormitory-occupancy/internal/middleware"
	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// RegisterAdmin registers the privileged transitions and rollups. All
// routes require the admin or management role.
func RegisterAdmin(e *echo.Echo, h *handler.Handlers, cfg Config) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManagement),
	)

	// ---- Registrations ----
	g.POST("/registrations/:id/approve", h.Registrations.Approve, cfg.limit())
	g.POST("/registrations/:id/reject", h.Registrations.Reject, cfg.limit())

	// ---- Contracts ----
	g.GET("/contracts/expiring", h.Contracts.ExpiringSoon)
	g.GET("/contracts/statistics", h.Contracts.Statistics)
	g.POST("/contracts/:id/renew", h.Contracts.Renew, cfg.limit())
	g.POST("/contracts/:id/terminate", h.Contracts.Terminate, cfg.limit())

	// ---- Payments ----
	g.GET("/payments/statistics", h.Payments.Statistics)
	g.POST("/payments/:id/confirm", h.Payments.Confirm, cfg.limit())
	g.POST("/payments/:id/reject", h.Payments.Reject, cfg.limit())

	// ---- Maintenance ----
	g.GET("/maintenance/statistics", h.Maintenance.Statistics)
	g.POST("/maintenance/:id/assign", h.Maintenance.Assign, cfg.limit())

	// ---- Rollups ----
	g.GET("/dashboard", h.Statistics.Dashboard)
	g.GET("/alerts", h.Statistics.Alerts)
}
