package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/service"
)

// MaintenanceHandler serves /v1/maintenance.
type MaintenanceHandler struct{ base }

type createTicketRequest struct {
	RoomID      uint64 `json:"room_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type assignRequest struct {
	StaffID uint64 `json:"assigned_to"`
}

// Create handles POST /v1/maintenance.
func (h *MaintenanceHandler) Create(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req createTicketRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.svc.Maintenance.Create(c.Request().Context(), actor, service.TicketRequest{
		RoomID:      req.RoomID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusCreated, t)
}

// List handles GET /v1/maintenance.
func (h *MaintenanceHandler) List(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	f, ok := listFilter(c)
	if !ok {
		return badRequest(c, "invalid paging parameters")
	}
	list, err := h.svc.Maintenance.List(c.Request().Context(), actor, f)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// Get handles GET /v1/maintenance/:id.
func (h *MaintenanceHandler) Get(c echo.Context) error {
	return h.run(c, h.svc.Maintenance.Get)
}

// Assign handles POST /v1/maintenance/:id/assign.
func (h *MaintenanceHandler) Assign(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	return h.run(c, func(ctx context.Context, actor model.Actor, id uint64) (model.TicketView, error) {
		return h.svc.Maintenance.Assign(ctx, actor, id, req.StaffID)
	})
}

// Start handles POST /v1/maintenance/:id/start.
func (h *MaintenanceHandler) Start(c echo.Context) error {
	return h.run(c, h.svc.Maintenance.Start)
}

// Complete handles POST /v1/maintenance/:id/complete.
func (h *MaintenanceHandler) Complete(c echo.Context) error {
	return h.run(c, h.svc.Maintenance.Complete)
}

// Cancel handles POST /v1/maintenance/:id/cancel.
func (h *MaintenanceHandler) Cancel(c echo.Context) error {
	return h.run(c, h.svc.Maintenance.Cancel)
}

// Statistics handles GET /v1/maintenance/statistics.
func (h *MaintenanceHandler) Statistics(c echo.Context) error {
	stats, err := h.svc.Maintenance.Statistics(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, stats)
}

func (h *MaintenanceHandler) run(c echo.Context, op func(ctx context.Context, actor model.Actor, id uint64) (model.TicketView, error)) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid maintenance request id")
	}
	t, err := op(c.Request().Context(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, t)
}
