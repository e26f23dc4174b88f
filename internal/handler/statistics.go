package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StatisticsHandler serves the dashboard, alerts and room lookups.
type StatisticsHandler struct{ base }

// Dashboard handles GET /v1/dashboard.
func (h *StatisticsHandler) Dashboard(c echo.Context) error {
	d, err := h.svc.Statistics.Dashboard(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, d)
}

// Alerts handles GET /v1/alerts.
func (h *StatisticsHandler) Alerts(c echo.Context) error {
	alerts, err := h.svc.Statistics.Alerts(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, alerts)
}

// Room handles GET /v1/rooms/:id.
func (h *StatisticsHandler) Room(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid room id")
	}
	room, err := h.svc.Rooms.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item":         room,
		"is_available": h.svc.Rooms.IsAvailable(room),
		"is_full":      room.IsFull(),
	})
}
