package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegistrationHandler serves /v1/registrations.
type RegistrationHandler struct{ base }

type createRegistrationRequest struct {
	RoomID uint64 `json:"room_id"`
}

// Create handles POST /v1/registrations.
func (h *RegistrationHandler) Create(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req createRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	reg, err := h.svc.Registrations.Create(c.Request().Context(), actor, req.RoomID)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusCreated, reg)
}

// List handles GET /v1/registrations.
func (h *RegistrationHandler) List(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	f, ok := listFilter(c)
	if !ok {
		return badRequest(c, "invalid paging parameters")
	}
	list, err := h.svc.Registrations.List(c.Request().Context(), actor, f)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// Get handles GET /v1/registrations/:id.
func (h *RegistrationHandler) Get(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	reg, err := h.svc.Registrations.Get(c.Request().Context(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, reg)
}

// Approve handles POST /v1/registrations/:id/approve.  It takes no body.
// The registration is approved, a bed is taken, the contract and its
// first pending payment are created in one transaction.  On success it
// returns 200 with {"item": {...}} carrying the registration, the new
// contract, the initial payment and the room after the occupancy
// change.  It returns 403 for callers that are not admin or management,
// 404 when the registration does not exist, and 409 when it is no
// longer pending or the room filled up or changed since the request was
// made.  Nothing is written when any step fails.
func (h *RegistrationHandler) Approve(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	out, err := h.svc.Registrations.Approve(c.Request().Context(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, out)
}

// Reject handles POST /v1/registrations/:id/reject.
func (h *RegistrationHandler) Reject(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	reg, err := h.svc.Registrations.Reject(c.Request().Context(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, reg)
}

// Cancel handles DELETE /v1/registrations/:id.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid registration id")
	}
	if err := h.svc.Registrations.Cancel(c.Request().Context(), actor, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
