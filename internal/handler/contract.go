package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormitory-occupancy/internal/service"
)

// ContractHandler serves /v1/contracts.
type ContractHandler struct{ base }

type renewRequest struct {
	Months int `json:"months"`
}

type terminateRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /v1/contracts.
func (h *ContractHandler) List(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	f, ok := listFilter(c)
	if !ok {
		return badRequest(c, "invalid paging parameters")
	}
	list, err := h.svc.Contracts.List(c.Request().Context(), actor, f)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// Get handles GET /v1/contracts/:id and includes the contract's payments.
func (h *ContractHandler) Get(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid contract id")
	}
	d, err := h.svc.Contracts.Get(c.Request().Context(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, d)
}

// History handles GET /v1/contracts/:id/history.
func (h *ContractHandler) History(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid contract id")
	}
	list, err := h.svc.Contracts.History(c.Request().Context(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// Renew handles POST /v1/contracts/:id/renew.  The body is a JSON object
// with a positive integer "months".  The end date moves forward by that
// many calendar months, from today when the contract has already
// expired, with the day clamped to the target month.  It returns 200
// with the contract and the old and new end dates, 400 for a missing or
// non-positive months value, 403 for callers outside admin and
// management, 404 for an unknown contract and 409 when the contract
// was terminated.
func (h *ContractHandler) Renew(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid contract id")
	}
	var req renewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.svc.Contracts.Renew(c.Request().Context(), actor, id, req.Months)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, out)
}

// Terminate handles POST /v1/contracts/:id/terminate.  The body must
// carry a non-empty "reason" string, which is written to the contract
// history.  The contract ends today and its bed is released.  It
// returns 200 with the terminated contract, 400 when the reason is
// missing, 403 for callers outside admin and management, 404 for an
// unknown contract and 409 when the contract has already expired or
// been terminated.
func (h *ContractHandler) Terminate(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid contract id")
	}
	var req terminateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.svc.Contracts.Terminate(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, out)
}

// ExpiringSoon handles GET /v1/contracts/expiring?days=N.
func (h *ContractHandler) ExpiringSoon(c echo.Context) error {
	days := service.ExpiringSoonDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "invalid days")
		}
		days = n
	}
	list, err := h.svc.Contracts.ExpiringSoon(c.Request().Context(), days)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// Statistics handles GET /v1/contracts/statistics.
func (h *ContractHandler) Statistics(c echo.Context) error {
	stats, err := h.svc.Contracts.Statistics(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, stats)
}
