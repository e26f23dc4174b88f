package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/service"
)

// PaymentHandler serves /v1/payments.
type PaymentHandler struct{ base }

type submitPaymentRequest struct {
	ContractID uint64              `json:"contract_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Method     model.PaymentMethod `json:"method"`
	ProofRef   string              `json:"proof_ref"`
}

type updatePaymentRequest struct {
	Amount   *decimal.Decimal     `json:"amount"`
	Method   *model.PaymentMethod `json:"method"`
	ProofRef *string              `json:"proof_ref"`
}

// Submit handles POST /v1/payments.
func (h *PaymentHandler) Submit(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req submitPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.Payments.Submit(c.Request().Context(), actor, service.Submission{
		ContractID: req.ContractID,
		Amount:     req.Amount,
		Method:     req.Method,
		ProofRef:   req.ProofRef,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusCreated, p)
}

// List handles GET /v1/payments.
func (h *PaymentHandler) List(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	f, ok := listFilter(c)
	if !ok {
		return badRequest(c, "invalid paging parameters")
	}
	list, err := h.svc.Payments.List(c.Request().Context(), actor, f)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// Get handles GET /v1/payments/:id.
func (h *PaymentHandler) Get(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	p, err := h.svc.Payments.Get(c.Request().Context(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, p)
}

// Update handles PATCH /v1/payments/:id.
func (h *PaymentHandler) Update(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	var req updatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.Payments.Update(c.Request().Context(), actor, id, model.PaymentChanges{
		Amount:   req.Amount,
		Method:   req.Method,
		ProofRef: req.ProofRef,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, p)
}

// Confirm handles POST /v1/payments/:id/confirm.  It takes no body and
// marks a pending payment confirmed, recording the caller as the
// confirmer.  Confirmation is final.  It returns 200 with the payment,
// 403 for callers outside admin and management, 404 for an unknown
// payment and 409 when the payment was already confirmed or rejected.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	return h.settle(c, h.svc.Payments.Confirm)
}

// Reject handles POST /v1/payments/:id/reject.  Same contract as
// Confirm, but the payment ends as failed.
func (h *PaymentHandler) Reject(c echo.Context) error {
	return h.settle(c, h.svc.Payments.Reject)
}

func (h *PaymentHandler) settle(c echo.Context, op func(ctx context.Context, actor model.Actor, id uint64) (model.Payment, error)) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	p, err := op(c.Request().Context(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, p)
}

// Statistics handles GET /v1/payments/statistics.
func (h *PaymentHandler) Statistics(c echo.Context) error {
	stats, err := h.svc.Payments.Statistics(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, http.StatusOK, stats)
}
