package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/queue"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

// PaymentLedger records installments against contracts. Confirmed and
// failed payments are terminal.
type PaymentLedger struct {
	*deps
}

// Submission is a payment reported by a student.
type Submission struct {
	ContractID uint64
	Amount     decimal.Decimal
	Method     model.PaymentMethod
	ProofRef   string
}

// CreateInitialPayment records the first installment of a new contract
// inside tx.
func (l *PaymentLedger) CreateInitialPayment(ctx context.Context, tx repository.Tx, c model.Contract, amount decimal.Decimal) (model.Payment, error) {
	if amount.IsNegative() {
		return model.Payment{}, invalid("payment amount must not be negative")
	}
	p := model.Payment{
		ContractID:  c.ID,
		Amount:      amount,
		PaymentDate: l.clock(),
		Method:      model.MethodBankTransfer,
		Status:      model.PaymentPending,
		StudentID:   c.StudentID,
	}
	if err := tx.Payments().Create(ctx, &p); err != nil {
		return model.Payment{}, storeErr(err, "payment")
	}
	return p, nil
}

// Submit records a pending payment reported by the contract's student.
func (l *PaymentLedger) Submit(ctx context.Context, actor model.Actor, in Submission) (model.Payment, error) {
	const op = "payment.submit"
	if !actor.IsStudent() {
		return model.Payment{}, l.reject(ctx, op, forbidden("only the contract holder can submit payments"))
	}
	if err := validateAmount(&in.Amount); err != nil {
		return model.Payment{}, l.reject(ctx, op, err)
	}
	if in.Method == "" {
		in.Method = model.MethodBankTransfer
	}
	if !in.Method.Valid() {
		return model.Payment{}, l.reject(ctx, op, invalid("unknown payment method %q", in.Method))
	}

	var p model.Payment
	err := l.uow.Within(ctx, func(tx repository.Tx) error {
		c, err := tx.Contracts().GetByID(ctx, in.ContractID)
		if err != nil {
			return storeErr(err, "contract")
		}
		if c.StudentID != actor.UserID {
			return forbidden("contract belongs to another student")
		}
		if c.IsTerminated() {
			return conflict("contract %s has been terminated", c.Code)
		}
		p = model.Payment{
			ContractID:  c.ID,
			Amount:      in.Amount,
			PaymentDate: l.clock(),
			Method:      in.Method,
			Status:      model.PaymentPending,
			StudentID:   c.StudentID,
		}
		if proof := strings.TrimSpace(in.ProofRef); proof != "" {
			p.ProofRef = &proof
		}
		return storeErr(tx.Payments().Create(ctx, &p), "payment")
	})
	if err != nil {
		return model.Payment{}, l.reject(ctx, op, storeErr(err, "payment"))
	}
	l.metrics.IncrementPayment(string(model.PaymentPending))
	l.logger.InfoContext(ctx, "payment submitted", "payment_id", p.ID, "contract_id", p.ContractID, "amount", p.Amount.String())
	return p, nil
}

// Confirm settles a pending payment.
func (l *PaymentLedger) Confirm(ctx context.Context, actor model.Actor, id uint64) (model.Payment, error) {
	p, err := l.settle(ctx, "payment.confirm", actor, id, model.PaymentConfirmed)
	if err != nil {
		return model.Payment{}, err
	}
	l.publish(ctx, queue.PaymentConfirmedEvent{
		PaymentID:   p.ID,
		ContractID:  p.ContractID,
		StudentID:   p.StudentID,
		Amount:      p.Amount,
		Method:      string(p.Method),
		ConfirmedBy: actor.UserID,
	})
	return p, nil
}

// Reject marks a pending payment as failed.
func (l *PaymentLedger) Reject(ctx context.Context, actor model.Actor, id uint64) (model.Payment, error) {
	return l.settle(ctx, "payment.reject", actor, id, model.PaymentFailed)
}

func (l *PaymentLedger) settle(ctx context.Context, op string, actor model.Actor, id uint64, to model.PaymentStatus) (model.Payment, error) {
	if err := requirePrivileged(actor, "settle payments"); err != nil {
		return model.Payment{}, l.reject(ctx, op, err)
	}
	var p model.Payment
	err := l.uow.Within(ctx, func(tx repository.Tx) error {
		var err error
		p, err = tx.Payments().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "payment")
		}
		if p.Status != model.PaymentPending {
			return conflict("payment is already %s", p.Status)
		}
		by := actor.UserID
		if err := tx.Payments().UpdateStatus(ctx, id, model.PaymentPending, to, &by); err != nil {
			return storeErr(err, "payment")
		}
		p.Status = to
		p.ConfirmedBy = &by
		return nil
	})
	if err != nil {
		return model.Payment{}, l.reject(ctx, op, storeErr(err, "payment"))
	}
	l.metrics.IncrementPayment(string(to))
	l.logger.InfoContext(ctx, "payment settled", "payment_id", id, "status", to, "by", actor.UserID)
	return p, nil
}

// Update edits a pending payment. A student may only attach proof of
// payment to their own payment; administrators may also change the
// amount and method.
func (l *PaymentLedger) Update(ctx context.Context, actor model.Actor, id uint64, ch model.PaymentChanges) (model.Payment, error) {
	const op = "payment.update"
	if ch.IsEmpty() {
		return model.Payment{}, l.reject(ctx, op, invalid("no fields to update"))
	}
	if ch.Amount != nil {
		if err := validateAmount(ch.Amount); err != nil {
			return model.Payment{}, l.reject(ctx, op, err)
		}
	}
	if ch.Method != nil && !ch.Method.Valid() {
		return model.Payment{}, l.reject(ctx, op, invalid("unknown payment method %q", *ch.Method))
	}
	if ch.ProofRef != nil {
		proof := strings.TrimSpace(*ch.ProofRef)
		if proof == "" {
			return model.Payment{}, l.reject(ctx, op, invalid("proof_ref must not be empty"))
		}
		ch.ProofRef = &proof
	}

	var p model.Payment
	err := l.uow.Within(ctx, func(tx repository.Tx) error {
		var err error
		p, err = tx.Payments().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "payment")
		}
		switch {
		case actor.IsPrivileged():
		case actor.IsStudent() && p.StudentID == actor.UserID:
			if ch.Amount != nil || ch.Method != nil {
				return forbidden("students may only update the proof of payment")
			}
		default:
			return forbidden("payment belongs to another student")
		}
		if p.Status != model.PaymentPending {
			return conflict("payment is already %s", p.Status)
		}
		if err := tx.Payments().Update(ctx, id, ch); err != nil {
			return storeErr(err, "payment")
		}
		p, err = tx.Payments().GetByID(ctx, id)
		return storeErr(err, "payment")
	})
	if err != nil {
		return model.Payment{}, l.reject(ctx, op, storeErr(err, "payment"))
	}
	l.logger.InfoContext(ctx, "payment updated", "payment_id", id, "by", actor.UserID)
	return p, nil
}

// Get returns one payment visible to actor.
func (l *PaymentLedger) Get(ctx context.Context, actor model.Actor, id uint64) (model.Payment, error) {
	var p model.Payment
	err := l.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		p, err = tx.Payments().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Payment{}, storeErr(err, "payment")
	}
	if !actor.IsPrivileged() && p.StudentID != actor.UserID {
		return model.Payment{}, forbidden("payment belongs to another student")
	}
	return p, nil
}

// List returns payments visible to actor.
func (l *PaymentLedger) List(ctx context.Context, actor model.Actor, f repository.ListFilter) ([]model.Payment, error) {
	switch {
	case actor.IsStudent():
		f.StudentID = actor.UserID
	case !actor.IsPrivileged():
		return nil, forbidden("not allowed to list payments")
	}
	var out []model.Payment
	err := l.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.Payments().List(ctx, f)
		return err
	})
	return out, storeErr(err, "payments")
}

// Statistics returns payment counts and sums by status.
func (l *PaymentLedger) Statistics(ctx context.Context) (repository.PaymentTotals, error) {
	var out repository.PaymentTotals
	err := l.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.Payments().Totals(ctx)
		return err
	})
	return out, storeErr(err, "payment statistics")
}

// validateAmount requires a positive amount and rounds it to cents.
func validateAmount(a *decimal.Decimal) error {
	if !a.IsPositive() {
		return invalid("amount must be greater than zero")
	}
	*a = a.Round(2)
	return nil
}
