package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/queue"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

const dateLayout = time.DateOnly

// ExpiringSoonDays is the window used by contract statistics.
const ExpiringSoonDays = 30

// ContractLifecycle renews and terminates contracts and answers
// contract queries.
type ContractLifecycle struct {
	*deps
	rooms *RoomInventory
}

// Renewal reports the end date before and after a renewal.
type Renewal struct {
	Contract   model.ContractView `json:"contract"`
	OldEndDate time.Time          `json:"old_end_date"`
	NewEndDate time.Time          `json:"new_end_date"`
}

// ContractDetail is a contract with its payments.
type ContractDetail struct {
	model.ContractView
	Payments        []model.Payment `json:"payments"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	PendingPayments int             `json:"pending_payments"`
}

// ContractStatistics is the contract rollup.
type ContractStatistics struct {
	Total        int             `json:"total"`
	Active       int             `json:"active"`
	Expired      int             `json:"expired"`
	Terminated   int             `json:"terminated"`
	ExpiringSoon int             `json:"expiring_soon"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// Renew extends a contract by months calendar months. An expired
// contract is renewed from today, a live one from its current end
// date, so the end date only ever moves forward.
func (l *ContractLifecycle) Renew(ctx context.Context, actor model.Actor, id uint64, months int) (Renewal, error) {
	const op = "contract.renew"
	if err := requirePrivileged(actor, "renew contracts"); err != nil {
		return Renewal{}, l.reject(ctx, op, err)
	}
	if months <= 0 {
		return Renewal{}, l.reject(ctx, op, invalid("months must be a positive number"))
	}

	var out Renewal
	today := l.today()
	err := l.uow.Within(ctx, func(tx repository.Tx) error {
		c, err := tx.Contracts().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "contract")
		}
		if c.IsTerminated() {
			return conflict("contract %s has been terminated", c.Code)
		}
		base := c.EndDate
		if c.IsExpired(today) {
			base = today
		}
		newEnd := model.AddMonthsClamped(base, months)
		if err := tx.Contracts().UpdateEndDate(ctx, c.ID, c.EndDate, newEnd); err != nil {
			return storeErr(err, "contract")
		}
		if err := tx.History().Append(ctx, &model.ContractHistory{
			ContractID: c.ID,
			ActorID:    actor.UserID,
			Action:     model.HistoryRenewed,
			OldValue:   c.EndDate.Format(dateLayout),
			NewValue:   newEnd.Format(dateLayout),
			Notes:      "renewed",
			CreatedAt:  l.clock(),
		}); err != nil {
			return storeErr(err, "contract history")
		}
		out.OldEndDate = c.EndDate
		out.NewEndDate = newEnd
		c.EndDate = newEnd
		out.Contract = c.View(today)
		return nil
	})
	if err != nil {
		return Renewal{}, l.reject(ctx, op, storeErr(err, "contract"))
	}

	l.metrics.IncrementContract(string(model.HistoryRenewed))
	l.logger.InfoContext(ctx, "contract renewed", "contract", out.Contract.Code,
		"old_end", out.OldEndDate.Format(dateLayout), "new_end", out.NewEndDate.Format(dateLayout), "by", actor.UserID)
	l.publish(ctx, queue.ContractRenewedEvent{
		ContractID:   out.Contract.ID,
		ContractCode: out.Contract.Code,
		Months:       months,
		OldEndDate:   out.OldEndDate.Format(dateLayout),
		NewEndDate:   out.NewEndDate.Format(dateLayout),
		RenewedBy:    actor.UserID,
	})
	return out, nil
}

// Terminate ends a live contract today and frees its bed.
func (l *ContractLifecycle) Terminate(ctx context.Context, actor model.Actor, id uint64, reason string) (model.ContractView, error) {
	const op = "contract.terminate"
	if err := requirePrivileged(actor, "terminate contracts"); err != nil {
		return model.ContractView{}, l.reject(ctx, op, err)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.ContractView{}, l.reject(ctx, op, invalid("a termination reason is required"))
	}

	var out model.ContractView
	today := l.today()
	err := l.uow.Within(ctx, func(tx repository.Tx) error {
		c, err := tx.Contracts().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "contract")
		}
		if c.IsTerminated() {
			return conflict("contract %s is already terminated", c.Code)
		}
		if c.IsExpired(today) {
			return conflict("contract %s already expired", c.Code)
		}
		now := l.clock()
		if err := tx.Contracts().MarkTerminated(ctx, c.ID, today, now); err != nil {
			return storeErr(err, "contract")
		}
		if _, err := l.rooms.DecrementOccupancy(ctx, tx, c.RoomID); err != nil {
			return err
		}
		if err := tx.History().Append(ctx, &model.ContractHistory{
			ContractID: c.ID,
			ActorID:    actor.UserID,
			Action:     model.HistoryTerminated,
			OldValue:   c.EndDate.Format(dateLayout),
			NewValue:   today.Format(dateLayout),
			Notes:      reason,
			CreatedAt:  now,
		}); err != nil {
			return storeErr(err, "contract history")
		}
		c.EndDate = today
		c.TerminatedAt = &now
		out = c.View(today)
		return nil
	})
	if err != nil {
		return model.ContractView{}, l.reject(ctx, op, storeErr(err, "contract"))
	}

	l.metrics.IncrementContract(string(model.HistoryTerminated))
	l.metrics.IncrementOccupancy(-1)
	l.logger.InfoContext(ctx, "contract terminated", "contract", out.Code, "room_id", out.RoomID, "reason", reason, "by", actor.UserID)
	l.publish(ctx, queue.ContractTerminatedEvent{
		ContractID:   out.ID,
		ContractCode: out.Code,
		RoomID:       out.RoomID,
		Reason:       reason,
		EndDate:      out.EndDate.Format(dateLayout),
		TerminatedBy: actor.UserID,
	})
	return out, nil
}

// ExpiringSoon lists live contracts ending within thresholdDays of
// today, soonest first.
func (l *ContractLifecycle) ExpiringSoon(ctx context.Context, thresholdDays int) ([]model.ContractView, error) {
	if thresholdDays < 0 {
		return nil, invalid("days must not be negative")
	}
	today := l.today()
	var out []model.ContractView
	err := l.uow.View(ctx, func(tx repository.Tx) error {
		list, err := tx.Contracts().ListEndingBetween(ctx, today, today.AddDate(0, 0, thresholdDays))
		if err != nil {
			return err
		}
		out = views(list, today)
		return nil
	})
	return out, storeErr(err, "contracts")
}

// Statistics returns contract counts and total confirmed revenue.
func (l *ContractLifecycle) Statistics(ctx context.Context) (ContractStatistics, error) {
	var out ContractStatistics
	err := l.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = contractStatistics(ctx, tx, l.today())
		return err
	})
	return out, storeErr(err, "contract statistics")
}

func contractStatistics(ctx context.Context, tx repository.Tx, today time.Time) (ContractStatistics, error) {
	counts, err := tx.Contracts().Counts(ctx, today)
	if err != nil {
		return ContractStatistics{}, err
	}
	expiring, err := tx.Contracts().ListEndingBetween(ctx, today, today.AddDate(0, 0, ExpiringSoonDays))
	if err != nil {
		return ContractStatistics{}, err
	}
	totals, err := tx.Payments().Totals(ctx)
	if err != nil {
		return ContractStatistics{}, err
	}
	return ContractStatistics{
		Total:        counts.Total,
		Active:       counts.Active,
		Expired:      counts.Expired,
		Terminated:   counts.Terminated,
		ExpiringSoon: len(expiring),
		TotalRevenue: totals.ConfirmedTotal,
	}, nil
}

// Get returns a contract with its payments. Students may only read
// their own contracts.
func (l *ContractLifecycle) Get(ctx context.Context, actor model.Actor, id uint64) (ContractDetail, error) {
	today := l.today()
	var out ContractDetail
	err := l.uow.View(ctx, func(tx repository.Tx) error {
		c, err := tx.Contracts().GetByID(ctx, id)
		if err != nil {
			return storeErr(err, "contract")
		}
		if !actor.IsPrivileged() && c.StudentID != actor.UserID {
			return forbidden("contract belongs to another student")
		}
		payments, err := tx.Payments().ListByContract(ctx, c.ID)
		if err != nil {
			return storeErr(err, "payments")
		}
		out = ContractDetail{ContractView: c.View(today), Payments: payments, TotalPaid: decimal.Zero}
		for _, p := range payments {
			switch p.Status {
			case model.PaymentConfirmed:
				out.TotalPaid = out.TotalPaid.Add(p.Amount)
			case model.PaymentPending:
				out.PendingPayments++
			}
		}
		return nil
	})
	return out, storeErr(err, "contract")
}

// List returns contracts visible to actor.
func (l *ContractLifecycle) List(ctx context.Context, actor model.Actor, f repository.ListFilter) ([]model.ContractView, error) {
	switch {
	case actor.IsStudent():
		f.StudentID = actor.UserID
	case !actor.IsPrivileged():
		return nil, forbidden("not allowed to list contracts")
	}
	today := l.today()
	var out []model.ContractView
	err := l.uow.View(ctx, func(tx repository.Tx) error {
		list, err := tx.Contracts().List(ctx, f)
		if err != nil {
			return err
		}
		out = views(list, today)
		return nil
	})
	return out, storeErr(err, "contracts")
}

// History returns the audit trail of a contract.
func (l *ContractLifecycle) History(ctx context.Context, actor model.Actor, id uint64) ([]model.ContractHistory, error) {
	var out []model.ContractHistory
	err := l.uow.View(ctx, func(tx repository.Tx) error {
		c, err := tx.Contracts().GetByID(ctx, id)
		if err != nil {
			return storeErr(err, "contract")
		}
		if !actor.IsPrivileged() && c.StudentID != actor.UserID {
			return forbidden("contract belongs to another student")
		}
		out, err = tx.History().ListByContract(ctx, id)
		return err
	})
	return out, storeErr(err, "contract history")
}

func views(list []model.Contract, today time.Time) []model.ContractView {
	out := make([]model.ContractView, 0, len(list))
	for _, c := range list {
		out = append(out, c.View(today))
	}
	return out
}
