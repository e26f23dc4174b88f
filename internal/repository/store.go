package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// UnitOfWork runs a function against a transaction-scoped Tx. Within
// commits only when fn returns nil and rolls back every write
// otherwise. View runs fn against a read-only snapshot.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the stores bound to a single transaction.
type Tx interface {
	Rooms() RoomStore
	Users() UserStore
	Registrations() RegistrationStore
	Contracts() ContractStore
	Payments() PaymentStore
	Tickets() TicketStore
	History() HistoryStore
}

// ListFilter narrows list queries. Zero values mean "no filter".
type ListFilter struct {
	StudentID  uint64
	AssigneeID uint64
	// IncludeUnassigned widens an AssigneeID filter to pending tickets
	// nobody has picked up yet.
	IncludeUnassigned bool
	Status            string
	Limit             int
	Offset            int
}

// Page returns the effective limit and offset, defaulting to 50 rows
// and capping at 200.
func (f ListFilter) Page() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// RoomSummary aggregates room counts for the dashboard.
type RoomSummary struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Occupied    int `json:"occupied"`
	Maintenance int `json:"maintenance"`
	// Full counts rooms whose occupancy reached capacity regardless of
	// the cached status.
	Full      int `json:"full"`
	Beds      int `json:"beds"`
	Residents int `json:"residents"`
}

type RoomStore interface {
	GetByID(ctx context.Context, id uint64) (model.RoomDetail, error)
	// GetForUpdate locks the room row until the transaction ends.
	GetForUpdate(ctx context.Context, id uint64) (model.RoomDetail, error)
	// UpdateOccupancy writes occupancy and status when the stored version
	// still equals version, bumping it. ErrConflict on a miss.
	UpdateOccupancy(ctx context.Context, id, version uint64, occupancy int, status model.RoomStatus) error
	Summary(ctx context.Context) (RoomSummary, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetForUpdate(ctx context.Context, id uint64) (model.User, error)
}

type RegistrationStore interface {
	Create(ctx context.Context, r *model.Registration) error
	GetByID(ctx context.Context, id uint64) (model.Registration, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Registration, error)
	// FindActiveByStudent returns the student's pending or approved
	// registration, or ErrNotFound.
	FindActiveByStudent(ctx context.Context, studentID uint64) (model.Registration, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.RegistrationStatus) error
	// Delete removes the registration when it still has status.
	Delete(ctx context.Context, id uint64, status model.RegistrationStatus) error
	List(ctx context.Context, f ListFilter) ([]model.Registration, error)
	CountByStatus(ctx context.Context) (map[model.RegistrationStatus]int, error)
}

// ContractCounts is the contract rollup for a given day.
type ContractCounts struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Expired    int `json:"expired"`
	Terminated int `json:"terminated"`
}

type ContractStore interface {
	// Create inserts the contract and fills ID, Code and CreatedAt.
	Create(ctx context.Context, c *model.Contract) error
	GetByID(ctx context.Context, id uint64) (model.Contract, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Contract, error)
	// UpdateEndDate moves the end date from oldEnd to newEnd; ErrConflict when
	// the stored end date no longer equals oldEnd.
	UpdateEndDate(ctx context.Context, id uint64, oldEnd, newEnd time.Time) error
	// MarkTerminated sets the end date and terminated_at on a contract
	// that has not been terminated yet.
	MarkTerminated(ctx context.Context, id uint64, end, at time.Time) error
	List(ctx context.Context, f ListFilter) ([]model.Contract, error)
	// ListEndingBetween returns non-terminated contracts whose end date is
	// within [from, to], ordered by end date.
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.Contract, error)
	Counts(ctx context.Context, today time.Time) (ContractCounts, error)
}

// PaymentTotals is the payment rollup used by statistics.
type PaymentTotals struct {
	Count          int             `json:"count"`
	Pending        int             `json:"pending"`
	Confirmed      int             `json:"confirmed"`
	Failed         int             `json:"failed"`
	ConfirmedTotal decimal.Decimal `json:"confirmed_total"`
	PendingTotal   decimal.Decimal `json:"pending_total"`
}

type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uint64) (model.Payment, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Payment, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.PaymentStatus, confirmer *uint64) error
	// Update applies changes to a payment that is still pending.
	Update(ctx context.Context, id uint64, ch model.PaymentChanges) error
	ListByContract(ctx context.Context, contractID uint64) ([]model.Payment, error)
	List(ctx context.Context, f ListFilter) ([]model.Payment, error)
	// SumConfirmedBetween sums confirmed amounts dated in [from, to).
	SumConfirmedBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	Totals(ctx context.Context) (PaymentTotals, error)
	// CountPendingBefore counts pending payments dated before t.
	CountPendingBefore(ctx context.Context, t time.Time) (int, error)
}

type TicketStore interface {
	Create(ctx context.Context, t *model.MaintenanceTicket) error
	GetByID(ctx context.Context, id uint64) (model.MaintenanceTicket, error)
	GetForUpdate(ctx context.Context, id uint64) (model.MaintenanceTicket, error)
	// Update persists status, assignee and completed date when the stored
	// status still equals from.
	Update(ctx context.Context, t model.MaintenanceTicket, from model.TicketStatus) error
	List(ctx context.Context, f ListFilter) ([]model.MaintenanceTicket, error)
	CountByStatus(ctx context.Context) (map[model.TicketStatus]int, error)
	// CountPendingBefore counts pending tickets requested before t.
	CountPendingBefore(ctx context.Context, t time.Time) (int, error)
}

type HistoryStore interface {
	Append(ctx context.Context, h *model.ContractHistory) error
	ListByContract(ctx context.Context, contractID uint64) ([]model.ContractHistory, error)
}
