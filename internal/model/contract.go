package model

import (
	"fmt"
	"time"
)

// Contract is the dated agreement created when a registration is
// approved. StartDate and EndDate are calendar dates at UTC midnight.
// The active/expired flags are never stored; call the methods below
// with the current date instead.
type Contract struct {
	ID             uint64     `json:"id"`              // contracts.id
	RegistrationID uint64     `json:"registration_id"` // contracts.registration_id
	Code           string     `json:"contract_code"`   // contracts.contract_code
	StartDate      time.Time  `json:"start_date"`      // contracts.start_date
	EndDate        time.Time  `json:"end_date"`        // contracts.end_date
	CreatedAt      time.Time  `json:"created_at"`      // contracts.created_at
	TerminatedAt   *time.Time `json:"terminated_at"`   // contracts.terminated_at (nullable)

	// Joined from the registration.
	StudentID uint64 `json:"student_id"`
	RoomID    uint64 `json:"room_id"`
}

// ContractCode formats the human readable code for a contract id.
func ContractCode(id uint64) string { return fmt.Sprintf("HD%04d", id) }

// IsTerminated reports whether the contract was ended early.
func (c Contract) IsTerminated() bool { return c.TerminatedAt != nil }

// IsActive reports whether today falls within the contract period.
func (c Contract) IsActive(today time.Time) bool {
	today = DateOf(today)
	return !today.Before(c.StartDate) && !today.After(c.EndDate)
}

// IsExpired reports whether the contract ended before today.
func (c Contract) IsExpired(today time.Time) bool {
	return DateOf(today).After(c.EndDate)
}

// DaysRemaining is the number of days until the end date, or zero once
// the contract has expired.
func (c Contract) DaysRemaining(today time.Time) int {
	if c.IsExpired(today) {
		return 0
	}
	return DaysBetween(today, c.EndDate)
}

// DurationMonths is the contract length in calendar months.
func (c Contract) DurationMonths() int { return MonthsBetween(c.StartDate, c.EndDate) }

// ContractView is the read shape of a contract with its derived fields
// evaluated for a given day.
type ContractView struct {
	Contract
	IsActive       bool `json:"is_active"`
	IsExpired      bool `json:"is_expired"`
	DaysRemaining  int  `json:"days_remaining"`
	DurationMonths int  `json:"duration_months"`
}

// View evaluates the derived fields of c as of today.
func (c Contract) View(today time.Time) ContractView {
	return ContractView{
		Contract:       c,
		IsActive:       c.IsActive(today) && !c.IsTerminated(),
		IsExpired:      c.IsExpired(today),
		DaysRemaining:  c.DaysRemaining(today),
		DurationMonths: c.DurationMonths(),
	}
}

// HistoryAction is stored in contract_history.action.
type HistoryAction string

const (
	HistoryCreated    HistoryAction = "created"
	HistoryRenewed    HistoryAction = "renewed"
	HistoryTerminated HistoryAction = "terminated"
)

// ContractHistory is one audit row describing a change to a contract.
type ContractHistory struct {
	ID         uint64        `json:"id"`          // contract_history.id
	ContractID uint64        `json:"contract_id"` // contract_history.contract_id
	ActorID    uint64        `json:"actor_id"`    // contract_history.actor_id
	Action     HistoryAction `json:"action"`      // contract_history.action
	OldValue   string        `json:"old_value"`   // contract_history.old_value
	NewValue   string        `json:"new_value"`   // contract_history.new_value
	Notes      string        `json:"notes"`       // contract_history.notes
	CreatedAt  time.Time     `json:"created_at"`  // contract_history.created_at
}
