package model

import "time"

// TicketStatus is stored in maintenance_requests.status.
type TicketStatus string

const (
	TicketPending    TicketStatus = "pending"
	TicketAssigned   TicketStatus = "assigned"
	TicketInProgress TicketStatus = "in_progress"
	TicketCompleted  TicketStatus = "completed"
	TicketCancelled  TicketStatus = "cancelled"
)

// UrgentAfterDays is how long a ticket may wait unassigned before it is
// flagged as urgent.
const UrgentAfterDays = 3

// MaintenanceTicket is a repair request raised by a resident.
type MaintenanceTicket struct {
	ID            uint64       `json:"id"`             // maintenance_requests.id
	StudentID     uint64       `json:"student_id"`     // maintenance_requests.student_id
	RoomID        uint64       `json:"room_id"`        // maintenance_requests.room_id
	Title         string       `json:"title"`          // maintenance_requests.title
	Description   string       `json:"description"`    // maintenance_requests.description
	Status        TicketStatus `json:"status"`         // maintenance_requests.status
	AssigneeID    *uint64      `json:"assigned_to"`    // maintenance_requests.assigned_to (nullable)
	RequestDate   time.Time    `json:"request_date"`   // maintenance_requests.request_date
	CompletedDate *time.Time   `json:"completed_date"` // maintenance_requests.completed_date (nullable)
}

// DaysSinceRequest is the ticket age in whole calendar days.
func (t MaintenanceTicket) DaysSinceRequest(now time.Time) int {
	return DaysBetween(t.RequestDate, now)
}

// IsUrgent reports whether a pending ticket has waited too long.
func (t MaintenanceTicket) IsUrgent(now time.Time) bool {
	return t.Status == TicketPending && t.DaysSinceRequest(now) > UrgentAfterDays
}

// IsAssignedTo reports whether userID is the ticket's assignee.
func (t MaintenanceTicket) IsAssignedTo(userID uint64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// TicketView carries the derived fields alongside the stored ticket.
type TicketView struct {
	MaintenanceTicket
	DaysSinceRequest int  `json:"days_since_request"`
	IsUrgent         bool `json:"is_urgent"`
}

// View evaluates the derived fields of t as of now.
func (t MaintenanceTicket) View(now time.Time) TicketView {
	return TicketView{MaintenanceTicket: t, DaysSinceRequest: t.DaysSinceRequest(now), IsUrgent: t.IsUrgent(now)}
}
