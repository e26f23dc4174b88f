package model

import "time"

// RegistrationStatus is stored in registrations.status.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Registration is a student's request to occupy a room. It is only ever
// moved out of pending by approve or reject, or deleted by cancel.
type Registration struct {
	ID        uint64             `json:"id"`         // registrations.id
	StudentID uint64             `json:"student_id"` // registrations.student_id
	RoomID    uint64             `json:"room_id"`    // registrations.room_id
	Status    RegistrationStatus `json:"status"`     // registrations.status
	CreatedAt time.Time          `json:"created_at"` // registrations.created_at
}

// IsActive reports whether the registration blocks the student from
// opening another one.
func (r Registration) IsActive() bool {
	return r.Status == RegistrationPending || r.Status == RegistrationApproved
}
