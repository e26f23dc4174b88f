// Package queue defines the domain events published to the message
// broker after a lifecycle transition commits, together with the
// publisher and the audit-log consumer.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names double as queue names.
const (
	TypeRegistrationApproved = "registration.approved"
	TypeContractRenewed      = "contract.renewed"
	TypeContractTerminated   = "contract.terminated"
	TypePaymentConfirmed     = "payment.confirmed"
)

// EventTypes lists every queue the audit consumer listens on.
var EventTypes = []string{
	TypeRegistrationApproved,
	TypeContractRenewed,
	TypeContractTerminated,
	TypePaymentConfirmed,
}

// Event is implemented by every payload that can be published.
type Event interface {
	EventType() string
}

// Envelope wraps a payload with a message id and timestamp.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals ev and stamps it with a fresh id.
func NewEnvelope(ev Event, at time.Time) (Envelope, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       ev.EventType(),
		OccurredAt: at.UTC(),
		Payload:    body,
	}, nil
}

// RegistrationApprovedEvent is published when approval created a
// contract and its first payment.
type RegistrationApprovedEvent struct {
	RegistrationID uint64          `json:"registration_id"`
	StudentID      uint64          `json:"student_id"`
	RoomID         uint64          `json:"room_id"`
	ContractID     uint64          `json:"contract_id"`
	ContractCode   string          `json:"contract_code"`
	PaymentID      uint64          `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	ApprovedBy     uint64          `json:"approved_by"`
}

func (RegistrationApprovedEvent) EventType() string { return TypeRegistrationApproved }

// ContractRenewedEvent carries the old and new end dates.
type ContractRenewedEvent struct {
	ContractID   uint64 `json:"contract_id"`
	ContractCode string `json:"contract_code"`
	Months       int    `json:"months"`
	OldEndDate   string `json:"old_end_date"`
	NewEndDate   string `json:"new_end_date"`
	RenewedBy    uint64 `json:"renewed_by"`
}

func (ContractRenewedEvent) EventType() string { return TypeContractRenewed }

// ContractTerminatedEvent carries the termination reason for the audit
// trail.
type ContractTerminatedEvent struct {
	ContractID   uint64 `json:"contract_id"`
	ContractCode string `json:"contract_code"`
	RoomID       uint64 `json:"room_id"`
	Reason       string `json:"reason"`
	EndDate      string `json:"end_date"`
	TerminatedBy uint64 `json:"terminated_by"`
}

func (ContractTerminatedEvent) EventType() string { return TypeContractTerminated }

type PaymentConfirmedEvent struct {
	PaymentID   uint64          `json:"payment_id"`
	ContractID  uint64          `json:"contract_id"`
	StudentID   uint64          `json:"student_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	ConfirmedBy uint64          `json:"confirmed_by"`
}

func (PaymentConfirmedEvent) EventType() string { return TypePaymentConfirmed }
