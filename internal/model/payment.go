package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is stored in payments.method.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool { return m == MethodBankTransfer || m == MethodCash }

// PaymentStatus is stored in payments.status. Confirmed and failed are
// terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is one installment recorded against a contract.
type Payment struct {
	ID          uint64          `json:"id"`           // payments.id
	ContractID  uint64          `json:"contract_id"`  // payments.contract_id
	Amount      decimal.Decimal `json:"amount"`       // payments.amount
	PaymentDate time.Time       `json:"payment_date"` // payments.payment_date
	Method      PaymentMethod   `json:"method"`       // payments.method
	Status      PaymentStatus   `json:"status"`       // payments.status
	ProofRef    *string         `json:"proof_ref"`    // payments.proof_ref (nullable)
	ConfirmedBy *uint64         `json:"confirmed_by"` // payments.confirmed_by (nullable)

	// Joined through the contract and registration.
	StudentID uint64 `json:"student_id"`
}

// PaymentChanges lists the fields an update may touch. Nil means leave
// the stored value alone.
type PaymentChanges struct {
	Amount   *decimal.Decimal
	Method   *PaymentMethod
	ProofRef *string
}

// IsEmpty reports whether no field is set.
func (c PaymentChanges) IsEmpty() bool {
	return c.Amount == nil && c.Method == nil && c.ProofRef == nil
}
