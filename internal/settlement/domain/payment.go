package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Payment statuses
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// Payout methods
const (
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodManual       = "MANUAL"
)

// SettlementPayment is a payout made against a settled ledger row
type SettlementPayment struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	SettlementLedgerID uint           `json:"settlement_ledger_id" gorm:"not null;index"`
	Amount             int64          `json:"amount"`
	Method             string         `json:"method" gorm:"not null"`
	BankInfo           datatypes.JSON `json:"-"`
	Notes              string         `json:"notes,omitempty"`
	Status             string         `json:"status" gorm:"not null"`
	ConfirmationNumber string         `json:"confirmation_number,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// TableName specifies the table name
func (SettlementPayment) TableName() string {
	return "settlement_payments"
}

// Complete moves a PENDING payment to COMPLETED.
func (p *SettlementPayment) Complete(confirmation string, at time.Time) error {
	if p.Status != PaymentStatusPending {
		return ErrPaymentNotPending
	}
	p.Status = PaymentStatusCompleted
	p.ConfirmationNumber = confirmation
	p.CompletedAt = &at
	return nil
}

// BankAccount is the payout destination as supplied by an operator. Only the
// sealed form is persisted.
type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
}
