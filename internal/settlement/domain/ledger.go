package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ineligible reasons. A non-nil reason is terminal: the sweep never revisits
// the row again.
const (
	IneligibleReasonRefunded = "REFUNDED"
)

// SettlementLedger is one row per (instructor, purchased item) tracking the
// instructor's earned-but-unpaid share of that sale.
type SettlementLedger struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	InstructorID     uint            `json:"instructor_id" gorm:"not null;uniqueIndex:uq_settlement_ledgers_item"`
	OrderID          uint            `json:"order_id" gorm:"not null;index"`
	OrderItemID      uint            `json:"order_item_id" gorm:"not null;uniqueIndex:uq_settlement_ledgers_item"`
	OriginalAmount   int64           `json:"original_amount"`
	SupplyAmount     int64           `json:"supply_amount"`
	FeeAmount        int64           `json:"fee_amount"`
	NetAmount        int64           `json:"net_amount"`
	Rate             decimal.Decimal `json:"rate" gorm:"type:numeric(5,4)"`
	EligibleFlag     bool            `json:"eligible_flag"`
	IneligibleReason *string         `json:"ineligible_reason,omitempty"`
	SettledAt        *time.Time      `json:"settled_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (SettlementLedger) TableName() string {
	return "settlement_ledgers"
}

// Settled reports whether the liability has been recognized
func (l *SettlementLedger) Settled() bool {
	return l.SettledAt != nil
}

// Tombstoned reports whether the row was permanently retired
func (l *SettlementLedger) Tombstoned() bool {
	return l.IneligibleReason != nil
}

// DueForRelease reports whether the sweep should promote the row: still
// pending, never retired and created strictly before cutoff.
func (l *SettlementLedger) DueForRelease(cutoff time.Time) bool {
	return !l.EligibleFlag && !l.Settled() && !l.Tombstoned() && l.CreatedAt.Before(cutoff)
}

// Release promotes a due row to eligible.
func (l *SettlementLedger) Release(cutoff time.Time) error {
	if !l.DueForRelease(cutoff) {
		return ErrLedgerNotDue
	}
	l.EligibleFlag = true
	return nil
}

// Retire marks the row permanently ineligible. Settled rows cannot be retired.
func (l *SettlementLedger) Retire(reason string) error {
	if l.Settled() {
		return ErrLedgerAlreadySettled
	}
	l.EligibleFlag = false
	l.IneligibleReason = &reason
	return nil
}

// Settle stamps settledAt on an eligible row.
func (l *SettlementLedger) Settle(at time.Time) error {
	if l.Settled() {
		return ErrLedgerAlreadySettled
	}
	if !l.EligibleFlag {
		return ErrLedgerNotEligible
	}
	l.SettledAt = &at
	return nil
}

// LedgerFilter narrows ledger listings
type LedgerFilter struct {
	InstructorID *uint
	Eligible     *bool
	Settled      *bool
	Limit        int
	Offset       int
}

// InstructorSummary aggregates net amounts by lifecycle stage
type InstructorSummary struct {
	InstructorID    uint  `json:"instructor_id"`
	HeldAmount      int64 `json:"held_amount"`
	EligibleAmount  int64 `json:"eligible_amount"`
	SettledAmount   int64 `json:"settled_amount"`
	PaidAmount      int64 `json:"paid_amount"`
	CancelledAmount int64 `json:"cancelled_amount"`
	LedgerCount     int64 `json:"ledger_count"`
}
