package domain

import (
	"context"
	"time"
)

// LedgerRepository defines the contract for ledger data access. Methods
// suffixed ForUpdate take row locks and must run inside a transaction.
type LedgerRepository interface {
	// Create inserts the row unless one already exists for the same
	// instructor and item; it reports whether a row was inserted.
	Create(ctx context.Context, ledger *SettlementLedger) (bool, error)
	FindByID(ctx context.Context, id uint) (*SettlementLedger, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*SettlementLedger, error)
	FindByOrderForUpdate(ctx context.Context, orderID uint, itemIDs []uint) ([]SettlementLedger, error)
	FindDueForRelease(ctx context.Context, cutoff time.Time, limit int) ([]SettlementLedger, error)
	// Promote flips eligibleFlag only if the row is still due at cutoff.
	Promote(ctx context.Context, id uint, cutoff time.Time) (bool, error)
	Retire(ctx context.Context, ids []uint, reason string) error
	FindSettleableForUpdate(ctx context.Context, instructorID *uint) ([]SettlementLedger, error)
	MarkSettled(ctx context.Context, ids []uint, at time.Time) error
	List(ctx context.Context, filter LedgerFilter) ([]SettlementLedger, error)
	Summarize(ctx context.Context, instructorID *uint) ([]InstructorSummary, error)
}

// HoldRepository defines the contract for hold data access
type HoldRepository interface {
	// Create is a no-op when a hold already exists for the item.
	Create(ctx context.Context, hold *SettlementHold) (bool, error)
	// FindByOrderItem returns nil without error when the item has no hold.
	FindByOrderItem(ctx context.Context, orderItemID uint) (*SettlementHold, error)
	// Transition moves the item's hold from one status to another and
	// reports false when the hold was not in status from.
	Transition(ctx context.Context, orderItemID uint, from, to string) (bool, error)
}

// PaymentRepository defines the contract for payout data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *SettlementPayment) error
	Update(ctx context.Context, payment *SettlementPayment) error
	HasCompleted(ctx context.Context, ledgerID uint) (bool, error)
	ListByLedger(ctx context.Context, ledgerID uint) ([]SettlementPayment, error)
}

// InstructorResolver attributes a course to the instructor of its first lecture
type InstructorResolver interface {
	InstructorForCourse(ctx context.Context, courseID uint) (uint, error)
}
