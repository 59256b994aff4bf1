package query

import (
	"context"
	"fmt"

	"github.com/tair/course-settlement/internal/settlement/domain"
)

// GetLedgerQuery represents the query to get one ledger row with its hold
// and payouts
type GetLedgerQuery struct {
	ID uint
}

// PaymentView is a payout with masked bank info
type PaymentView struct {
	domain.SettlementPayment
	BankInfo map[string]string `json:"bank_info,omitempty"`
}

// LedgerDetail is the audit view of one ledger row
type LedgerDetail struct {
	Ledger   *domain.SettlementLedger `json:"ledger"`
	Hold     *domain.SettlementHold   `json:"hold,omitempty"`
	Payments []PaymentView            `json:"payments"`
}

// GetLedgerHandler handles get ledger query
type GetLedgerHandler struct {
	ledgers  domain.LedgerRepository
	holds    domain.HoldRepository
	payments domain.PaymentRepository
}

// NewGetLedgerHandler creates a new get ledger handler
func NewGetLedgerHandler(ledgers domain.LedgerRepository, holds domain.HoldRepository, payments domain.PaymentRepository) *GetLedgerHandler {
	return &GetLedgerHandler{ledgers: ledgers, holds: holds, payments: payments}
}

// Handle executes the get ledger query
func (h *GetLedgerHandler) Handle(ctx context.Context, q GetLedgerQuery) (*LedgerDetail, error) {
	if q.ID == 0 {
		return nil, fmt.Errorf("id is required")
	}

	ledger, err := h.ledgers.FindByID(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	hold, err := h.holds.FindByOrderItem(ctx, ledger.OrderItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hold: %w", err)
	}

	payments, err := ListPaymentViews(ctx, h.payments, ledger.ID)
	if err != nil {
		return nil, err
	}

	return &LedgerDetail{Ledger: ledger, Hold: hold, Payments: payments}, nil
}
