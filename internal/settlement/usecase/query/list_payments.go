package query

import (
	"context"
	"fmt"

	"github.com/tair/course-settlement/internal/settlement/bankinfo"
	"github.com/tair/course-settlement/internal/settlement/domain"
)

// ListPaymentsQuery represents the query to list payouts of a ledger row
type ListPaymentsQuery struct {
	LedgerID uint
}

// ListPaymentsHandler handles list payments query
type ListPaymentsHandler struct {
	ledgers  domain.LedgerRepository
	payments domain.PaymentRepository
}

// NewListPaymentsHandler creates a new list payments handler
func NewListPaymentsHandler(ledgers domain.LedgerRepository, payments domain.PaymentRepository) *ListPaymentsHandler {
	return &ListPaymentsHandler{ledgers: ledgers, payments: payments}
}

// Handle executes the list payments query
func (h *ListPaymentsHandler) Handle(ctx context.Context, q ListPaymentsQuery) ([]PaymentView, error) {
	if q.LedgerID == 0 {
		return nil, fmt.Errorf("ledger_id is required")
	}
	if _, err := h.ledgers.FindByID(ctx, q.LedgerID); err != nil {
		return nil, err
	}
	return ListPaymentViews(ctx, h.payments, q.LedgerID)
}

// ListPaymentViews loads the payouts of a ledger row with bank info masked
func ListPaymentViews(ctx context.Context, payments domain.PaymentRepository, ledgerID uint) ([]PaymentView, error) {
	rows, err := payments.ListByLedger(ctx, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	views := make([]PaymentView, 0, len(rows))
	for _, p := range rows {
		views = append(views, PaymentView{SettlementPayment: p, BankInfo: bankinfo.Masked(p.BankInfo)})
	}
	return views, nil
}
