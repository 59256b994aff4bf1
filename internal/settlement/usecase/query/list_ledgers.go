package query

import (
	"context"
	"fmt"

	"github.com/tair/course-settlement/internal/settlement/domain"
)

// ListLedgersQuery represents the query to list ledger rows
type ListLedgersQuery struct {
	InstructorID *uint
	Eligible     *bool
	Settled      *bool
	Limit        int
	Offset       int
}

// ListLedgersHandler handles list ledgers query
type ListLedgersHandler struct {
	ledgers domain.LedgerRepository
}

// NewListLedgersHandler creates a new list ledgers handler
func NewListLedgersHandler(ledgers domain.LedgerRepository) *ListLedgersHandler {
	return &ListLedgersHandler{ledgers: ledgers}
}

// Handle executes the list ledgers query
func (h *ListLedgersHandler) Handle(ctx context.Context, q ListLedgersQuery) ([]domain.SettlementLedger, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	ledgers, err := h.ledgers.List(ctx, domain.LedgerFilter{
		InstructorID: q.InstructorID,
		Eligible:     q.Eligible,
		Settled:      q.Settled,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}
	return ledgers, nil
}
