package query

import (
	"context"
	"fmt"

	"github.com/tair/course-settlement/internal/settlement/domain"
)

// GetSummaryQuery represents the query for per-instructor totals
type GetSummaryQuery struct {
	InstructorID *uint
}

// GetSummaryHandler handles settlement summary query
type GetSummaryHandler struct {
	ledgers domain.LedgerRepository
}

// NewGetSummaryHandler creates a new summary handler
func NewGetSummaryHandler(ledgers domain.LedgerRepository) *GetSummaryHandler {
	return &GetSummaryHandler{ledgers: ledgers}
}

// Handle executes the summary query. An instructor with no rows gets a zero
// summary rather than an empty list.
func (h *GetSummaryHandler) Handle(ctx context.Context, q GetSummaryQuery) ([]domain.InstructorSummary, error) {
	summaries, err := h.ledgers.Summarize(ctx, q.InstructorID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ledgers: %w", err)
	}
	if q.InstructorID != nil && len(summaries) == 0 {
		return []domain.InstructorSummary{{InstructorID: *q.InstructorID}}, nil
	}
	return summaries, nil
}
