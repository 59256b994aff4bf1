package query

import (
	"context"
	"fmt"

	"github.com/tair/course-settlement/internal/refund/domain"
)

// ListMyRefundsQuery represents the query to list the caller's refunds
type ListMyRefundsQuery struct {
	UserID uint
	Limit  int
	Offset int
}

// ListMyRefundsHandler handles list refunds query
type ListMyRefundsHandler struct {
	refunds domain.RefundRepository
}

// NewListMyRefundsHandler creates a new list refunds handler
func NewListMyRefundsHandler(refunds domain.RefundRepository) *ListMyRefundsHandler {
	return &ListMyRefundsHandler{refunds: refunds}
}

// Handle lists newest first
func (h *ListMyRefundsHandler) Handle(ctx context.Context, q ListMyRefundsQuery) ([]domain.Refund, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	refunds, err := h.refunds.ListByUser(ctx, q.UserID, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	return refunds, nil
}
