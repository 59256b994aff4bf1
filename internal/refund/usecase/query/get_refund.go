package query

import (
	"context"

	"github.com/tair/course-settlement/internal/refund/domain"
)

// GetRefundQuery represents the query to get one refund
type GetRefundQuery struct {
	RefundID uint
	UserID   uint
	// Admin lifts the ownership check
	Admin bool
}

// GetRefundHandler handles get refund query
type GetRefundHandler struct {
	refunds domain.RefundRepository
}

// NewGetRefundHandler creates a new get refund handler
func NewGetRefundHandler(refunds domain.RefundRepository) *GetRefundHandler {
	return &GetRefundHandler{refunds: refunds}
}

// Handle returns ErrRefundNotFound for refunds the caller does not own, so
// ids of other users are not disclosed.
func (h *GetRefundHandler) Handle(ctx context.Context, q GetRefundQuery) (*domain.Refund, error) {
	refund, err := h.refunds.FindByID(ctx, q.RefundID)
	if err != nil {
		return nil, err
	}
	if !q.Admin && refund.UserID != q.UserID {
		return nil, domain.ErrRefundNotFound
	}
	return refund, nil
}
