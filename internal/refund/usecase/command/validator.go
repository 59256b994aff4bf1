package command

import (
	"context"
	"fmt"
	"time"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/refund/domain"
)

// Validator is admission control for refunds. It never writes.
type Validator struct {
	refunds domain.RefundRepository
	now     func() time.Time
}

// NewValidator creates a new refund validator
func NewValidator(refunds domain.RefundRepository) *Validator {
	return &Validator{refunds: refunds, now: time.Now}
}

// Validate fails with a *domain.ValidationError when userID does not own the
// order, the order is not PAID, the refund window has closed or another
// refund of the order is still PENDING. Admins skip only the ownership check.
func (v *Validator) Validate(ctx context.Context, userID uint, admin bool, order *orderdomain.Order) error {
	if !admin && order.UserID != userID {
		return domain.Invalid(domain.ErrNotOwner, fmt.Sprintf("order %d", order.ID))
	}
	if order.Status != orderdomain.StatusPaid {
		return domain.Invalid(domain.ErrOrderNotPaid, order.Status)
	}
	if !order.WithinRefundWindow(v.now()) {
		return domain.Invalid(domain.ErrRefundWindowExpired,
			fmt.Sprintf("refundable until %s", order.RefundableUntil.Format(time.RFC3339)))
	}

	active, err := v.refunds.FindActiveByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to check active refunds: %w", err)
	}
	if active != nil {
		return domain.Invalid(domain.ErrActiveRefundExists, fmt.Sprintf("refund %d", active.ID))
	}
	return nil
}
