package command

import (
	"context"
	"time"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/kafka"
)

// PaymentGateway cancels captured card payments. The raw response body is
// returned even when err is non-nil, if one was received.
type PaymentGateway interface {
	Refund(ctx context.Context, paymentKey string, amount int64, reason string) ([]byte, error)
}

// WalletService restores cookie credits
type WalletService interface {
	RestoreCredits(ctx context.Context, userID uint, amount int64, sourceOrderID uint, memo string) error
}

// EnrollmentService revokes access granted by a purchased item
type EnrollmentService interface {
	Revoke(ctx context.Context, userID uint, item orderdomain.OrderItem) error
}

// DailyLimitService maintains per-user daily spend aggregates
type DailyLimitService interface {
	Subtract(ctx context.Context, userID uint, date time.Time, cashAmount, cookieAmount int64) error
}

// LedgerRetirer retires the settlement ledger rows of refunded items
type LedgerRetirer interface {
	MarkIneligible(ctx context.Context, orderID uint, itemIDs []uint) error
}

// EventPublisher publishes refund lifecycle events
type EventPublisher interface {
	PublishRefundProcessed(ctx context.Context, event kafka.RefundProcessedEvent) error
}
