package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Refund statuses
const (
	StatusPending   = "PENDING"
	StatusProcessed = "PROCESSED"
	StatusRejected  = "REJECTED"
)

// Refund is one request to return money for an order, fully or for a subset
// of its items.
type Refund struct {
	ID                    uint                      `json:"id" gorm:"primaryKey"`
	OrderID               uint                      `json:"order_id" gorm:"not null;index"`
	UserID                uint                      `json:"user_id" gorm:"not null;index"`
	RequestedBy           *uint                     `json:"requested_by,omitempty"`
	PaymentID             *uint                     `json:"payment_id,omitempty"`
	Status                string                    `json:"status" gorm:"not null"`
	RefundAmountCash      int64                     `json:"refund_amount_cash"`
	RefundAmountCookie    int64                     `json:"refund_amount_cookie"`
	IdempotencyKey        string                    `json:"idempotency_key" gorm:"not null;uniqueIndex"`
	Reason                string                    `json:"reason,omitempty"`
	RejectReason          *string                   `json:"reject_reason,omitempty"`
	RawGatewayResponse    string                    `json:"-"`
	GatewayTransactionKey string                    `json:"gateway_transaction_key,omitempty"`
	GatewayCanceledAt     *time.Time                `json:"gateway_canceled_at,omitempty"`
	RefundedItemIDs       datatypes.JSONSlice[uint] `json:"refunded_item_ids,omitempty"`
	ProcessedAt           *time.Time                `json:"processed_at,omitempty"`
	CreatedAt             time.Time                 `json:"created_at"`
	UpdatedAt             time.Time                 `json:"updated_at"`
}

// Requester is the user who submitted the refund: the buyer, or an admin
// acting on the buyer's order.
func (r *Refund) Requester() uint {
	if r.RequestedBy != nil {
		return *r.RequestedBy
	}
	return r.UserID
}

// TableName specifies the table name
func (Refund) TableName() string {
	return "refunds"
}

// Partial reports whether the refund targets an explicit subset of items
func (r *Refund) Partial() bool {
	return len(r.RefundedItemIDs) > 0
}

// Terminal reports whether the refund reached PROCESSED or REJECTED
func (r *Refund) Terminal() bool {
	return r.Status == StatusProcessed || r.Status == StatusRejected
}

// Reject moves a PENDING refund to REJECTED.
func (r *Refund) Reject(reason string) error {
	if r.Status != StatusPending {
		return ErrRefundNotPending
	}
	r.Status = StatusRejected
	r.RejectReason = &reason
	return nil
}

// Process moves a PENDING refund to PROCESSED.
func (r *Refund) Process(at time.Time) error {
	if r.Status != StatusPending {
		return ErrRefundNotPending
	}
	r.Status = StatusProcessed
	r.ProcessedAt = &at
	return nil
}

// Idempotency record statuses
const (
	KeyStatusUsed   = "USED"
	KeyStatusFailed = "FAILED"
)

// IdempotencyRecord binds a client key to the refund it produced
type IdempotencyRecord struct {
	Key       string    `json:"key" gorm:"column:idempotency_key;primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null"`
	RefundID  *uint     `json:"refund_id,omitempty"`
	Status    string    `json:"status" gorm:"not null"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (IdempotencyRecord) TableName() string {
	return "refund_idempotency_keys"
}

// RefundRepository defines the contract for refund data access
type RefundRepository interface {
	// Create fails with ErrActiveRefundExists when the order already has a
	// PENDING refund and with ErrDuplicateIdempotencyKey on key reuse.
	Create(ctx context.Context, refund *Refund) error
	Update(ctx context.Context, refund *Refund) error
	FindByID(ctx context.Context, id uint) (*Refund, error)
	// FindByIdempotencyKey and FindActiveByOrder return nil when absent.
	FindByIdempotencyKey(ctx context.Context, key string) (*Refund, error)
	FindActiveByOrder(ctx context.Context, orderID uint) (*Refund, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]Refund, error)
	// SumProcessed totals the PROCESSED refunds of an order.
	SumProcessed(ctx context.Context, orderID uint) (cash, cookie int64, err error)
}

// IdempotencyRepository defines the contract for idempotency records
type IdempotencyRepository interface {
	// Find returns nil when the key was never recorded.
	Find(ctx context.Context, key string) (*IdempotencyRecord, error)
	Save(ctx context.Context, record *IdempotencyRecord) error
}
