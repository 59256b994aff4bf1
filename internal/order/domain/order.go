package domain

import (
	"context"
	"errors"
	"time"
)

// Order statuses
const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusCancelled = "CANCELLED"
	StatusRefunded  = "REFUNDED"
	StatusFailed    = "FAILED"
)

// Payment types
const (
	PaymentTypeCash   = "CASH"
	PaymentTypeCookie = "COOKIE"
	PaymentTypeMixed  = "MIXED"
)

// Item types
const (
	ItemTypeCourse       = "COURSE"
	ItemTypeSection      = "SECTION"
	ItemTypeCookieBundle = "COOKIE_BUNDLE"
)

// Item statuses
const (
	ItemStatusPending   = "PENDING"
	ItemStatusPaid      = "PAID"
	ItemStatusRefunded  = "REFUNDED"
	ItemStatusCancelled = "CANCELLED"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Order is a purchase created by checkout. This service only reads it and
// moves it to REFUNDED.
type Order struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	UserID              uint      `json:"user_id" gorm:"not null;index"`
	Status              string    `json:"status" gorm:"not null"`
	PaymentType         string    `json:"payment_type" gorm:"not null"`
	TotalAmount         int64     `json:"total_amount"`
	CookieSpent         int64     `json:"cookie_spent"`
	TotalDiscountAmount int64     `json:"total_discount_amount"`
	RefundableUntil     time.Time `json:"refundable_until"`
	OrderedAt           time.Time `json:"ordered_at"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

// PayableCash is the cash actually charged: list total minus discounts.
func (o *Order) PayableCash() int64 {
	return o.TotalAmount - o.TotalDiscountAmount
}

// WithinRefundWindow reports whether now is strictly before RefundableUntil.
func (o *Order) WithinRefundWindow(now time.Time) bool {
	return now.Before(o.RefundableUntil)
}

// MarkRefunded moves a PAID order to REFUNDED.
func (o *Order) MarkRefunded() error {
	if o.Status != StatusPaid {
		return ErrInvalidTransition
	}
	o.Status = StatusRefunded
	return nil
}

// OrderItem is one purchased line of an order
type OrderItem struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrderID        uint      `json:"order_id" gorm:"not null;index"`
	ItemType       string    `json:"item_type" gorm:"not null"`
	CourseID       *uint     `json:"course_id,omitempty"`
	SectionID      *uint     `json:"section_id,omitempty"`
	OriginalAmount int64     `json:"original_amount"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalAmount    int64     `json:"final_amount"`
	Status         string    `json:"status" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (OrderItem) TableName() string {
	return "order_items"
}

// Settleable reports whether the item earns an instructor share.
func (i *OrderItem) Settleable() bool {
	return i.ItemType == ItemTypeCourse || i.ItemType == ItemTypeSection
}

// Payment is the gateway charge backing a cash order
type Payment struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	OrderID    uint       `json:"order_id" gorm:"not null;index"`
	PaymentKey string     `json:"payment_key" gorm:"not null;uniqueIndex"`
	Method     string     `json:"method"`
	Amount     int64      `json:"amount"`
	Status     string     `json:"status"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName specifies the table name
func (Payment) TableName() string {
	return "payments"
}

// OrderRepository defines the contract for order data access
type OrderRepository interface {
	FindByID(ctx context.Context, id uint) (*Order, error)
	FindItems(ctx context.Context, orderID uint) ([]OrderItem, error)
	FindPayment(ctx context.Context, orderID uint) (*Payment, error)
	UpdateStatus(ctx context.Context, id uint, from, to string) error
	// MarkItemRefunded moves a PAID item to REFUNDED and returns false when
	// the item was in any other state.
	MarkItemRefunded(ctx context.Context, itemID uint) (bool, error)
}
