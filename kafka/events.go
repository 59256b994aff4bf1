package kafka

import "time"

// OrderPaidEvent is emitted by checkout when an order reaches PAID
type OrderPaidEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	OrderID   uint      `json:"order_id"`
	UserID    uint      `json:"user_id"`
	PaidAt    time.Time `json:"paid_at"`
	Timestamp time.Time `json:"timestamp"`
}

// RefundProcessedEvent is emitted once a refund reached PROCESSED
type RefundProcessedEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	RefundID     uint      `json:"refund_id"`
	OrderID      uint      `json:"order_id"`
	UserID       uint      `json:"user_id"`
	CashAmount   int64     `json:"cash_amount"`
	CookieAmount int64     `json:"cookie_amount"`
	ItemIDs      []uint    `json:"item_ids"`
	FullRefund   bool      `json:"full_refund"`
	ProcessedAt  time.Time `json:"processed_at"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeOrderPaid       = "order.paid"
	EventTypeRefundProcessed = "refund.processed"
)

// Kafka topics
const (
	TopicOrderPaid       = "order-paid"
	TopicRefundProcessed = "refund-processed"
)
