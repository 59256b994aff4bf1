package domain

import "time"

// Hold statuses
const (
	HoldStatusHeld      = "HELD"
	HoldStatusReleased  = "RELEASED"
	HoldStatusCancelled = "CANCELLED"
)

// SettlementHold is the refund-safety timer of one order item
type SettlementHold struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OrderItemID uint      `json:"order_item_id" gorm:"not null;uniqueIndex"`
	HoldUntil   time.Time `json:"hold_until"`
	Status      string    `json:"status" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (SettlementHold) TableName() string {
	return "settlement_holds"
}

var holdTransitions = map[string][]string{
	HoldStatusHeld: {HoldStatusReleased, HoldStatusCancelled},
}

// CanTransition reports whether a hold may move from one status to another
func CanTransition(from, to string) bool {
	for _, allowed := range holdTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
