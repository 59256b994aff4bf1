package domain

import (
	"encoding/json"
	"fmt"
	"time"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
)

// Amounts is the money a refund returns on each leg
type Amounts struct {
	Cash   int64
	Cookie int64
}

// FullAmounts computes the refund of the whole order.
func FullAmounts(order *orderdomain.Order) (Amounts, error) {
	switch order.PaymentType {
	case orderdomain.PaymentTypeCash:
		return Amounts{Cash: order.PayableCash()}, nil
	case orderdomain.PaymentTypeCookie:
		return Amounts{Cookie: order.CookieSpent}, nil
	case orderdomain.PaymentTypeMixed:
		return Amounts{}, Invalid(ErrMixedRefundUnsupported, "")
	default:
		return Amounts{}, Invalid(ErrUnknownPaymentType, order.PaymentType)
	}
}

// PartialAmounts computes the refund of the selected items. Only cash orders
// can be refunded item by item.
func PartialAmounts(order *orderdomain.Order, selected []orderdomain.OrderItem) (Amounts, error) {
	switch order.PaymentType {
	case orderdomain.PaymentTypeCash:
	case orderdomain.PaymentTypeCookie:
		return Amounts{}, Invalid(ErrCookiePartialUnsupported, "")
	case orderdomain.PaymentTypeMixed:
		return Amounts{}, Invalid(ErrMixedRefundUnsupported, "")
	default:
		return Amounts{}, Invalid(ErrUnknownPaymentType, order.PaymentType)
	}

	var cash int64
	for _, item := range selected {
		cash += item.FinalAmount
	}
	return Amounts{Cash: cash}, nil
}

// SelectItems resolves ids against the order's items. Every id must belong to
// the order and still be PAID.
func SelectItems(items []orderdomain.OrderItem, ids []uint) ([]orderdomain.OrderItem, error) {
	if len(ids) == 0 {
		return nil, Invalid(ErrNoItemsSelected, "")
	}

	byID := make(map[uint]orderdomain.OrderItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	seen := make(map[uint]bool, len(ids))
	selected := make([]orderdomain.OrderItem, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		item, ok := byID[id]
		if !ok {
			return nil, Invalid(ErrItemNotInOrder, fmt.Sprintf("item %d", id))
		}
		if item.Status != orderdomain.ItemStatusPaid {
			return nil, Invalid(ErrItemNotRefundable, fmt.Sprintf("item %d is %s", id, item.Status))
		}
		selected = append(selected, item)
	}
	return selected, nil
}

// IsFullRefund compares cumulative refunded amounts with what the order
// charged on each of its legs.
func IsFullRefund(order *orderdomain.Order, refunded Amounts) bool {
	cashFull := refunded.Cash >= order.PayableCash()
	cookieFull := refunded.Cookie >= order.CookieSpent

	switch order.PaymentType {
	case orderdomain.PaymentTypeCash:
		return cashFull
	case orderdomain.PaymentTypeCookie:
		return cookieFull
	case orderdomain.PaymentTypeMixed:
		return cashFull && cookieFull
	default:
		return false
	}
}

// GatewayCancel is the part of a gateway cancel response kept on the refund
type GatewayCancel struct {
	TransactionKey string
	CanceledAt     *time.Time
}

type gatewayPayload struct {
	Cancels []struct {
		TransactionKey string `json:"transactionKey"`
		CanceledAt     string `json:"canceledAt"`
	} `json:"cancels"`
}

// ParseGatewayCancel extracts the newest cancel entry. A payload without
// cancels yields an empty result and an error; callers only log it.
func ParseGatewayCancel(raw []byte) (GatewayCancel, error) {
	var payload gatewayPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return GatewayCancel{}, fmt.Errorf("malformed gateway response: %w", err)
	}
	if len(payload.Cancels) == 0 {
		return GatewayCancel{}, fmt.Errorf("gateway response has no cancels")
	}

	last := payload.Cancels[len(payload.Cancels)-1]
	result := GatewayCancel{TransactionKey: last.TransactionKey}
	if last.CanceledAt != "" {
		at, err := time.Parse(time.RFC3339, last.CanceledAt)
		if err != nil {
			return result, fmt.Errorf("malformed canceledAt %q: %w", last.CanceledAt, err)
		}
		at = at.UTC()
		result.CanceledAt = &at
	}
	return result, nil
}
