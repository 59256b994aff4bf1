package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRefundNotFound          = errors.New("refund not found")
	ErrRefundNotPending        = errors.New("refund is not pending")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

	ErrNotOwner                 = errors.New("requester does not own the order")
	ErrOrderNotPaid             = errors.New("order is not paid")
	ErrRefundWindowExpired      = errors.New("refund window has expired")
	ErrActiveRefundExists       = errors.New("a refund is already in progress for this order")
	ErrIdempotencyKeyRequired   = errors.New("idempotency key is required")
	ErrIdempotencyKeyFailed     = errors.New("idempotency key belongs to a failed refund")
	ErrIdempotencyKeyConflict   = errors.New("idempotency key belongs to another user")
	ErrRefundInProgress         = errors.New("a request with this idempotency key is in progress")
	ErrMixedRefundUnsupported   = errors.New("refunds of mixed cash and cookie orders are not supported")
	ErrCookiePartialUnsupported = errors.New("partial refunds of cookie orders are not supported")
	ErrNoItemsSelected          = errors.New("no items selected")
	ErrItemNotInOrder           = errors.New("item does not belong to the order")
	ErrItemNotRefundable        = errors.New("item is not refundable")
	ErrUnknownPaymentType       = errors.New("unknown payment type")
)

// ValidationError is an admission failure. Nothing was written when one is
// returned.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid wraps err as a ValidationError
func Invalid(err error, detail string) *ValidationError {
	return &ValidationError{Err: err, Detail: detail}
}

// Money legs
const (
	LegGateway = "gateway"
	LegWallet  = "wallet"
)

// MoneyMovementError is a failed gateway or wallet call. The refund that
// triggered it has been rejected.
type MoneyMovementError struct {
	Leg string
	Err error
}

func (e *MoneyMovementError) Error() string {
	return fmt.Sprintf("%s refund failed: %v", e.Leg, e.Err)
}

func (e *MoneyMovementError) Unwrap() error {
	return e.Err
}
