package domain

import "errors"

var (
	ErrLedgerNotFound          = errors.New("settlement ledger not found")
	ErrLedgerAlreadySettled    = errors.New("settlement ledger already settled")
	ErrLedgerNotSettled        = errors.New("settlement ledger not settled")
	ErrLedgerNotEligible       = errors.New("settlement ledger not eligible")
	ErrLedgerNotDue            = errors.New("settlement ledger not due for release")
	ErrInvalidHoldTransition   = errors.New("invalid settlement hold transition")
	ErrPaymentAlreadyCompleted = errors.New("settlement payment already completed")
	ErrPaymentNotPending       = errors.New("settlement payment not pending")
	ErrInstructorNotFound      = errors.New("instructor not found for course")
	ErrOrderNotPaid            = errors.New("order is not paid")
	ErrInvalidPayoutMethod     = errors.New("invalid payout method")
)
