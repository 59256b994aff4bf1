package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tair/course-settlement/internal/settlement/bankinfo"
	"github.com/tair/course-settlement/internal/settlement/domain"
	"github.com/tair/course-settlement/internal/settlement/metrics"
	"github.com/tair/course-settlement/pkg/database"
	"github.com/tair/course-settlement/pkg/logger"
)

// ExecutePaymentCommand pays out one settled ledger row
type ExecutePaymentCommand struct {
	LedgerID           uint
	Method             string
	BankInfo           *domain.BankAccount
	Notes              string
	ConfirmationNumber string
}

// ExecutePaymentHandler handles payouts
type ExecutePaymentHandler struct {
	ledgers  domain.LedgerRepository
	payments domain.PaymentRepository
	sealer   *bankinfo.Sealer
	tx       database.Transactor
	now      func() time.Time
}

// NewExecutePaymentHandler creates a new execute payment handler
func NewExecutePaymentHandler(ledgers domain.LedgerRepository, payments domain.PaymentRepository, sealer *bankinfo.Sealer, tx database.Transactor) *ExecutePaymentHandler {
	return &ExecutePaymentHandler{
		ledgers:  ledgers,
		payments: payments,
		sealer:   sealer,
		tx:       tx,
		now:      time.Now,
	}
}

// Handle records a PENDING payment for the ledger's net amount and completes
// it in the same transaction.
// TODO: gate completion on the bank transfer callback once the payout
// provider integration exists.
func (h *ExecutePaymentHandler) Handle(ctx context.Context, cmd ExecutePaymentCommand) (*domain.SettlementPayment, error) {
	if cmd.LedgerID == 0 {
		return nil, fmt.Errorf("ledger_id is required")
	}
	switch cmd.Method {
	case domain.PaymentMethodBankTransfer, domain.PaymentMethodManual:
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPayoutMethod, cmd.Method)
	}

	var payment *domain.SettlementPayment
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		ledger, err := h.ledgers.FindByIDForUpdate(ctx, cmd.LedgerID)
		if err != nil {
			return err
		}
		if !ledger.Settled() {
			return domain.ErrLedgerNotSettled
		}

		completed, err := h.payments.HasCompleted(ctx, ledger.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing payments: %w", err)
		}
		if completed {
			return domain.ErrPaymentAlreadyCompleted
		}

		sealed, err := h.sealer.Seal(cmd.BankInfo)
		if err != nil {
			return err
		}

		payment = &domain.SettlementPayment{
			SettlementLedgerID: ledger.ID,
			Amount:             ledger.NetAmount,
			Method:             cmd.Method,
			BankInfo:           sealed,
			Notes:              cmd.Notes,
			Status:             domain.PaymentStatusPending,
		}
		if err := h.payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		confirmation := cmd.ConfirmationNumber
		if confirmation == "" {
			confirmation = "STL-" + strings.ToUpper(uuid.New().String()[:12])
		}
		if err := payment.Complete(confirmation, h.now().UTC()); err != nil {
			return err
		}
		return h.payments.Update(ctx, payment)
	})
	if err != nil {
		metrics.Payouts.WithLabelValues("rejected").Inc()
		return nil, err
	}

	metrics.Payouts.WithLabelValues("completed").Inc()
	logger.Component(ctx, "settlement-payout").Info().
		Uint("ledger_id", cmd.LedgerID).
		Uint("payment_id", payment.ID).
		Int64("amount", payment.Amount).
		Str("confirmation_number", payment.ConfirmationNumber).
		Msg("Settlement payment completed")

	return payment, nil
}
