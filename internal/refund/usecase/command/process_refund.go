package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/internal/refund/metrics"
	"github.com/tair/course-settlement/pkg/database"
	"github.com/tair/course-settlement/pkg/logger"
)

var tracer = otel.Tracer("refund-usecase")

// ProcessRefundCommand executes a PENDING refund
type ProcessRefundCommand struct {
	RefundID uint
}

// ProcessRefundHandler is the refund orchestrator. Money legs fail the whole
// refund; everything after the money has moved is best effort.
type ProcessRefundHandler struct {
	refunds domain.RefundRepository
	orders  orderdomain.OrderRepository
	gateway PaymentGateway
	wallet  WalletService
	tx      database.Transactor
	tasks   PostCommitTasks
	now     func() time.Time
}

// NewProcessRefundHandler creates a new refund orchestrator
func NewProcessRefundHandler(
	refunds domain.RefundRepository,
	orders orderdomain.OrderRepository,
	gateway PaymentGateway,
	wallet WalletService,
	tx database.Transactor,
	tasks PostCommitTasks,
) *ProcessRefundHandler {
	return &ProcessRefundHandler{
		refunds: refunds,
		orders:  orders,
		gateway: gateway,
		wallet:  wallet,
		tx:      tx,
		tasks:   tasks,
		now:     time.Now,
	}
}

// Handle runs the refund saga for cmd.RefundID
func (h *ProcessRefundHandler) Handle(ctx context.Context, cmd ProcessRefundCommand) (*domain.Refund, error) {
	ctx, span := tracer.Start(ctx, "refund.Process",
		trace.WithAttributes(attribute.Int("refund.id", int(cmd.RefundID))),
	)
	defer span.End()

	refund, err := h.process(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return refund, nil
}

func (h *ProcessRefundHandler) process(ctx context.Context, cmd ProcessRefundCommand) (*domain.Refund, error) {
	log := logger.Component(ctx, "refund-orchestrator")

	refund, err := h.refunds.FindByID(ctx, cmd.RefundID)
	if err != nil {
		return nil, err
	}
	if refund.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: refund %d is %s", domain.ErrRefundNotPending, refund.ID, refund.Status)
	}

	order, err := h.orders.FindByID(ctx, refund.OrderID)
	if err != nil {
		return nil, err
	}

	cashMoved := false
	if refund.RefundAmountCash > 0 {
		if err := h.refundCash(ctx, refund, order); err != nil {
			return nil, h.reject(ctx, refund, err)
		}
		cashMoved = true
	}

	if refund.RefundAmountCookie > 0 {
		memo := fmt.Sprintf("refund %d of order %d", refund.ID, order.ID)
		if err := h.wallet.RestoreCredits(ctx, refund.UserID, refund.RefundAmountCookie, order.ID, memo); err != nil {
			if cashMoved {
				metrics.ManualReconciliation.WithLabelValues("wallet_after_gateway").Inc()
				log.Error().
					Err(err).
					Uint("refund_id", refund.ID).
					Uint("order_id", order.ID).
					Int64("cash_refunded", refund.RefundAmountCash).
					Msg("Cash refunded but cookie restore failed, manual reconciliation required")
			}
			return nil, h.reject(ctx, refund, &domain.MoneyMovementError{Leg: domain.LegWallet, Err: err})
		}
	}

	items, err := h.targetItems(ctx, refund, order)
	if err != nil {
		h.flagMoneyMoved(ctx, refund, err)
		return nil, err
	}

	var full bool
	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		prevCash, prevCookie, err := h.refunds.SumProcessed(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to sum processed refunds: %w", err)
		}
		full = domain.IsFullRefund(order, domain.Amounts{
			Cash:   prevCash + refund.RefundAmountCash,
			Cookie: prevCookie + refund.RefundAmountCookie,
		})

		if full {
			if err := order.MarkRefunded(); err != nil {
				return err
			}
			if err := h.orders.UpdateStatus(ctx, order.ID, orderdomain.StatusPaid, orderdomain.StatusRefunded); err != nil {
				return err
			}
		}

		if err := refund.Process(h.now().UTC()); err != nil {
			return err
		}
		return h.refunds.Update(ctx, refund)
	})
	if err != nil {
		h.flagMoneyMoved(ctx, refund, err)
		return nil, err
	}

	h.markItems(ctx, refund, items)

	metrics.RefundOutcomes.WithLabelValues("processed").Inc()
	metrics.RefundedAmount.WithLabelValues("cash").Add(float64(refund.RefundAmountCash))
	metrics.RefundedAmount.WithLabelValues("cookie").Add(float64(refund.RefundAmountCookie))
	log.Info().
		Uint("refund_id", refund.ID).
		Uint("order_id", order.ID).
		Int64("cash", refund.RefundAmountCash).
		Int64("cookie", refund.RefundAmountCookie).
		Bool("full", full).
		Msg("Refund processed")

	h.tasks.Run(ctx, RefundOutcome{Refund: refund, Order: order, Items: items, Full: full})

	return refund, nil
}

// refundCash calls the gateway and keeps its raw answer on the refund
// whether or not it parses.
func (h *ProcessRefundHandler) refundCash(ctx context.Context, refund *domain.Refund, order *orderdomain.Order) error {
	payment, err := h.orders.FindPayment(ctx, order.ID)
	if err != nil {
		return err
	}

	raw, err := h.gateway.Refund(ctx, payment.PaymentKey, refund.RefundAmountCash, refund.Reason)
	if raw != nil {
		refund.RawGatewayResponse = string(raw)
	}
	if err != nil {
		return &domain.MoneyMovementError{Leg: domain.LegGateway, Err: err}
	}

	cancel, err := domain.ParseGatewayCancel(raw)
	if err != nil {
		metrics.GatewayParseFailures.Inc()
		logger.Warn(ctx).
			Err(err).
			Uint("refund_id", refund.ID).
			Msg("Gateway response not parsed, raw payload kept")
	}
	refund.GatewayTransactionKey = cancel.TransactionKey
	refund.GatewayCanceledAt = cancel.CanceledAt
	return nil
}

// reject persists the REJECTED state and returns cause for the caller.
func (h *ProcessRefundHandler) reject(ctx context.Context, refund *domain.Refund, cause error) error {
	metrics.RefundOutcomes.WithLabelValues("rejected").Inc()

	if err := refund.Reject(cause.Error()); err != nil {
		return errors.Join(cause, err)
	}
	if err := h.refunds.Update(ctx, refund); err != nil {
		logger.Component(ctx, "refund-orchestrator").Error().
			Err(err).
			Uint("refund_id", refund.ID).
			Msg("Failed to persist rejected refund")
	}

	logger.Component(ctx, "refund-orchestrator").Warn().
		Err(cause).
		Uint("refund_id", refund.ID).
		Uint("order_id", refund.OrderID).
		Msg("Refund rejected")
	return cause
}

// flagMoneyMoved reports a failure after the money legs completed. The
// refund stays PENDING so the order cannot be refunded twice.
func (h *ProcessRefundHandler) flagMoneyMoved(ctx context.Context, refund *domain.Refund, err error) {
	metrics.RefundOutcomes.WithLabelValues("failed_after_money").Inc()
	if refund.RefundAmountCash == 0 && refund.RefundAmountCookie == 0 {
		return
	}
	metrics.ManualReconciliation.WithLabelValues("state_after_money").Inc()
	logger.Component(ctx, "refund-orchestrator").Error().
		Err(err).
		Uint("refund_id", refund.ID).
		Uint("order_id", refund.OrderID).
		Msg("Money refunded but refund state not saved, manual reconciliation required")
}

func (h *ProcessRefundHandler) targetItems(ctx context.Context, refund *domain.Refund, order *orderdomain.Order) ([]orderdomain.OrderItem, error) {
	items, err := h.orders.FindItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	if !refund.Partial() {
		return items, nil
	}

	wanted := make(map[uint]bool, len(refund.RefundedItemIDs))
	for _, id := range refund.RefundedItemIDs {
		wanted[id] = true
	}
	targets := make([]orderdomain.OrderItem, 0, len(wanted))
	for _, item := range items {
		if wanted[item.ID] {
			targets = append(targets, item)
		}
	}
	return targets, nil
}

// markItems commits each item on its own; an item already REFUNDED is left
// alone.
func (h *ProcessRefundHandler) markItems(ctx context.Context, refund *domain.Refund, items []orderdomain.OrderItem) {
	for i := range items {
		changed, err := h.orders.MarkItemRefunded(ctx, items[i].ID)
		if err != nil {
			metrics.ItemTransitionFailures.Inc()
			logger.Component(ctx, "refund-orchestrator").Error().
				Err(err).
				Uint("refund_id", refund.ID).
				Uint("order_item_id", items[i].ID).
				Msg("Failed to mark order item refunded")
			continue
		}
		if changed {
			items[i].Status = orderdomain.ItemStatusRefunded
		}
	}
}
