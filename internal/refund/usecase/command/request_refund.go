package command

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/internal/refund/idempotency"
	"github.com/tair/course-settlement/pkg/logger"
)

// RequestRefundCommand asks for a refund of an order. Empty ItemIDs refunds
// the whole order. UserID is the requester; with Admin set it may differ
// from the buyer, who still receives the refund.
type RequestRefundCommand struct {
	UserID         uint
	Admin          bool
	OrderID        uint
	ItemIDs        []uint
	IdempotencyKey string
	Reason         string
}

// RequestRefundHandler admits a refund request and runs it to completion
type RequestRefundHandler struct {
	guard     *idempotency.Guard
	validator *Validator
	orders    orderdomain.OrderRepository
	refunds   domain.RefundRepository
	processor *ProcessRefundHandler
}

// NewRequestRefundHandler creates a new request refund handler
func NewRequestRefundHandler(
	guard *idempotency.Guard,
	validator *Validator,
	orders orderdomain.OrderRepository,
	refunds domain.RefundRepository,
	processor *ProcessRefundHandler,
) *RequestRefundHandler {
	return &RequestRefundHandler{
		guard:     guard,
		validator: validator,
		orders:    orders,
		refunds:   refunds,
		processor: processor,
	}
}

// Handle returns the PROCESSED refund. Replaying a key that already produced
// a processed refund returns that refund without side effects.
func (h *RequestRefundHandler) Handle(ctx context.Context, cmd RequestRefundCommand) (*domain.Refund, error) {
	ctx, span := tracer.Start(ctx, "refund.Request",
		trace.WithAttributes(
			attribute.Int("order.id", int(cmd.OrderID)),
			attribute.Int("user.id", int(cmd.UserID)),
			attribute.Bool("refund.admin", cmd.Admin),
			attribute.Bool("refund.partial", len(cmd.ItemIDs) > 0),
		),
	)
	defer span.End()

	refund, err := h.handle(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("refund.id", int(refund.ID)))
	return refund, nil
}

func (h *RequestRefundHandler) handle(ctx context.Context, cmd RequestRefundCommand) (*domain.Refund, error) {
	if existing, err := h.guard.CheckDuplicate(ctx, cmd.UserID, cmd.IdempotencyKey); err != nil || existing != nil {
		return existing, err
	}

	release, err := h.guard.Acquire(ctx, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	defer release()

	// another request may have finished between the check and the lock
	if existing, err := h.guard.CheckDuplicate(ctx, cmd.UserID, cmd.IdempotencyKey); err != nil || existing != nil {
		return existing, err
	}

	refund, err := h.admit(ctx, cmd)
	if err != nil {
		return nil, err
	}

	processed, err := h.processor.Handle(ctx, ProcessRefundCommand{RefundID: refund.ID})
	if err != nil {
		h.guard.MarkFailed(ctx, cmd.UserID, cmd.IdempotencyKey, &refund.ID, err.Error())
		return nil, err
	}

	h.guard.MarkUsed(ctx, cmd.UserID, cmd.IdempotencyKey, processed.ID)
	return processed, nil
}

// admit validates the request and persists the PENDING refund.
func (h *RequestRefundHandler) admit(ctx context.Context, cmd RequestRefundCommand) (*domain.Refund, error) {
	order, err := h.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if err := h.validator.Validate(ctx, cmd.UserID, cmd.Admin, order); err != nil {
		return nil, err
	}

	var (
		amounts domain.Amounts
		itemIDs datatypes.JSONSlice[uint]
	)
	if len(cmd.ItemIDs) == 0 {
		amounts, err = domain.FullAmounts(order)
		if err != nil {
			return nil, err
		}
	} else {
		items, err := h.orders.FindItems(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load order items: %w", err)
		}
		selected, err := domain.SelectItems(items, cmd.ItemIDs)
		if err != nil {
			return nil, err
		}
		amounts, err = domain.PartialAmounts(order, selected)
		if err != nil {
			return nil, err
		}
		for _, item := range selected {
			itemIDs = append(itemIDs, item.ID)
		}
	}

	requestedBy := cmd.UserID
	refund := &domain.Refund{
		OrderID:            order.ID,
		UserID:             order.UserID,
		RequestedBy:        &requestedBy,
		Status:             domain.StatusPending,
		RefundAmountCash:   amounts.Cash,
		RefundAmountCookie: amounts.Cookie,
		IdempotencyKey:     cmd.IdempotencyKey,
		Reason:             cmd.Reason,
		RefundedItemIDs:    itemIDs,
	}

	if amounts.Cash > 0 {
		payment, err := h.orders.FindPayment(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		refund.PaymentID = &payment.ID
	}

	if err := h.refunds.Create(ctx, refund); err != nil {
		switch {
		case errors.Is(err, domain.ErrActiveRefundExists):
			return nil, domain.Invalid(domain.ErrActiveRefundExists, fmt.Sprintf("order %d", order.ID))
		case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
			return nil, domain.Invalid(domain.ErrRefundInProgress, "")
		default:
			return nil, err
		}
	}

	logger.Component(ctx, "refund-request").Info().
		Uint("refund_id", refund.ID).
		Uint("order_id", order.ID).
		Uint("user_id", order.UserID).
		Uint("requested_by", cmd.UserID).
		Int64("cash", amounts.Cash).
		Int64("cookie", amounts.Cookie).
		Int("items", len(itemIDs)).
		Msg("Refund admitted")

	return refund, nil
}
