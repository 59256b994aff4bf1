package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/course-settlement/internal/refund/domain"
)

var tracer = otel.Tracer("refund-repository")

// TracingRefundRepository wraps a RefundRepository with spans
type TracingRefundRepository struct {
	next domain.RefundRepository
}

// NewTracingRefundRepository creates a new repository with tracing
func NewTracingRefundRepository(next domain.RefundRepository) *TracingRefundRepository {
	return &TracingRefundRepository{next: next}
}

func (r *TracingRefundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	ctx, span := tracer.Start(ctx, "repository.CreateRefund",
		trace.WithAttributes(
			attribute.Int("refund.order_id", int(refund.OrderID)),
			attribute.Int64("refund.amount_cash", refund.RefundAmountCash),
			attribute.Int64("refund.amount_cookie", refund.RefundAmountCookie),
		),
	)
	defer span.End()

	if err := r.next.Create(ctx, refund); err != nil {
		recordError(span, err)
		return err
	}

	span.SetAttributes(attribute.Int("refund.id", int(refund.ID)))
	return nil
}

func (r *TracingRefundRepository) Update(ctx context.Context, refund *domain.Refund) error {
	ctx, span := tracer.Start(ctx, "repository.UpdateRefund",
		trace.WithAttributes(
			attribute.Int("refund.id", int(refund.ID)),
			attribute.String("refund.status", refund.Status),
		),
	)
	defer span.End()

	if err := r.next.Update(ctx, refund); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (r *TracingRefundRepository) FindByID(ctx context.Context, id uint) (*domain.Refund, error) {
	ctx, span := tracer.Start(ctx, "repository.FindRefund",
		trace.WithAttributes(attribute.Int("refund.id", int(id))),
	)
	defer span.End()

	refund, err := r.next.FindByID(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("refund.status", refund.Status))
	return refund, nil
}

func (r *TracingRefundRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Refund, error) {
	ctx, span := tracer.Start(ctx, "repository.FindRefundByIdempotencyKey")
	defer span.End()

	refund, err := r.next.FindByIdempotencyKey(ctx, key)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("refund.found", refund != nil))
	return refund, nil
}

func (r *TracingRefundRepository) FindActiveByOrder(ctx context.Context, orderID uint) (*domain.Refund, error) {
	ctx, span := tracer.Start(ctx, "repository.FindActiveRefund",
		trace.WithAttributes(attribute.Int("refund.order_id", int(orderID))),
	)
	defer span.End()

	refund, err := r.next.FindActiveByOrder(ctx, orderID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("refund.found", refund != nil))
	return refund, nil
}

func (r *TracingRefundRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]domain.Refund, error) {
	ctx, span := tracer.Start(ctx, "repository.ListRefunds",
		trace.WithAttributes(
			attribute.Int("refund.user_id", int(userID)),
			attribute.Int("query.limit", limit),
			attribute.Int("query.offset", offset),
		),
	)
	defer span.End()

	refunds, err := r.next.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return refunds, nil
}

func (r *TracingRefundRepository) SumProcessed(ctx context.Context, orderID uint) (int64, int64, error) {
	ctx, span := tracer.Start(ctx, "repository.SumProcessedRefunds",
		trace.WithAttributes(attribute.Int("refund.order_id", int(orderID))),
	)
	defer span.End()

	cash, cookie, err := r.next.SumProcessed(ctx, orderID)
	if err != nil {
		recordError(span, err)
		return 0, 0, err
	}
	return cash, cookie, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
