package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/course-settlement/internal/order/domain"
)

var tracer = otel.Tracer("order-repository")

// TracingOrderRepository wraps an OrderRepository with spans
type TracingOrderRepository struct {
	next domain.OrderRepository
}

// NewTracingOrderRepository creates a new repository with tracing
func NewTracingOrderRepository(next domain.OrderRepository) *TracingOrderRepository {
	return &TracingOrderRepository{next: next}
}

func (r *TracingOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.FindOrder",
		trace.WithAttributes(attribute.Int("order.id", int(id))),
	)
	defer span.End()

	order, err := r.next.FindByID(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.status", order.Status),
		attribute.String("order.payment_type", order.PaymentType),
	)
	return order, nil
}

func (r *TracingOrderRepository) FindItems(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	ctx, span := tracer.Start(ctx, "repository.FindOrderItems",
		trace.WithAttributes(attribute.Int("order.id", int(orderID))),
	)
	defer span.End()

	items, err := r.next.FindItems(ctx, orderID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("order.items", len(items)))
	return items, nil
}

func (r *TracingOrderRepository) FindPayment(ctx context.Context, orderID uint) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "repository.FindPayment",
		trace.WithAttributes(attribute.Int("order.id", int(orderID))),
	)
	defer span.End()

	payment, err := r.next.FindPayment(ctx, orderID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return payment, nil
}

func (r *TracingOrderRepository) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	ctx, span := tracer.Start(ctx, "repository.UpdateOrderStatus",
		trace.WithAttributes(
			attribute.Int("order.id", int(id)),
			attribute.String("order.status.from", from),
			attribute.String("order.status.to", to),
		),
	)
	defer span.End()

	if err := r.next.UpdateStatus(ctx, id, from, to); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (r *TracingOrderRepository) MarkItemRefunded(ctx context.Context, itemID uint) (bool, error) {
	ctx, span := tracer.Start(ctx, "repository.MarkItemRefunded",
		trace.WithAttributes(attribute.Int("order_item.id", int(itemID))),
	)
	defer span.End()

	changed, err := r.next.MarkItemRefunded(ctx, itemID)
	if err != nil {
		recordError(span, err)
		return false, err
	}

	span.SetAttributes(attribute.Bool("order_item.changed", changed))
	return changed, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
