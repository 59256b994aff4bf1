package repository

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/course-settlement/internal/settlement/domain"
)

var tracer = otel.Tracer("settlement-repository")

// TracingLedgerRepository wraps a LedgerRepository with spans
type TracingLedgerRepository struct {
	next domain.LedgerRepository
}

// NewTracingLedgerRepository creates a new repository with tracing
func NewTracingLedgerRepository(next domain.LedgerRepository) *TracingLedgerRepository {
	return &TracingLedgerRepository{next: next}
}

func (r *TracingLedgerRepository) Create(ctx context.Context, ledger *domain.SettlementLedger) (bool, error) {
	ctx, span := tracer.Start(ctx, "repository.CreateLedger",
		trace.WithAttributes(
			attribute.Int("ledger.instructor_id", int(ledger.InstructorID)),
			attribute.Int("ledger.order_item_id", int(ledger.OrderItemID)),
			attribute.Int64("ledger.net_amount", ledger.NetAmount),
		),
	)
	defer span.End()

	created, err := r.next.Create(ctx, ledger)
	if err != nil {
		recordError(span, err)
		return false, err
	}

	span.SetAttributes(attribute.Bool("ledger.created", created), attribute.Int("ledger.id", int(ledger.ID)))
	return created, nil
}

func (r *TracingLedgerRepository) FindByID(ctx context.Context, id uint) (*domain.SettlementLedger, error) {
	ctx, span := tracer.Start(ctx, "repository.FindLedger",
		trace.WithAttributes(attribute.Int("ledger.id", int(id))),
	)
	defer span.End()

	ledger, err := r.next.FindByID(ctx, id)
	if err != nil {
		recordError(span, err)
	}
	return ledger, err
}

func (r *TracingLedgerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*domain.SettlementLedger, error) {
	ctx, span := tracer.Start(ctx, "repository.FindLedgerForUpdate",
		trace.WithAttributes(attribute.Int("ledger.id", int(id))),
	)
	defer span.End()

	ledger, err := r.next.FindByIDForUpdate(ctx, id)
	if err != nil {
		recordError(span, err)
	}
	return ledger, err
}

func (r *TracingLedgerRepository) FindByOrderForUpdate(ctx context.Context, orderID uint, itemIDs []uint) ([]domain.SettlementLedger, error) {
	ctx, span := tracer.Start(ctx, "repository.FindLedgersByOrder",
		trace.WithAttributes(
			attribute.Int("order.id", int(orderID)),
			attribute.Int("order.item_count", len(itemIDs)),
		),
	)
	defer span.End()

	ledgers, err := r.next.FindByOrderForUpdate(ctx, orderID, itemIDs)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("ledger.count", len(ledgers)))
	return ledgers, nil
}

func (r *TracingLedgerRepository) FindDueForRelease(ctx context.Context, cutoff time.Time, limit int) ([]domain.SettlementLedger, error) {
	ctx, span := tracer.Start(ctx, "repository.FindDueForRelease",
		trace.WithAttributes(
			attribute.String("sweep.cutoff", cutoff.Format(time.RFC3339)),
			attribute.Int("sweep.limit", limit),
		),
	)
	defer span.End()

	ledgers, err := r.next.FindDueForRelease(ctx, cutoff, limit)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("ledger.count", len(ledgers)))
	return ledgers, nil
}

func (r *TracingLedgerRepository) Promote(ctx context.Context, id uint, cutoff time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "repository.PromoteLedger",
		trace.WithAttributes(attribute.Int("ledger.id", int(id))),
	)
	defer span.End()

	promoted, err := r.next.Promote(ctx, id, cutoff)
	if err != nil {
		recordError(span, err)
		return false, err
	}

	span.SetAttributes(attribute.Bool("ledger.promoted", promoted))
	return promoted, nil
}

func (r *TracingLedgerRepository) Retire(ctx context.Context, ids []uint, reason string) error {
	ctx, span := tracer.Start(ctx, "repository.RetireLedgers",
		trace.WithAttributes(
			attribute.Int("ledger.count", len(ids)),
			attribute.String("ledger.ineligible_reason", reason),
		),
	)
	defer span.End()

	if err := r.next.Retire(ctx, ids, reason); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (r *TracingLedgerRepository) FindSettleableForUpdate(ctx context.Context, instructorID *uint) ([]domain.SettlementLedger, error) {
	ctx, span := tracer.Start(ctx, "repository.FindSettleable")
	defer span.End()

	if instructorID != nil {
		span.SetAttributes(attribute.Int("ledger.instructor_id", int(*instructorID)))
	}

	ledgers, err := r.next.FindSettleableForUpdate(ctx, instructorID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("ledger.count", len(ledgers)))
	return ledgers, nil
}

func (r *TracingLedgerRepository) MarkSettled(ctx context.Context, ids []uint, at time.Time) error {
	ctx, span := tracer.Start(ctx, "repository.MarkSettled",
		trace.WithAttributes(attribute.Int("ledger.count", len(ids))),
	)
	defer span.End()

	if err := r.next.MarkSettled(ctx, ids, at); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (r *TracingLedgerRepository) List(ctx context.Context, filter domain.LedgerFilter) ([]domain.SettlementLedger, error) {
	ctx, span := tracer.Start(ctx, "repository.ListLedgers",
		trace.WithAttributes(
			attribute.Int("query.limit", filter.Limit),
			attribute.Int("query.offset", filter.Offset),
		),
	)
	defer span.End()

	ledgers, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return ledgers, nil
}

func (r *TracingLedgerRepository) Summarize(ctx context.Context, instructorID *uint) ([]domain.InstructorSummary, error) {
	ctx, span := tracer.Start(ctx, "repository.SummarizeLedgers")
	defer span.End()

	summaries, err := r.next.Summarize(ctx, instructorID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return summaries, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
