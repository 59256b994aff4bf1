package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/internal/refund/metrics"
	"github.com/tair/course-settlement/kafka"
	"github.com/tair/course-settlement/pkg/logger"
)

// RefundOutcome is what follow-up tasks see of a processed refund
type RefundOutcome struct {
	Refund *domain.Refund
	Order  *orderdomain.Order
	Items  []orderdomain.OrderItem
	Full   bool
}

// ItemIDs lists the refunded items
func (o RefundOutcome) ItemIDs() []uint {
	ids := make([]uint, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// PostCommitTask is one best-effort step run after a refund is processed
type PostCommitTask struct {
	Name string
	Run  func(ctx context.Context, outcome RefundOutcome) error
}

// PostCommitTasks is the ordered task list of the orchestrator
type PostCommitTasks []PostCommitTask

// NewPostCommitTasks builds the standard follow-ups. Nil collaborators are
// skipped.
func NewPostCommitTasks(enrollment EnrollmentService, dailyLimit DailyLimitService, ledgers LedgerRetirer, publisher EventPublisher) PostCommitTasks {
	var tasks PostCommitTasks

	if enrollment != nil {
		tasks = append(tasks, PostCommitTask{Name: "enrollment_revoke", Run: func(ctx context.Context, o RefundOutcome) error {
			var errs []error
			for _, item := range o.Items {
				if err := enrollment.Revoke(ctx, o.Refund.UserID, item); err != nil {
					errs = append(errs, fmt.Errorf("item %d: %w", item.ID, err))
				}
			}
			return errors.Join(errs...)
		}})
	}

	if dailyLimit != nil {
		tasks = append(tasks, PostCommitTask{Name: "daily_limit_subtract", Run: func(ctx context.Context, o RefundOutcome) error {
			return dailyLimit.Subtract(ctx, o.Refund.UserID, o.Order.OrderedAt, o.Refund.RefundAmountCash, o.Refund.RefundAmountCookie)
		}})
	}

	if ledgers != nil {
		tasks = append(tasks, PostCommitTask{Name: "ledger_mark_ineligible", Run: func(ctx context.Context, o RefundOutcome) error {
			return ledgers.MarkIneligible(ctx, o.Order.ID, o.ItemIDs())
		}})
	}

	if publisher != nil {
		tasks = append(tasks, PostCommitTask{Name: "publish_refund_processed", Run: func(ctx context.Context, o RefundOutcome) error {
			processedAt := *o.Refund.ProcessedAt
			return publisher.PublishRefundProcessed(ctx, kafka.RefundProcessedEvent{
				EventID:      uuid.NewString(),
				RefundID:     o.Refund.ID,
				OrderID:      o.Order.ID,
				UserID:       o.Refund.UserID,
				CashAmount:   o.Refund.RefundAmountCash,
				CookieAmount: o.Refund.RefundAmountCookie,
				ItemIDs:      o.ItemIDs(),
				FullRefund:   o.Full,
				ProcessedAt:  processedAt,
			})
		}})
	}

	return tasks
}

// Run executes every task. A failing or panicking task is logged and
// counted and never stops the others.
func (tasks PostCommitTasks) Run(ctx context.Context, outcome RefundOutcome) {
	for _, task := range tasks {
		runTask(ctx, task, outcome)
	}
}

func runTask(ctx context.Context, task PostCommitTask, outcome RefundOutcome) {
	log := logger.Component(ctx, "refund-post-commit")

	defer func() {
		if r := recover(); r != nil {
			metrics.PostCommitFailures.WithLabelValues(task.Name).Inc()
			log.Error().
				Str("task", task.Name).
				Uint("refund_id", outcome.Refund.ID).
				Uint("order_id", outcome.Order.ID).
				Interface("panic", r).
				Msg("Post-commit task panicked")
		}
	}()

	if err := task.Run(ctx, outcome); err != nil {
		metrics.PostCommitFailures.WithLabelValues(task.Name).Inc()
		log.Error().
			Err(err).
			Str("task", task.Name).
			Uint("refund_id", outcome.Refund.ID).
			Uint("order_id", outcome.Order.ID).
			Msg("Post-commit task failed")
	}
}
