package command

import (
	"context"
	"fmt"
	"time"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/settlement/domain"
	"github.com/tair/course-settlement/internal/settlement/metrics"
	"github.com/tair/course-settlement/pkg/database"
	"github.com/tair/course-settlement/pkg/logger"
)

// CreateLedgerEntriesCommand opens ledger rows for a paid order
type CreateLedgerEntriesCommand struct {
	OrderID uint
}

// CreateLedgerEntriesResult reports what was inserted
type CreateLedgerEntriesResult struct {
	Ledgers []domain.SettlementLedger
	Created int
	Skipped int
	// Excluded counts settleable items that were no longer PAID, e.g.
	// refunded before the payment hook ran.
	Excluded int
}

// CreateLedgerEntriesHandler handles the payment-success hook
type CreateLedgerEntriesHandler struct {
	orders   orderdomain.OrderRepository
	ledgers  domain.LedgerRepository
	holds    domain.HoldRepository
	resolver domain.InstructorResolver
	tx       database.Transactor
	policy   domain.Policy
	now      func() time.Time
}

// NewCreateLedgerEntriesHandler creates a new create ledger entries handler
func NewCreateLedgerEntriesHandler(
	orders orderdomain.OrderRepository,
	ledgers domain.LedgerRepository,
	holds domain.HoldRepository,
	resolver domain.InstructorResolver,
	tx database.Transactor,
	policy domain.Policy,
) *CreateLedgerEntriesHandler {
	return &CreateLedgerEntriesHandler{
		orders:   orders,
		ledgers:  ledgers,
		holds:    holds,
		resolver: resolver,
		tx:       tx,
		policy:   policy,
		now:      time.Now,
	}
}

// Handle inserts one ledger row and one hold per settleable PAID item.
// Replays of the same order are no-ops.
func (h *CreateLedgerEntriesHandler) Handle(ctx context.Context, cmd CreateLedgerEntriesCommand) (*CreateLedgerEntriesResult, error) {
	if cmd.OrderID == 0 {
		return nil, fmt.Errorf("order_id is required")
	}

	order, err := h.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != orderdomain.StatusPaid {
		return nil, fmt.Errorf("%w: order %d is %s", domain.ErrOrderNotPaid, order.ID, order.Status)
	}

	items, err := h.orders.FindItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	now := h.now().UTC()
	result := &CreateLedgerEntriesResult{}

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, item := range items {
			if !item.Settleable() {
				continue
			}
			if item.Status != orderdomain.ItemStatusPaid {
				result.Excluded++
				continue
			}
			if item.CourseID == nil {
				return fmt.Errorf("%w: order item %d has no course", domain.ErrInstructorNotFound, item.ID)
			}

			instructorID, err := h.resolver.InstructorForCourse(ctx, *item.CourseID)
			if err != nil {
				return fmt.Errorf("order item %d: %w", item.ID, err)
			}

			shares := h.policy.Split(item.OriginalAmount)
			ledger := domain.SettlementLedger{
				InstructorID:   instructorID,
				OrderID:        order.ID,
				OrderItemID:    item.ID,
				OriginalAmount: item.OriginalAmount,
				SupplyAmount:   shares.Supply,
				FeeAmount:      shares.Fee,
				NetAmount:      shares.Net,
				Rate:           h.policy.FeeRate,
				EligibleFlag:   false,
				CreatedAt:      now,
				UpdatedAt:      now,
			}

			created, err := h.ledgers.Create(ctx, &ledger)
			if err != nil {
				return fmt.Errorf("failed to create ledger for item %d: %w", item.ID, err)
			}
			if !created {
				result.Skipped++
				continue
			}

			// Holds are keyed per item and mirror their ledger row 1:1.
			if _, err := h.holds.Create(ctx, &domain.SettlementHold{
				OrderItemID: item.ID,
				HoldUntil:   now.Add(h.policy.HoldWindow),
				Status:      domain.HoldStatusHeld,
				CreatedAt:   now,
				UpdatedAt:   now,
			}); err != nil {
				return fmt.Errorf("failed to create hold for item %d: %w", item.ID, err)
			}

			result.Ledgers = append(result.Ledgers, ledger)
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LedgersCreated.Add(float64(result.Created))
	logger.Component(ctx, "settlement-ledger").Info().
		Uint("order_id", order.ID).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("excluded", result.Excluded).
		Msg("Ledger entries created")

	return result, nil
}
