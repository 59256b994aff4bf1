package command

import (
	"context"
	"fmt"

	"github.com/tair/course-settlement/internal/settlement/domain"
	"github.com/tair/course-settlement/internal/settlement/metrics"
	"github.com/tair/course-settlement/pkg/database"
	"github.com/tair/course-settlement/pkg/logger"
)

// MarkIneligibleCommand retires the ledger rows of refunded items. An empty
// ItemIDs targets every row of the order.
type MarkIneligibleCommand struct {
	OrderID uint
	ItemIDs []uint
	Reason  string
}

// MarkIneligibleHandler handles ledger retirement on refund
type MarkIneligibleHandler struct {
	ledgers domain.LedgerRepository
	holds   domain.HoldRepository
	tx      database.Transactor
}

// NewMarkIneligibleHandler creates a new mark ineligible handler
func NewMarkIneligibleHandler(ledgers domain.LedgerRepository, holds domain.HoldRepository, tx database.Transactor) *MarkIneligibleHandler {
	return &MarkIneligibleHandler{ledgers: ledgers, holds: holds, tx: tx}
}

// Handle fails with ErrLedgerAlreadySettled, changing nothing, if any
// targeted row is settled. Returns the number of rows retired.
func (h *MarkIneligibleHandler) Handle(ctx context.Context, cmd MarkIneligibleCommand) (int, error) {
	if cmd.OrderID == 0 {
		return 0, fmt.Errorf("order_id is required")
	}
	if cmd.Reason == "" {
		cmd.Reason = domain.IneligibleReasonRefunded
	}

	var retired int
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		ledgers, err := h.ledgers.FindByOrderForUpdate(ctx, cmd.OrderID, cmd.ItemIDs)
		if err != nil {
			return fmt.Errorf("failed to load ledgers: %w", err)
		}

		ids := make([]uint, 0, len(ledgers))
		for i := range ledgers {
			if ledgers[i].Tombstoned() {
				continue
			}
			if err := ledgers[i].Retire(cmd.Reason); err != nil {
				return fmt.Errorf("ledger %d: %w", ledgers[i].ID, err)
			}
			ids = append(ids, ledgers[i].ID)
		}

		if err := h.ledgers.Retire(ctx, ids, cmd.Reason); err != nil {
			return fmt.Errorf("failed to retire ledgers: %w", err)
		}

		for i := range ledgers {
			if _, err := h.holds.Transition(ctx, ledgers[i].OrderItemID, domain.HoldStatusHeld, domain.HoldStatusCancelled); err != nil {
				return fmt.Errorf("failed to cancel hold for item %d: %w", ledgers[i].OrderItemID, err)
			}
		}

		retired = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.LedgersRetired.WithLabelValues(cmd.Reason).Add(float64(retired))
	logger.Component(ctx, "settlement-ledger").Info().
		Uint("order_id", cmd.OrderID).
		Int("retired", retired).
		Str("reason", cmd.Reason).
		Msg("Ledger entries marked ineligible")

	return retired, nil
}
