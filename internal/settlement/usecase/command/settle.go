package command

import (
	"context"
	"time"

	"github.com/tair/course-settlement/internal/settlement/domain"
	"github.com/tair/course-settlement/internal/settlement/metrics"
	"github.com/tair/course-settlement/pkg/database"
	"github.com/tair/course-settlement/pkg/logger"
)

// SettleCommand settles eligible rows, optionally for one instructor
type SettleCommand struct {
	InstructorID *uint
}

// SettleResult is the number of rows settled and their summed net amount
type SettleResult struct {
	Count     int       `json:"count"`
	TotalNet  int64     `json:"total_net"`
	SettledAt time.Time `json:"settled_at"`
}

// SettleHandler handles liability recognition
type SettleHandler struct {
	ledgers domain.LedgerRepository
	tx      database.Transactor
	now     func() time.Time
}

// NewSettleHandler creates a new settle handler
func NewSettleHandler(ledgers domain.LedgerRepository, tx database.Transactor) *SettleHandler {
	return &SettleHandler{ledgers: ledgers, tx: tx, now: time.Now}
}

// Handle stamps settledAt on every eligible unsettled row. No money moves.
func (h *SettleHandler) Handle(ctx context.Context, cmd SettleCommand) (*SettleResult, error) {
	result := &SettleResult{SettledAt: h.now().UTC()}

	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		rows, err := h.ledgers.FindSettleableForUpdate(ctx, cmd.InstructorID)
		if err != nil {
			return err
		}

		ids := make([]uint, 0, len(rows))
		for i := range rows {
			if err := rows[i].Settle(result.SettledAt); err != nil {
				continue
			}
			ids = append(ids, rows[i].ID)
			result.TotalNet += rows[i].NetAmount
		}
		result.Count = len(ids)

		return h.ledgers.MarkSettled(ctx, ids, result.SettledAt)
	})
	if err != nil {
		return nil, err
	}

	metrics.SettledAmount.Add(float64(result.TotalNet))
	event := logger.Component(ctx, "settlement-settle").Info().
		Int("count", result.Count).
		Int64("total_net", result.TotalNet)
	if cmd.InstructorID != nil {
		event = event.Uint("instructor_id", *cmd.InstructorID)
	}
	event.Msg("Ledgers settled")

	return result, nil
}
