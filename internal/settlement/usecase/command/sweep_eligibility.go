package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/course-settlement/internal/settlement/domain"
	"github.com/tair/course-settlement/internal/settlement/metrics"
	"github.com/tair/course-settlement/pkg/database"
	"github.com/tair/course-settlement/pkg/logger"
)

const defaultSweepBatch = 500

// SweepEligibilityCommand promotes aged ledger rows
type SweepEligibilityCommand struct {
	BatchSize int
}

// SweepResult summarizes one sweep
type SweepResult struct {
	Cutoff   time.Time `json:"cutoff"`
	Scanned  int       `json:"scanned"`
	Promoted int       `json:"promoted"`
}

// SweepEligibilityHandler handles the periodic eligibility sweep
type SweepEligibilityHandler struct {
	ledgers domain.LedgerRepository
	holds   domain.HoldRepository
	tx      database.Transactor
	policy  domain.Policy
	now     func() time.Time
}

// NewSweepEligibilityHandler creates a new sweep handler
func NewSweepEligibilityHandler(ledgers domain.LedgerRepository, holds domain.HoldRepository, tx database.Transactor, policy domain.Policy) *SweepEligibilityHandler {
	return &SweepEligibilityHandler{
		ledgers: ledgers,
		holds:   holds,
		tx:      tx,
		policy:  policy,
		now:     time.Now,
	}
}

// Handle promotes every row created before now minus the hold window that
// is neither settled nor retired, releasing its hold in the same
// transaction. Each row commits on its own.
func (h *SweepEligibilityHandler) Handle(ctx context.Context, cmd SweepEligibilityCommand) (*SweepResult, error) {
	batch := cmd.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}

	result := &SweepResult{Cutoff: h.policy.Cutoff(h.now().UTC())}
	log := logger.Component(ctx, "settlement-sweep")

	for {
		rows, err := h.ledgers.FindDueForRelease(ctx, result.Cutoff, batch)
		if err != nil {
			metrics.SweepRuns.WithLabelValues("error").Inc()
			return result, fmt.Errorf("failed to load due ledgers: %w", err)
		}
		result.Scanned += len(rows)

		promotedInBatch := 0
		for i := range rows {
			row := rows[i]
			// Promote re-checks the same predicate in storage.
			if err := row.Release(result.Cutoff); err != nil {
				continue
			}

			var promoted bool
			err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
				ok, err := h.ledgers.Promote(ctx, row.ID, result.Cutoff)
				if err != nil || !ok {
					return err
				}
				promoted = true
				_, err = h.holds.Transition(ctx, row.OrderItemID, domain.HoldStatusHeld, domain.HoldStatusReleased)
				return err
			})
			if err != nil {
				metrics.SweepRuns.WithLabelValues("error").Inc()
				return result, fmt.Errorf("failed to promote ledger %d: %w", row.ID, err)
			}
			if !promoted {
				log.Debug().Uint("ledger_id", row.ID).Msg("Ledger changed since read, skipped")
				continue
			}
			promotedInBatch++
		}

		result.Promoted += promotedInBatch
		if len(rows) < batch || promotedInBatch == 0 {
			break
		}
	}

	metrics.SweepPromoted.Add(float64(result.Promoted))
	metrics.SweepRuns.WithLabelValues("ok").Inc()
	log.Info().
		Time("cutoff", result.Cutoff).
		Int("scanned", result.Scanned).
		Int("promoted", result.Promoted).
		Msg("Eligibility sweep finished")

	return result, nil
}
