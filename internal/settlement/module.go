package settlement

import (
	"github.com/tair/course-settlement/internal/settlement/handler"
	"github.com/tair/course-settlement/internal/settlement/usecase/command"
)

// Module exposes the settlement entry points. The HTTP handler serves the
// API; the command handlers are driven by the order-paid consumer, the
// refund flow and the sweep scheduler.
type Module struct {
	Handler             *handler.SettlementHandler
	CreateLedgerEntries *command.CreateLedgerEntriesHandler
	MarkIneligible      *command.MarkIneligibleHandler
	SweepEligibility    *command.SweepEligibilityHandler
}

// NewModule creates a new module
func NewModule(
	h *handler.SettlementHandler,
	create *command.CreateLedgerEntriesHandler,
	retire *command.MarkIneligibleHandler,
	sweep *command.SweepEligibilityHandler,
) *Module {
	return &Module{
		Handler:             h,
		CreateLedgerEntries: create,
		MarkIneligible:      retire,
		SweepEligibility:    sweep,
	}
}
