package client

import (
	"context"

	settlementdomain "github.com/tair/course-settlement/internal/settlement/domain"
	settlementcommand "github.com/tair/course-settlement/internal/settlement/usecase/command"
)

// SettlementRetirer retires ledger rows in-process through the settlement
// command handler
type SettlementRetirer struct {
	handler *settlementcommand.MarkIneligibleHandler
}

// NewSettlementRetirer creates a new retirer
func NewSettlementRetirer(handler *settlementcommand.MarkIneligibleHandler) *SettlementRetirer {
	return &SettlementRetirer{handler: handler}
}

// MarkIneligible tombstones the rows of the refunded items
func (r *SettlementRetirer) MarkIneligible(ctx context.Context, orderID uint, itemIDs []uint) error {
	_, err := r.handler.Handle(ctx, settlementcommand.MarkIneligibleCommand{
		OrderID: orderID,
		ItemIDs: itemIDs,
		Reason:  settlementdomain.IneligibleReasonRefunded,
	})
	return err
}
