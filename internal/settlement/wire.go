//go:build wireinject
// +build wireinject

package settlement

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/course-settlement/internal/config"
)

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideLedgerRepository,
	ProvideHoldRepository,
	ProvidePaymentRepository,
	ProvideInstructorResolver,
	ProvideOrderRepository,
	ProvideTransactor,
)

var PolicySet = wire.NewSet(
	ProvidePolicy,
	ProvideSealer,
)

var CommandHandlerSet = wire.NewSet(
	ProvideCreateLedgerEntriesHandler,
	ProvideMarkIneligibleHandler,
	ProvideSweepEligibilityHandler,
	ProvideSettleHandler,
	ProvideExecutePaymentHandler,
)

var QueryHandlerSet = wire.NewSet(
	ProvideListLedgersHandler,
	ProvideGetLedgerHandler,
	ProvideGetSummaryHandler,
	ProvideListPaymentsHandler,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	PolicySet,
	CommandHandlerSet,
	QueryHandlerSet,
)

// InitializeModule initializes the settlement module with all dependencies
func InitializeModule(db *gorm.DB, cfg config.SettlementConfig) (*Module, error) {
	wire.Build(
		AllHandlersSet,
		ProvideSettlementHandler,
		NewModule,
	)
	return nil, nil
}
