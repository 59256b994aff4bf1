//go:build wireinject
// +build wireinject

package refund

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/course-settlement/internal/config"
	"github.com/tair/course-settlement/internal/refund/handler"
	settlementcommand "github.com/tair/course-settlement/internal/settlement/usecase/command"
	"github.com/tair/course-settlement/kafka"
)

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideRefundRepository,
	ProvideIdempotencyRepository,
	ProvideOrderRepository,
	ProvideTransactor,
	ProvideGuard,
)

var ClientSet = wire.NewSet(
	ProvidePaymentGateway,
	ProvideWalletService,
	ProvideEnrollmentService,
	ProvideDailyLimitService,
	ProvideLedgerRetirer,
	ProvideEventPublisher,
)

var CommandHandlerSet = wire.NewSet(
	ProvidePostCommitTasks,
	ProvideValidator,
	ProvideProcessRefundHandler,
	ProvideRequestRefundHandler,
)

var QueryHandlerSet = wire.NewSet(
	ProvideGetRefundHandler,
	ProvideListMyRefundsHandler,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	ClientSet,
	CommandHandlerSet,
	QueryHandlerSet,
)

// InitializeHandler initializes the refund handler with all dependencies
func InitializeHandler(
	db *gorm.DB,
	rdb redis.UniversalClient,
	cfg *config.Config,
	conns Connections,
	retire *settlementcommand.MarkIneligibleHandler,
	publisher *kafka.Publisher,
) (*handler.RefundHandler, error) {
	wire.Build(
		AllHandlersSet,
		ProvideRefundHandler,
	)
	return nil, nil
}
