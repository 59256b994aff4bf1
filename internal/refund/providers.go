package refund

import (
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"gorm.io/gorm"

	"github.com/tair/course-settlement/internal/config"
	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	orderrepository "github.com/tair/course-settlement/internal/order/repository"
	"github.com/tair/course-settlement/internal/refund/client"
	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/internal/refund/handler"
	"github.com/tair/course-settlement/internal/refund/idempotency"
	"github.com/tair/course-settlement/internal/refund/repository"
	"github.com/tair/course-settlement/internal/refund/usecase/command"
	"github.com/tair/course-settlement/internal/refund/usecase/query"
	settlementcommand "github.com/tair/course-settlement/internal/settlement/usecase/command"
	"github.com/tair/course-settlement/kafka"
	"github.com/tair/course-settlement/pkg/database"
)

// Connections carries the gRPC connections of the downstream services
type Connections struct {
	Wallet     grpc.ClientConnInterface
	Enrollment grpc.ClientConnInterface
	DailyLimit grpc.ClientConnInterface
}

// ProvideRefundRepository provides the refund repository with tracing
func ProvideRefundRepository(db *gorm.DB) domain.RefundRepository {
	return repository.NewTracingRefundRepository(repository.NewGormRefundRepository(db))
}

func ProvideIdempotencyRepository(db *gorm.DB) domain.IdempotencyRepository {
	return repository.NewGormIdempotencyRepository(db)
}

func ProvideOrderRepository(db *gorm.DB) orderdomain.OrderRepository {
	return orderrepository.NewTracingOrderRepository(orderrepository.NewGormOrderRepository(db))
}

func ProvideTransactor(db *gorm.DB) database.Transactor {
	return database.NewGormTransactor(db)
}

// ProvideGuard provides the idempotency guard. rdb may be nil.
func ProvideGuard(records domain.IdempotencyRepository, refunds domain.RefundRepository, rdb redis.UniversalClient) *idempotency.Guard {
	return idempotency.NewGuard(records, refunds, rdb)
}

// Client Providers
func ProvidePaymentGateway(cfg *config.Config) command.PaymentGateway {
	return client.NewPaymentGatewayClient(cfg.Gateway)
}

func ProvideWalletService(conns Connections, cfg *config.Config) command.WalletService {
	return client.NewWalletClient(conns.Wallet, cfg.Wallet)
}

func ProvideEnrollmentService(conns Connections, cfg *config.Config) command.EnrollmentService {
	if conns.Enrollment == nil {
		return nil
	}
	return client.NewEnrollmentClient(conns.Enrollment, cfg.Enrollment)
}

func ProvideDailyLimitService(conns Connections, cfg *config.Config) command.DailyLimitService {
	if conns.DailyLimit == nil {
		return nil
	}
	return client.NewDailyLimitClient(conns.DailyLimit, cfg.DailyLimit)
}

func ProvideLedgerRetirer(retire *settlementcommand.MarkIneligibleHandler) command.LedgerRetirer {
	if retire == nil {
		return nil
	}
	return client.NewSettlementRetirer(retire)
}

// ProvideEventPublisher returns a nil interface when Kafka is disabled
func ProvideEventPublisher(publisher *kafka.Publisher) command.EventPublisher {
	if publisher == nil {
		return nil
	}
	return publisher
}

// Command Handlers Providers
func ProvidePostCommitTasks(
	enrollment command.EnrollmentService,
	dailyLimit command.DailyLimitService,
	ledgers command.LedgerRetirer,
	publisher command.EventPublisher,
) command.PostCommitTasks {
	return command.NewPostCommitTasks(enrollment, dailyLimit, ledgers, publisher)
}

func ProvideValidator(refunds domain.RefundRepository) *command.Validator {
	return command.NewValidator(refunds)
}

func ProvideProcessRefundHandler(
	refunds domain.RefundRepository,
	orders orderdomain.OrderRepository,
	gateway command.PaymentGateway,
	wallet command.WalletService,
	tx database.Transactor,
	tasks command.PostCommitTasks,
) *command.ProcessRefundHandler {
	return command.NewProcessRefundHandler(refunds, orders, gateway, wallet, tx, tasks)
}

func ProvideRequestRefundHandler(
	guard *idempotency.Guard,
	validator *command.Validator,
	orders orderdomain.OrderRepository,
	refunds domain.RefundRepository,
	processor *command.ProcessRefundHandler,
) *command.RequestRefundHandler {
	return command.NewRequestRefundHandler(guard, validator, orders, refunds, processor)
}

// Query Handlers Providers
func ProvideGetRefundHandler(refunds domain.RefundRepository) *query.GetRefundHandler {
	return query.NewGetRefundHandler(refunds)
}

func ProvideListMyRefundsHandler(refunds domain.RefundRepository) *query.ListMyRefundsHandler {
	return query.NewListMyRefundsHandler(refunds)
}

func ProvideRefundHandler(
	request *command.RequestRefundHandler,
	get *query.GetRefundHandler,
	list *query.ListMyRefundsHandler,
) *handler.RefundHandler {
	return handler.NewRefundHandler(request, get, list)
}
