package settlement

import (
	"gorm.io/gorm"

	"github.com/tair/course-settlement/internal/config"
	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	orderrepository "github.com/tair/course-settlement/internal/order/repository"
	"github.com/tair/course-settlement/internal/settlement/bankinfo"
	"github.com/tair/course-settlement/internal/settlement/domain"
	"github.com/tair/course-settlement/internal/settlement/handler"
	"github.com/tair/course-settlement/internal/settlement/repository"
	"github.com/tair/course-settlement/internal/settlement/usecase/command"
	"github.com/tair/course-settlement/internal/settlement/usecase/query"
	"github.com/tair/course-settlement/pkg/database"
)

// ProvideLedgerRepository provides the ledger repository with tracing
func ProvideLedgerRepository(db *gorm.DB) domain.LedgerRepository {
	return repository.NewTracingLedgerRepository(repository.NewGormLedgerRepository(db))
}

func ProvideHoldRepository(db *gorm.DB) domain.HoldRepository {
	return repository.NewGormHoldRepository(db)
}

func ProvidePaymentRepository(db *gorm.DB) domain.PaymentRepository {
	return repository.NewGormPaymentRepository(db)
}

func ProvideInstructorResolver(db *gorm.DB) domain.InstructorResolver {
	return repository.NewGormLedgerRepository(db)
}

func ProvideOrderRepository(db *gorm.DB) orderdomain.OrderRepository {
	return orderrepository.NewTracingOrderRepository(orderrepository.NewGormOrderRepository(db))
}

func ProvideTransactor(db *gorm.DB) database.Transactor {
	return database.NewGormTransactor(db)
}

// ProvidePolicy maps configuration onto the fee and hold policy
func ProvidePolicy(cfg config.SettlementConfig) domain.Policy {
	return domain.Policy{
		VATRate:    cfg.VATRate,
		FeeRate:    cfg.PlatformFee,
		HoldWindow: cfg.HoldWindow,
	}
}

func ProvideSealer(cfg config.SettlementConfig) *bankinfo.Sealer {
	return bankinfo.NewSealer(cfg.BankInfoKey)
}

// Command Handlers Providers
func ProvideCreateLedgerEntriesHandler(
	orders orderdomain.OrderRepository,
	ledgers domain.LedgerRepository,
	holds domain.HoldRepository,
	resolver domain.InstructorResolver,
	tx database.Transactor,
	policy domain.Policy,
) *command.CreateLedgerEntriesHandler {
	return command.NewCreateLedgerEntriesHandler(orders, ledgers, holds, resolver, tx, policy)
}

func ProvideMarkIneligibleHandler(ledgers domain.LedgerRepository, holds domain.HoldRepository, tx database.Transactor) *command.MarkIneligibleHandler {
	return command.NewMarkIneligibleHandler(ledgers, holds, tx)
}

func ProvideSweepEligibilityHandler(ledgers domain.LedgerRepository, holds domain.HoldRepository, tx database.Transactor, policy domain.Policy) *command.SweepEligibilityHandler {
	return command.NewSweepEligibilityHandler(ledgers, holds, tx, policy)
}

func ProvideSettleHandler(ledgers domain.LedgerRepository, tx database.Transactor) *command.SettleHandler {
	return command.NewSettleHandler(ledgers, tx)
}

func ProvideExecutePaymentHandler(ledgers domain.LedgerRepository, payments domain.PaymentRepository, sealer *bankinfo.Sealer, tx database.Transactor) *command.ExecutePaymentHandler {
	return command.NewExecutePaymentHandler(ledgers, payments, sealer, tx)
}

// Query Handlers Providers
func ProvideListLedgersHandler(ledgers domain.LedgerRepository) *query.ListLedgersHandler {
	return query.NewListLedgersHandler(ledgers)
}

func ProvideGetLedgerHandler(ledgers domain.LedgerRepository, holds domain.HoldRepository, payments domain.PaymentRepository) *query.GetLedgerHandler {
	return query.NewGetLedgerHandler(ledgers, holds, payments)
}

func ProvideGetSummaryHandler(ledgers domain.LedgerRepository) *query.GetSummaryHandler {
	return query.NewGetSummaryHandler(ledgers)
}

func ProvideListPaymentsHandler(ledgers domain.LedgerRepository, payments domain.PaymentRepository) *query.ListPaymentsHandler {
	return query.NewListPaymentsHandler(ledgers, payments)
}

// ProvideSettlementHandler provides the HTTP handler
func ProvideSettlementHandler(
	cfg config.SettlementConfig,
	create *command.CreateLedgerEntriesHandler,
	retire *command.MarkIneligibleHandler,
	sweep *command.SweepEligibilityHandler,
	settle *command.SettleHandler,
	payment *command.ExecutePaymentHandler,
	list *query.ListLedgersHandler,
	get *query.GetLedgerHandler,
	summary *query.GetSummaryHandler,
	listPayments *query.ListPaymentsHandler,
) *handler.SettlementHandler {
	return handler.NewSettlementHandler(create, retire, sweep, settle, payment, list, get, summary, listPayments, cfg.SweepBatchSize)
}
