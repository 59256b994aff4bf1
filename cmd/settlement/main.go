package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"google.golang.org/grpc"

	_ "github.com/tair/course-settlement/docs"
	"github.com/tair/course-settlement/internal/config"
	"github.com/tair/course-settlement/internal/refund"
	refundclient "github.com/tair/course-settlement/internal/refund/client"
	refundhandler "github.com/tair/course-settlement/internal/refund/handler"
	"github.com/tair/course-settlement/internal/settlement"
	settlementhandler "github.com/tair/course-settlement/internal/settlement/handler"
	"github.com/tair/course-settlement/internal/settlement/usecase/command"
	"github.com/tair/course-settlement/kafka"
	"github.com/tair/course-settlement/migrations"
	"github.com/tair/course-settlement/pkg/auth"
	"github.com/tair/course-settlement/pkg/database"
	"github.com/tair/course-settlement/pkg/logger"
	"github.com/tair/course-settlement/pkg/middleware"
	"github.com/tair/course-settlement/pkg/tracing"
)

func main() {
	cfg, err := config.Load(getEnv("ENV_FILE", ".env"))
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting settlement service")

	// Initialize tracer
	tp, err := tracing.InitTracer(cfg.ServiceName)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	if cfg.JWTSecret != "" {
		auth.SetSecret(cfg.JWTSecret)
	}

	// Run migrations
	if err := database.Migrate(cfg.Database, migrations.FS); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to database
	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	gormDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer gormDB.Close()

	// Health checks use their own lib/pq pool
	healthDB, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to open health check connection")
	}
	defer healthDB.Close()

	logger.Logger.Info().Msg("Database initialized successfully")

	rdb := newRedisClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	// Initialize settlement module with Wire DI
	settlementModule, err := settlement.InitializeModule(db, cfg.Settlement)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize settlement module")
	}

	// Kafka publisher is optional
	publisher, err := kafka.NewPublisher(cfg.KafkaBrokers)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Kafka publisher unavailable, refund events will not be published")
		publisher = nil
	} else {
		defer publisher.Close()
	}

	conns, closeConns := dialCollaborators(cfg)
	defer closeConns()

	refundHandler, err := refund.InitializeHandler(db, rdb, cfg, conns, settlementModule.MarkIneligible, publisher)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize refund handler")
	}
	if rdb != nil {
		refundHandler.SetRateLimiter(middleware.NewRateLimiter(rdb, "refunds", 10, time.Minute))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := startOrderPaidConsumer(ctx, cfg, settlementModule.CreateLedgerEntries)
	if consumer != nil {
		defer consumer.Close()
	}

	// Start HTTP server
	go startHTTPServer(cfg, settlementModule.Handler, refundHandler, healthDB)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
}

func newRedisClient(cfg *config.Config) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		logger.Logger.Warn().Msg("REDIS_ADDR not set, refund idempotency locks disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, locks will be attempted per request")
	}
	return client
}

func dialCollaborators(cfg *config.Config) (refund.Connections, func()) {
	var (
		conns  refund.Connections
		opened []*grpc.ClientConn
	)

	dial := func(svc config.ServiceConfig) grpc.ClientConnInterface {
		if svc.Addr == "" {
			logger.Logger.Warn().Str("service", svc.Name).Msg("No address configured, follow-up disabled")
			return nil
		}
		conn, err := refundclient.Dial(svc)
		if err != nil {
			logger.Logger.Fatal().Err(err).Str("service", svc.Name).Msg("Failed to create gRPC client")
		}
		opened = append(opened, conn)
		logger.Logger.Info().Str("service", svc.Name).Str("addr", svc.Addr).Msg("gRPC client created")
		return conn
	}

	conns.Wallet = dial(cfg.Wallet)
	if conns.Wallet == nil {
		logger.Logger.Fatal().Msg("WALLET_SERVICE_GRPC_ADDR is required")
	}
	conns.Enrollment = dial(cfg.Enrollment)
	conns.DailyLimit = dial(cfg.DailyLimit)

	return conns, func() {
		for _, conn := range opened {
			conn.Close()
		}
	}
}

func startOrderPaidConsumer(ctx context.Context, cfg *config.Config, create *command.CreateLedgerEntriesHandler) *kafka.Consumer {
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{kafka.TopicOrderPaid})
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Kafka consumer unavailable, ledger entries must be recorded via the admin API")
		return nil
	}

	consumer.RegisterHandler(kafka.EventTypeOrderPaid, func(ctx context.Context, event kafka.OrderPaidEvent) error {
		result, err := create.Handle(ctx, command.CreateLedgerEntriesCommand{OrderID: event.OrderID})
		if err != nil {
			return err
		}
		logger.Info(ctx).
			Uint("order_id", event.OrderID).
			Int("created", result.Created).
			Int("skipped", result.Skipped).
			Msg("Ledger entries recorded from order paid event")
		return nil
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to start Kafka consumer")
	}
	return consumer
}

func startHTTPServer(cfg *config.Config, settlementHandler *settlementhandler.SettlementHandler, refundHandler *refundhandler.RefundHandler, db *sql.DB) {
	// Setup router
	router := mux.NewRouter()

	// Register all middlewares using middleware registration system
	middleware.RegisterMiddlewares(router, middleware.DefaultMiddlewareConfig(cfg.ServiceName))

	// Register routes
	settlementHandler.RegisterRoutes(router)
	refundHandler.RegisterRoutes(router)

	// Health check endpoint
	settlementHandler.RegisterHealthCheck(router, db)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Swagger UI
	settlementhandler.RegisterSwaggerDocs(router, httpSwagger.WrapHandler)

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	logger.Logger.Info().
		Str("port", cfg.HTTPPort).
		Str("metrics_endpoint", "/metrics").
		Str("swagger_endpoint", "/swagger/index.html").
		Msg("HTTP server started")

	if err := http.ListenAndServe(":"+cfg.HTTPPort, c.Handler(router)); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
