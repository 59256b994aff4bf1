package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/tair/course-settlement/internal/config"
	"github.com/tair/course-settlement/internal/settlement"
	"github.com/tair/course-settlement/internal/settlement/scheduler"
	"github.com/tair/course-settlement/pkg/database"
	"github.com/tair/course-settlement/pkg/logger"
	"github.com/tair/course-settlement/pkg/tracing"
)

func main() {
	cfg, err := config.Load(getEnv("ENV_FILE", ".env"))
	if err != nil {
		panic(err)
	}

	serviceName := cfg.ServiceName + "-cron"
	logger.Init(serviceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	tp, err := tracing.InitTracer(serviceName)
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

	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	module, err := settlement.InitializeModule(db, cfg.Settlement)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize settlement module")
	}

	var locker scheduler.Locker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		locker = scheduler.NewRedsyncLocker(redsync.New(goredis.NewPool(rdb)), cfg.Settlement.SweepLockTTL)
	} else {
		logger.Logger.Warn().Msg("REDIS_ADDR not set, sweep runs without a distributed lock")
	}

	cronScheduler, err := scheduler.New(
		cfg.Settlement.SweepCron,
		module.SweepEligibility,
		locker,
		cfg.Settlement.SweepBatchSize,
		cfg.Settlement.SweepLockTTL,
	)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to schedule eligibility sweep")
	}

	cronScheduler.Start()
	logger.Logger.Info().
		Str("schedule", cfg.Settlement.SweepCron).
		Int("batch_size", cfg.Settlement.SweepBatchSize).
		Msg("Cron jobs started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down gracefully...")
	cronScheduler.Stop(5 * time.Second)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
