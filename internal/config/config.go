package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/tair/course-settlement/pkg/database"
)

// ServiceConfig holds the address of a downstream collaborator
type ServiceConfig struct {
	Name    string
	Addr    string
	Timeout time.Duration
}

// GatewayConfig holds the payment gateway credentials
type GatewayConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// SettlementConfig holds the ledger and sweep parameters
type SettlementConfig struct {
	HoldWindow     time.Duration
	PlatformFee    decimal.Decimal
	VATRate        decimal.Decimal
	SweepCron      string
	SweepBatchSize int
	SweepLockTTL   time.Duration
	BankInfoKey    [32]byte
}

// Config is the full process configuration
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string
	HTTPPort    string
	JWTSecret   string

	Database database.Config

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaGroupID string

	Gateway    GatewayConfig
	Wallet     ServiceConfig
	Enrollment ServiceConfig
	DailyLimit ServiceConfig

	Settlement SettlementConfig
}

// IsDevelopment reports whether console logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads an optional .env file at path and then the environment.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{
		ServiceName: getEnv("OTEL_SERVICE_NAME", "settlement-service"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTPPort:    getEnv("HTTP_PORT", "8084"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "settlementdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "settlement-service"),
		Gateway: GatewayConfig{
			BaseURL:   getEnv("PAYMENT_GATEWAY_URL", "https://api.tosspayments.com"),
			SecretKey: getEnv("PAYMENT_GATEWAY_SECRET", ""),
			Timeout:   10 * time.Second,
		},
		Wallet: ServiceConfig{
			Name:    "wallet-service",
			Addr:    getEnv("WALLET_SERVICE_GRPC_ADDR", "localhost:9093"),
			Timeout: 5 * time.Second,
		},
		Enrollment: ServiceConfig{
			Name:    "enrollment-service",
			Addr:    getEnv("ENROLLMENT_SERVICE_GRPC_ADDR", "localhost:9094"),
			Timeout: 5 * time.Second,
		},
		DailyLimit: ServiceConfig{
			Name:    "daily-limit-service",
			Addr:    getEnv("DAILY_LIMIT_SERVICE_GRPC_ADDR", "localhost:9095"),
			Timeout: 5 * time.Second,
		},
	}

	holdDays, err := strconv.Atoi(getEnv("SETTLEMENT_HOLD_DAYS", "7"))
	if err != nil || holdDays < 0 {
		return nil, fmt.Errorf("invalid SETTLEMENT_HOLD_DAYS")
	}
	fee, err := decimal.NewFromString(getEnv("PLATFORM_FEE_RATE", "0.10"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_FEE_RATE: %w", err)
	}
	vat, err := decimal.NewFromString(getEnv("VAT_RATE", "0.10"))
	if err != nil {
		return nil, fmt.Errorf("invalid VAT_RATE: %w", err)
	}
	batch, err := strconv.Atoi(getEnv("SWEEP_BATCH_SIZE", "500"))
	if err != nil || batch <= 0 {
		return nil, fmt.Errorf("invalid SWEEP_BATCH_SIZE")
	}

	cfg.Settlement = SettlementConfig{
		HoldWindow:     time.Duration(holdDays) * 24 * time.Hour,
		PlatformFee:    fee,
		VATRate:        vat,
		SweepCron:      getEnv("SWEEP_CRON", "0 */10 * * * *"),
		SweepBatchSize: batch,
		SweepLockTTL:   5 * time.Minute,
	}

	if raw := getEnv("BANK_INFO_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("BANK_INFO_KEY must be 32 bytes hex encoded")
		}
		copy(cfg.Settlement.BankInfoKey[:], key)
	} else if cfg.Environment != "development" {
		return nil, fmt.Errorf("BANK_INFO_KEY is required outside development")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
