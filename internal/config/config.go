package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	DBConfig struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	HTTPPort int

	KafkaBrokerURL          string
	KafkaPaymentEventsTopic string

	OutboxPollInterval time.Duration
	OutboxPollTimeout  time.Duration
	OutboxBatchSize    int

	GatewayBaseURL       string
	GatewayTimeout       time.Duration
	GatewayWebhookSecret string

	ReconcileInterval    time.Duration
	ReconcileBackoffBase time.Duration
	ReconcileBackoffMax  time.Duration
	ReconcileWindow      time.Duration
	ReconcileBatchSize   int

	DefaultPlanType     string
	PostpaidCreditLimit decimal.Decimal

	MigrationsPath string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.DBConfig.Host = getEnvOrDefault("CREDITS_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("CREDITS_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("CREDITS_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("CREDITS_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("CREDITS_DB_NAME", "credits_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("CREDITS_DB_SSLMODE", "disable")

	cfg.HTTPPort = getEnvAsInt("CREDITS_HTTP_PORT", 8083)

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaPaymentEventsTopic = getEnvOrDefault("KAFKA_PAYMENT_EVENTS_TOPIC", "payment_status_events")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)
	cfg.OutboxBatchSize = getEnvAsInt("OUTBOX_BATCH_SIZE", 10)

	cfg.GatewayBaseURL = getEnvOrDefault("GATEWAY_BASE_URL", "http://localhost:9090")
	cfg.GatewayTimeout = getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second)
	cfg.GatewayWebhookSecret = getEnvOrDefault("GATEWAY_WEBHOOK_SECRET", "dev-secret")

	cfg.ReconcileInterval = getEnvAsDuration("RECONCILE_INTERVAL", 5*time.Second)
	cfg.ReconcileBackoffBase = getEnvAsDuration("RECONCILE_BACKOFF_BASE", 5*time.Second)
	cfg.ReconcileBackoffMax = getEnvAsDuration("RECONCILE_BACKOFF_MAX", 5*time.Minute)
	cfg.ReconcileWindow = getEnvAsDuration("RECONCILE_WINDOW", 30*time.Minute)
	cfg.ReconcileBatchSize = getEnvAsInt("RECONCILE_BATCH_SIZE", 50)

	cfg.DefaultPlanType = getEnvOrDefault("DEFAULT_PLAN_TYPE", "PREPAID")
	cfg.PostpaidCreditLimit = getEnvAsDecimal("POSTPAID_CREDIT_LIMIT", decimal.NewFromInt(1000))

	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations")

	return cfg, nil
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	return defaultValue
}
