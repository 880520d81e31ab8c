package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

const minAdminTokenLength = 16

// New reads configuration from the environment once at startup. The
// resulting Config is treated as immutable for the life of the process.
func New() (*Config, error) {
	var cfg Config
	if os.Getenv("GO_ENV") == "local" {
		_ = godotenv.Load(".env")
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	APP
	DB
	Webhooks
	Redis
	Kafka
	NATS
	SMTP
	Notification
	Telemetry
	Admin
}

type APP struct {
	PORT        string `env:"PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"webhook-ingestor"`
}

type DB struct {
	Driver          string        `env:"STORE_DRIVER" envDefault:"postgres"`
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type Webhooks struct {
	StripeSecret       string `env:"STRIPE_WEBHOOK_SECRET"`
	SquareSignatureKey string `env:"SQUARE_WEBHOOK_SIGNATURE_KEY"`
	SquareURL          string `env:"SQUARE_WEBHOOK_URL"`
}

type Redis struct {
	URL     string        `env:"REDIS_URL"`
	LockTTL time.Duration `env:"WEBHOOK_LOCK_TTL" envDefault:"30s"`
}

type Kafka struct {
	Brokers          string `env:"KAFKA_BROKERS"`
	OrderEventsTopic string `env:"KAFKA_ORDER_EVENTS_TOPIC" envDefault:"orders.created"`
}

type NATS struct {
	URL                 string `env:"NATS_URL"`
	NotificationSubject string `env:"NATS_NOTIFICATION_SUBJECT" envDefault:"notifications.order_confirmation"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	Sender   string `env:"SMTP_SENDER" envDefault:"no-reply@localhost"`
}

type Notification struct {
	Workers   int `env:"NOTIFICATION_WORKERS" envDefault:"2"`
	QueueSize int `env:"NOTIFICATION_QUEUE_SIZE" envDefault:"256"`
}

type Telemetry struct {
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// Admin guards the operator endpoints (order lookup, failed event listing).
// They are only mounted when enabled, and then always behind Token.
type Admin struct {
	Enabled bool   `env:"ADMIN_API_ENABLED" envDefault:"false"`
	Token   string `env:"ADMIN_API_TOKEN"`
}

// AdminToken is the bearer token for operator endpoints, or empty when they
// are disabled.
func (c *Config) AdminToken() string {
	if !c.Admin.Enabled {
		return ""
	}
	return c.Admin.Token
}

// Validate rejects configurations the webhook endpoints cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Webhooks.StripeSecret) == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if strings.TrimSpace(c.Webhooks.SquareSignatureKey) == "" {
		errs = append(errs, errors.New("SQUARE_WEBHOOK_SIGNATURE_KEY is required"))
	}
	if strings.TrimSpace(c.Webhooks.SquareURL) == "" {
		errs = append(errs, errors.New("SQUARE_WEBHOOK_URL is required"))
	}

	switch c.DB.Driver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DB.URL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.DB.Driver))
	}

	if c.DB.MaxOpenConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be positive"))
	}
	if c.Notification.Workers <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_WORKERS must be positive"))
	}
	if c.Admin.Enabled && len(strings.TrimSpace(c.Admin.Token)) < minAdminTokenLength {
		errs = append(errs, fmt.Errorf("ADMIN_API_TOKEN of at least %d characters is required when ADMIN_API_ENABLED is set", minAdminTokenLength))
	}

	return errors.Join(errs...)
}

func (k Kafka) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
