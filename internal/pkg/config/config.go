package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	TransactionsSourceBlob     = "blob"
	TransactionsSourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr string `env:"SERVER_ADDR" envDefault:":7777"`
	AdminAddr  string `env:"ADMIN_ADDR" envDefault:":9091"`

	Storage StorageConfig

	SessionsPrefix     string        `env:"SESSIONS_PREFIX" envDefault:"GoogleAnalyticsSample/ga_sessions_export/"`
	TransactionsPrefix string        `env:"TRANSACTIONS_PREFIX" envDefault:"BackendDataSample/transactionalData/"`
	PartFilePattern    string        `env:"PART_FILE_PATTERN" envDefault:"part-*"`
	ReadTimeout        time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	RedisURL        string        `env:"REDIS_URL"`
	ListingCacheTTL time.Duration `env:"LISTING_CACHE_TTL" envDefault:"5m"`

	TransactionsSource        string `env:"TRANSACTIONS_SOURCE" envDefault:"blob"`
	PostgresURL               string `env:"POSTGRES_URL"`
	PostgresTransactionsTable string `env:"POSTGRES_TRANSACTIONS_TABLE" envDefault:"transactions"`

	AddressChangeActions []string `env:"ADDRESS_CHANGE_ACTIONS" envDefault:"address_update.clicked,Change Location,other_location.clicked,address_update.submitted" envSeparator:","`
	PlacedOrderAction    string   `env:"PLACED_ORDER_ACTION" envDefault:"transaction"`

	Columns ColumnConfig

	APIKeys        []string `env:"API_KEYS" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// StorageConfig describes the S3-compatible bucket holding both datasets.
// GCS buckets are reachable through S3_ENDPOINT=https://storage.googleapis.com
// with HMAC keys.
type StorageConfig struct {
	Bucket          string `env:"STORAGE_BUCKET" envDefault:"product-analytics-hiring-tests-public"`
	Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	Profile         string `env:"AWS_PROFILE"`
	Anonymous       bool   `env:"S3_ANONYMOUS" envDefault:"false"`
	MaxAttempts     int    `env:"S3_MAX_ATTEMPTS" envDefault:"3"`
}

// ColumnConfig names the Parquet columns read from each dataset.
// Hit fields accept dotted paths into nested structs.
type ColumnConfig struct {
	VisitorID       string `env:"COLUMN_VISITOR_ID" envDefault:"fullvisitorid"`
	OperatingSystem string `env:"COLUMN_OPERATING_SYSTEM" envDefault:"operatingSystem"`
	Hits            string `env:"COLUMN_HITS" envDefault:"hit"`
	EventAction     string `env:"COLUMN_EVENT_ACTION" envDefault:"eventAction"`
	TransactionID   string `env:"COLUMN_TRANSACTION_ID" envDefault:"transactionId"`
	FrontendOrderID string `env:"COLUMN_FRONTEND_ORDER_ID" envDefault:"frontendOrderId"`
	GeopointDropoff string `env:"COLUMN_GEOPOINT_DROPOFF" envDefault:"geopointDropoff"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks rules that span more than one field.
func (c *Config) Validate() error {
	if c.Storage.Bucket == "" {
		return errors.New("STORAGE_BUCKET must not be empty")
	}
	if c.SessionsPrefix == "" || c.TransactionsPrefix == "" {
		return errors.New("SESSIONS_PREFIX and TRANSACTIONS_PREFIX must not be empty")
	}
	switch c.TransactionsSource {
	case TransactionsSourceBlob:
	case TransactionsSourcePostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required when TRANSACTIONS_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("unknown TRANSACTIONS_SOURCE %q", c.TransactionsSource)
	}
	if len(c.AddressChangeActions) == 0 {
		return errors.New("ADDRESS_CHANGE_ACTIONS must list at least one action")
	}
	if c.ReadTimeout <= 0 || c.RequestTimeout <= 0 {
		return errors.New("READ_TIMEOUT and REQUEST_TIMEOUT must be positive")
	}
	return nil
}
