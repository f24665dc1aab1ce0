// Package config loads service settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds every setting the binaries need.
type Config struct {
	HTTPPort          string        `yaml:"http_port"`
	WebhookSecret     string        `yaml:"webhook_secret"`
	StorageBackend    string        `yaml:"storage_backend"`
	DatabaseURL       string        `yaml:"database_url"`
	DynamoDB          DynamoDB      `yaml:"dynamodb"`
	SQSQueueURL       string        `yaml:"sqs_queue_url"`
	DefaultCurrency   string        `yaml:"default_currency"`
	MarkCompleted     bool          `yaml:"mark_completed"`
	StalePendingAfter time.Duration `yaml:"stale_pending_after"`
	LogLevel          string        `yaml:"log_level"`
}

// DynamoDB holds the table names and an optional endpoint override for local development.
type DynamoDB struct {
	UsersTable        string `yaml:"users_table"`
	AccountsTable     string `yaml:"accounts_table"`
	TransactionsTable string `yaml:"transactions_table"`
	Endpoint          string `yaml:"endpoint"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTPPort:          "8080",
		StorageBackend:    BackendDynamoDB,
		DefaultCurrency:   models.DefaultCurrency,
		MarkCompleted:     true,
		StalePendingAfter: 20 * time.Minute,
		LogLevel:          "info",
	}
}

// Load builds the configuration: defaults, then the YAML file named by CONFIG_FILE if set,
// then environment variables. A .env file in the working directory is loaded first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPPort, "HTTP_PORT")
	setString(&c.WebhookSecret, "WEBHOOK_SECRET")
	setString(&c.StorageBackend, "STORAGE_BACKEND")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DynamoDB.UsersTable, "DYNAMODB_USERS_TABLE_NAME")
	setString(&c.DynamoDB.AccountsTable, "DYNAMODB_ACCOUNTS_TABLE_NAME")
	setString(&c.DynamoDB.TransactionsTable, "DYNAMODB_TRANSACTIONS_TABLE_NAME")
	setString(&c.DynamoDB.Endpoint, "DYNAMODB_ENDPOINT")
	setString(&c.SQSQueueURL, "SQS_QUEUE_URL")
	setString(&c.DefaultCurrency, "DEFAULT_CURRENCY")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("MARK_COMPLETED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MARK_COMPLETED %q: %w", v, err)
		}
		c.MarkCompleted = b
	}
	if v := os.Getenv("STALE_PENDING_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STALE_PENDING_AFTER %q: %w", v, err)
		}
		c.StalePendingAfter = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports settings that are missing or malformed for the selected backend.
// The webhook secret is not checked here: the endpoint answers 500 without it.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case BackendDynamoDB:
		if c.DynamoDB.UsersTable == "" || c.DynamoDB.AccountsTable == "" || c.DynamoDB.TransactionsTable == "" {
			errs = append(errs, errors.New("one or more DynamoDB table name environment variables are not set"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if err := models.ValidateCurrency(c.DefaultCurrency); err != nil {
		errs = append(errs, err)
	}
	if c.StalePendingAfter <= 0 {
		errs = append(errs, errors.New("STALE_PENDING_AFTER must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", level)
	}
	return l, nil
}

// NewLogger returns a JSON logger writing to stdout at the given level.
func NewLogger(level string) *slog.Logger {
	l, err := ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
