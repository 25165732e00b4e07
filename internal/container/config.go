// Package container provides dependency injection and lifecycle management
// for the docflow document workflow engine.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Workflow rule configuration
	Workflow WorkflowConfig

	// Numbering backend configuration
	Numbering NumberingConfig

	// Identity resolution configuration
	Identity IdentityConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration

	// MigrationsDir replaces the embedded migrations when set
	MigrationsDir string
}

// WorkflowConfig holds stage registry and rule settings.
type WorkflowConfig struct {
	// StagesFile overrides the embedded stage registry
	StagesFile string

	// DeliveryScope is the DR number prefix code
	DeliveryScope string

	// BillingPrecision is the decimal places the billing gate compares at
	BillingPrecision int32

	// PaymentDueOffsetDays defaults payment_due when entering FOR_COUNTER
	PaymentDueOffsetDays int
}

// NumberingConfig selects the sequence counter.
type NumberingConfig struct {
	// Backend is "sqlite" or "redis"
	Backend string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
}

// IdentityConfig holds group to role mapping.
type IdentityConfig struct {
	GroupPrecedence []string
	ElevatedGroups  []string
	Aliases         map[string]string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/docflow.db",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Workflow: WorkflowConfig{
			DeliveryScope:        "6202",
			BillingPrecision:     2,
			PaymentDueOffsetDays: 3,
		},
		Numbering: NumberingConfig{
			Backend:        "sqlite",
			RedisAddr:      "localhost:6379",
			RedisKeyPrefix: "docflow:seq:",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Workflow.DeliveryScope == "" {
		return fmt.Errorf("workflow.delivery_scope is required")
	}

	switch c.Numbering.Backend {
	case "sqlite":
	case "redis":
		if c.Numbering.RedisAddr == "" {
			return fmt.Errorf("numbering.redis.addr is required")
		}
	default:
		return fmt.Errorf("unknown numbering backend %q", c.Numbering.Backend)
	}

	return nil
}
