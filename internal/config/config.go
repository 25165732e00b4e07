package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix is prepended to every environment override, e.g. DOCFLOW_SERVER_PORT
const EnvPrefix = "DOCFLOW"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Numbering NumberingConfig `mapstructure:"numbering"`
	Identity  IdentityConfig  `mapstructure:"identity"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	// MigrationsDir replaces the embedded migrations when set
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// WorkflowConfig holds stage registry and rule settings
type WorkflowConfig struct {
	// StagesFile overrides the embedded stage registry
	StagesFile           string `mapstructure:"stages_file"`
	DeliveryScope        string `mapstructure:"delivery_scope"`
	BillingPrecision     int32  `mapstructure:"billing_precision"`
	PaymentDueOffsetDays int    `mapstructure:"payment_due_offset_days"`
}

// NumberingConfig selects the sequence counter backend
type NumberingConfig struct {
	Backend string      `mapstructure:"backend"` // sqlite or redis
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the redis counter connection
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// IdentityConfig maps directory groups onto workflow roles
type IdentityConfig struct {
	GroupPrecedence []string          `mapstructure:"group_precedence"`
	ElevatedGroups  []string          `mapstructure:"elevated_groups"`
	Aliases         map[string]string `mapstructure:"aliases"`
}

// Numbering backends
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Load loads configuration from file and environment variables.
// An empty configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv reads .env from the working directory when present.
// Variables already set in the process environment win.
func loadDotEnv() error {
	err := gotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load .env: %w", err)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/docflow.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.migrations_dir", "")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Workflow defaults
	v.SetDefault("workflow.stages_file", "")
	v.SetDefault("workflow.delivery_scope", "6202")
	v.SetDefault("workflow.billing_precision", 2)
	v.SetDefault("workflow.payment_due_offset_days", 3)

	// Numbering defaults
	v.SetDefault("numbering.backend", BackendSQLite)
	v.SetDefault("numbering.redis.addr", "localhost:6379")
	v.SetDefault("numbering.redis.db", 0)
	v.SetDefault("numbering.redis.key_prefix", "docflow:seq:")

	// Identity defaults are empty; the resolver falls back to its built-in precedence
	v.SetDefault("identity.group_precedence", []string{})
	v.SetDefault("identity.elevated_groups", []string{})
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Credentials commonly shared with other tools
	_ = v.BindEnv("numbering.redis.password", "DOCFLOW_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("numbering.redis.addr", "DOCFLOW_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("database.path", "DOCFLOW_DATABASE_PATH", "DOCFLOW_DB_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection pool sizes must not be negative")
	}
	if strings.TrimSpace(c.Workflow.DeliveryScope) == "" {
		return fmt.Errorf("workflow.delivery_scope is required")
	}
	if c.Workflow.BillingPrecision < 0 || c.Workflow.BillingPrecision > 8 {
		return fmt.Errorf("workflow.billing_precision must be between 0 and 8, got %d", c.Workflow.BillingPrecision)
	}
	if c.Workflow.PaymentDueOffsetDays < 0 {
		return fmt.Errorf("workflow.payment_due_offset_days must not be negative")
	}

	switch c.Numbering.Backend {
	case BackendSQLite:
	case BackendRedis:
		if c.Numbering.Redis.Addr == "" {
			return fmt.Errorf("numbering.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("numbering.backend must be %q or %q, got %q", BackendSQLite, BackendRedis, c.Numbering.Backend)
	}

	return nil
}
