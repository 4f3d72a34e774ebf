// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults,
// optionally layered over a YAML, TOML or JSON file, and validates all
// settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Load     LoadConfig     `mapstructure:"load"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0" mapstructure:"host"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s" mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration for writing response (default: 0, loads may run long)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s" mapstructure:"write_timeout"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s" mapstructure:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" mapstructure:"shutdown_timeout"`

	// MaxUploadSize is the maximum accepted file size in bytes (default: 100MB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"104857600" mapstructure:"max_upload_size"`

	// RateLimit is the number of requests per minute per client IP; 0 disables it (default: 100)
	RateLimit int `env:"SERVER_RATE_LIMIT" default:"100" mapstructure:"rate_limit"`
}

// DatabaseConfig holds destination connection settings.
type DatabaseConfig struct {
	// Driver selects the catalog: pgx, postgres, mysql, sqlserver, oracle
	// or memory (default: pgx)
	Driver string `env:"DB_DRIVER" default:"pgx" mapstructure:"driver"`

	// DSN is the connection string, required unless Driver is memory.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DSN string `env:"DATABASE_URL" envAlt:"DB_URL" mapstructure:"dsn"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20" mapstructure:"max_conns"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4" mapstructure:"min_conns"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h" mapstructure:"max_conn_lifetime"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m" mapstructure:"max_conn_idle_time"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" mapstructure:"trusted_proxies"`

	// RequireAPIKey rejects API requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false" mapstructure:"require_api_key"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS" mapstructure:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" mapstructure:"level"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" mapstructure:"format"`
}

// ScanConfig holds inference and parsing settings.
type ScanConfig struct {
	// SampleRows is the number of rows used for inference; 0 samples every row (default: 1000)
	SampleRows int `env:"SCAN_SAMPLE_ROWS" default:"1000" mapstructure:"sample_rows"`

	// Strategy reduces candidate types: basic, most or least (default: basic)
	Strategy string `env:"SCAN_STRATEGY" default:"basic" mapstructure:"strategy"`

	// ColumnStrategies overrides Strategy per column, e.g. "amount=most,code=least"
	ColumnStrategies map[string]string `env:"SCAN_COLUMN_STRATEGIES" mapstructure:"column_strategies"`

	// ColumnTypes forces column types, e.g. "id=bigint,created=timestamp"
	ColumnTypes map[string]string `env:"SCAN_COLUMN_TYPES" mapstructure:"column_types"`

	// DateLayout, TimeLayout and TimestampLayout are custom Go layouts tried first
	DateLayout      string `env:"SCAN_DATE_LAYOUT" mapstructure:"date_layout"`
	TimeLayout      string `env:"SCAN_TIME_LAYOUT" mapstructure:"time_layout"`
	TimestampLayout string `env:"SCAN_TIMESTAMP_LAYOUT" mapstructure:"timestamp_layout"`

	// Delimiter separates fields of delimited text (default: ,)
	Delimiter string `env:"SCAN_DELIMITER" default:"," mapstructure:"delimiter"`

	// Encoding is the character set of delimited text (default: utf-8)
	Encoding string `env:"SCAN_ENCODING" default:"utf-8" mapstructure:"encoding"`

	// NoHeader treats the first row as data (default: false)
	NoHeader bool `env:"SCAN_NO_HEADER" default:"false" mapstructure:"no_header"`
}

// LoadConfig holds settings applied to every load.
type LoadConfig struct {
	// AddBatch appends a batch column to every row (default: false)
	AddBatch bool `env:"LOAD_ADD_BATCH" default:"false" mapstructure:"add_batch"`

	// BatchColumn names the batch column (default: tableload_batch)
	BatchColumn string `env:"LOAD_BATCH_COLUMN" default:"tableload_batch" mapstructure:"batch_column"`

	// ClearTable truncates an existing table before writing (default: false)
	ClearTable bool `env:"LOAD_CLEAR_TABLE" default:"false" mapstructure:"clear_table"`

	// CreateTable creates a missing table from the inferred columns (default: true)
	CreateTable bool `env:"LOAD_CREATE_TABLE" default:"true" mapstructure:"create_table"`

	// DryRun checks and converts every row without writing (default: false)
	DryRun bool `env:"LOAD_DRY_RUN" default:"false" mapstructure:"dry_run"`

	// MaxConcurrent is the maximum number of parallel loads (default: 4)
	MaxConcurrent int `env:"LOAD_MAX_CONCURRENT" default:"4" mapstructure:"max_concurrent"`

	// MaxWaitTime is how long to wait for a load slot (default: 30s)
	MaxWaitTime time.Duration `env:"LOAD_MAX_WAIT_TIME" default:"30s" mapstructure:"max_wait_time"`

	// Timeout is the maximum duration for a single load (default: 10m)
	Timeout time.Duration `env:"LOAD_TIMEOUT" default:"10m" mapstructure:"timeout"`

	// HistorySize is the number of finished loads kept for reporting (default: 100)
	HistorySize int `env:"LOAD_HISTORY_SIZE" default:"100" mapstructure:"history_size"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
