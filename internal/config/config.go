// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package config

import "time"

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: mapped names such as DUCKDB_PATH or COHORT_BATCH_PAUSE
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//	db, err := database.New(&cfg.Database)
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Store     StoreConfig     `koanf:"store"`
	Cohort    CohortConfig    `koanf:"cohort"`
	Lifecycle LifecycleConfig `koanf:"lifecycle"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	NATS      NATSConfig      `koanf:"nats"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   LoggingConfig   `koanf:"logging"`
	Sentry    SentryConfig    `koanf:"sentry"`
}

// DatabaseConfig configures the DuckDB analytical store.
type DatabaseConfig struct {
	// Path is the DuckDB file; ":memory:" or "" opens an in-memory database
	Path string `koanf:"path"`

	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()

	// QueryTimeout bounds queries whose context has no deadline
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// Supported transactional store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// StoreConfig configures the transactional store holding cohorts, membership
// rows, actions, feature flags and the activity log.
type StoreConfig struct {
	// Driver is "sqlite" (embedded, default) or "postgres"
	Driver string `koanf:"driver"`

	// DSN is a file path for sqlite or a connection string for postgres
	DSN string `koanf:"dsn"`

	// BusyTimeout applies to sqlite only
	BusyTimeout time.Duration `koanf:"busy_timeout"`

	MaxOpenConns int `koanf:"max_open_conns"`
}

// CohortConfig tunes recalculation and static ingestion.
type CohortConfig struct {
	// ReadBatchSize is how many snapshot ids are read per round-trip
	ReadBatchSize int `koanf:"read_batch_size"`

	// InsertBatchSize bounds each multi-row INSERT into cohort_people
	InsertBatchSize int `koanf:"insert_batch_size"`

	// DeleteBatchSize bounds each cleanup DELETE
	DeleteBatchSize int `koanf:"delete_batch_size"`

	// IngestBatchSize is the static ingestion chunk size
	IngestBatchSize int `koanf:"ingest_batch_size"`

	// BatchPause is the delay between materialization batches
	BatchPause time.Duration `koanf:"batch_pause"`

	// CleanupPause is the delay between cleanup rounds
	CleanupPause time.Duration `koanf:"cleanup_pause"`

	// Debug makes static ingestion return errors instead of recording them
	Debug bool `koanf:"debug"`

	// Watchdog resets calculations stuck for longer than StaleAfter
	WatchdogEnabled  bool          `koanf:"watchdog_enabled"`
	WatchdogInterval time.Duration `koanf:"watchdog_interval"`
	StaleAfter       time.Duration `koanf:"stale_after"`
}

// LifecycleConfig configures lifecycle queries.
type LifecycleConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// BreakerConfig configures the gobreaker circuit breakers guarding both stores.
type BreakerConfig struct {
	MaxRequests         uint32        `koanf:"max_requests"`
	Interval            time.Duration `koanf:"interval"`
	Timeout             time.Duration `koanf:"timeout"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
}

// NATSConfig configures the trigger transport. When disabled an in-process
// gochannel pub/sub is used instead.
type NATSConfig struct {
	Enabled bool `koanf:"enabled"`

	// URLs are joined into the server list passed to nats.Connect
	URLs []string `koanf:"urls"`

	// EmbeddedServer starts an in-process JetStream server and connects to it
	EmbeddedServer bool   `koanf:"embedded_server"`
	ServerHost     string `koanf:"server_host"`
	ServerPort     int    `koanf:"server_port"`
	StoreDir       string `koanf:"store_dir"`

	StreamName       string `koanf:"stream_name"`
	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`
	SubscribersCount int    `koanf:"subscribers_count"`

	// Router middleware (Watermill)
	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterRetryMaxInterval     time.Duration `koanf:"router_retry_max_interval"`
	RouterThrottlePerSecond    int64         `koanf:"router_throttle_per_second"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address"`
	Path    string `koanf:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	Caller bool `koanf:"caller"`
}

// SentryConfig configures error reporting. Empty DSN disables it.
type SentryConfig struct {
	DSN         string  `koanf:"dsn"`
	Environment string  `koanf:"environment"`
	Release     string  `koanf:"release"`
	SampleRate  float64 `koanf:"sample_rate"`
}
