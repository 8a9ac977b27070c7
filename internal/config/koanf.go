// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cohortlens/config.yaml",
	"/etc/cohortlens/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "/data/cohortlens.duckdb",
			MaxMemory:    "2GB",
			Threads:      0,
			QueryTimeout: 5 * time.Minute,
		},
		Store: StoreConfig{
			Driver:       StoreDriverSQLite,
			DSN:          "/data/cohortlens.sqlite",
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 1,
		},
		Cohort: CohortConfig{
			ReadBatchSize:    10000,
			InsertBatchSize:  1000,
			DeleteBatchSize:  1000,
			IngestBatchSize:  1000,
			BatchPause:       5 * time.Second,
			CleanupPause:     time.Second,
			Debug:            false,
			WatchdogEnabled:  false,
			WatchdogInterval: 5 * time.Minute,
			StaleAfter:       time.Hour,
		},
		Lifecycle: LifecycleConfig{
			DefaultPageSize: 100,
			MaxPageSize:     1000,
		},
		Breaker: BreakerConfig{
			MaxRequests:         3,
			Interval:            time.Minute,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
		NATS: NATSConfig{
			Enabled:                    false,
			URLs:                       []string{"nats://127.0.0.1:4222"},
			EmbeddedServer:             false,
			ServerHost:                 "127.0.0.1",
			ServerPort:                 4222,
			StoreDir:                   "/data/nats",
			StreamName:                 "COHORTS",
			DurableName:                "cohort-worker",
			QueueGroup:                 "cohort-workers",
			SubscribersCount:           1,
			RouterRetryCount:           3,
			RouterRetryInitialInterval: time.Second,
			RouterRetryMaxInterval:     time.Minute,
			RouterThrottlePerSecond:    0,
			RouterPoisonQueueTopic:     "cohort.poison",
			RouterCloseTimeout:         30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9464",
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Sentry: SentryConfig{
			Environment: "production",
			SampleRate:  1.0,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, the first config file
// found (see DefaultConfigPaths and CONFIG_PATH) and environment variables.
func LoadWithKoanf() (*Config, error) {
	return LoadFromPath(findConfigFile())
}

// LoadFromPath loads configuration like LoadWithKoanf but reads the given
// YAML file. An empty path skips the file layer.
func LoadFromPath(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// DUCKDB_PATH -> database.path, COHORT_BATCH_PAUSE -> cohort.batch_pause
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists keys that accept comma-separated env values.
var sliceConfigPaths = []string{
	"nats.urls",
}

// processSliceFields splits comma-separated strings (from env vars) into
// slices. Values already loaded as lists from YAML are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	// Analytical store
	"duckdb_path":          "database.path",
	"duckdb_max_memory":    "database.max_memory",
	"duckdb_threads":       "database.threads",
	"duckdb_query_timeout": "database.query_timeout",

	// Transactional store
	"store_driver":         "store.driver",
	"store_dsn":            "store.dsn",
	"store_busy_timeout":   "store.busy_timeout",
	"store_max_open_conns": "store.max_open_conns",

	// Cohort engine
	"cohort_read_batch_size":   "cohort.read_batch_size",
	"cohort_insert_batch_size": "cohort.insert_batch_size",
	"cohort_delete_batch_size": "cohort.delete_batch_size",
	"cohort_ingest_batch_size": "cohort.ingest_batch_size",
	"cohort_batch_pause":       "cohort.batch_pause",
	"cohort_cleanup_pause":     "cohort.cleanup_pause",
	"cohort_debug":             "cohort.debug",
	"cohort_watchdog_enabled":  "cohort.watchdog_enabled",
	"cohort_watchdog_interval": "cohort.watchdog_interval",
	"cohort_stale_after":       "cohort.stale_after",

	// Lifecycle queries
	"lifecycle_default_page_size": "lifecycle.default_page_size",
	"lifecycle_max_page_size":     "lifecycle.max_page_size",

	// Circuit breakers
	"breaker_max_requests":         "breaker.max_requests",
	"breaker_interval":             "breaker.interval",
	"breaker_timeout":              "breaker.timeout",
	"breaker_consecutive_failures": "breaker.consecutive_failures",

	// Trigger transport
	"nats_enabled":               "nats.enabled",
	"nats_url":                   "nats.urls",
	"nats_embedded":              "nats.embedded_server",
	"nats_server_host":           "nats.server_host",
	"nats_server_port":           "nats.server_port",
	"nats_store_dir":             "nats.store_dir",
	"nats_stream_name":           "nats.stream_name",
	"nats_durable_name":          "nats.durable_name",
	"nats_queue_group":           "nats.queue_group",
	"nats_subscribers":           "nats.subscribers_count",
	"nats_router_retry_count":    "nats.router_retry_count",
	"nats_router_retry_interval": "nats.router_retry_initial_interval",
	"nats_router_retry_max":      "nats.router_retry_max_interval",
	"nats_router_throttle":       "nats.router_throttle_per_second",
	"nats_router_poison_topic":   "nats.router_poison_queue_topic",
	"nats_router_close_timeout":  "nats.router_close_timeout",

	// Metrics
	"metrics_enabled": "metrics.enabled",
	"metrics_address": "metrics.address",
	"metrics_path":    "metrics.path",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Error reporting
	"sentry_dsn":         "sentry.dsn",
	"sentry_environment": "sentry.environment",
	"sentry_release":     "sentry.release",
	"sentry_sample_rate": "sentry.sample_rate",
}

// envTransformFunc maps an environment variable name to a koanf path, or ""
// to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
