// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateCohort(); err != nil {
		return err
	}
	if err := c.validateLifecycle(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	if err := c.validateSentry(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case StoreDriverSQLite, StoreDriverPostgres:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverSQLite, StoreDriverPostgres, c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("STORE_DSN is required")
	}
	if c.Store.MaxOpenConns < 1 {
		return fmt.Errorf("STORE_MAX_OPEN_CONNS must be at least 1, got %d", c.Store.MaxOpenConns)
	}
	return nil
}

func (c *Config) validateCohort() error {
	sizes := map[string]int{
		"COHORT_READ_BATCH_SIZE":   c.Cohort.ReadBatchSize,
		"COHORT_INSERT_BATCH_SIZE": c.Cohort.InsertBatchSize,
		"COHORT_DELETE_BATCH_SIZE": c.Cohort.DeleteBatchSize,
		"COHORT_INGEST_BATCH_SIZE": c.Cohort.IngestBatchSize,
	}
	for name, v := range sizes {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.Cohort.InsertBatchSize > c.Cohort.ReadBatchSize {
		return fmt.Errorf("COHORT_INSERT_BATCH_SIZE (%d) must not exceed COHORT_READ_BATCH_SIZE (%d)",
			c.Cohort.InsertBatchSize, c.Cohort.ReadBatchSize)
	}
	if c.Cohort.BatchPause < 0 || c.Cohort.CleanupPause < 0 {
		return fmt.Errorf("COHORT_BATCH_PAUSE and COHORT_CLEANUP_PAUSE must not be negative")
	}
	if c.Cohort.WatchdogEnabled {
		if c.Cohort.WatchdogInterval <= 0 {
			return fmt.Errorf("COHORT_WATCHDOG_INTERVAL must be positive when the watchdog is enabled")
		}
		if c.Cohort.StaleAfter <= 0 {
			return fmt.Errorf("COHORT_STALE_AFTER must be positive when the watchdog is enabled")
		}
	}
	return nil
}

func (c *Config) validateLifecycle() error {
	if c.Lifecycle.DefaultPageSize <= 0 {
		return fmt.Errorf("LIFECYCLE_DEFAULT_PAGE_SIZE must be positive, got %d", c.Lifecycle.DefaultPageSize)
	}
	if c.Lifecycle.MaxPageSize < c.Lifecycle.DefaultPageSize {
		return fmt.Errorf("LIFECYCLE_MAX_PAGE_SIZE (%d) must be at least LIFECYCLE_DEFAULT_PAGE_SIZE (%d)",
			c.Lifecycle.MaxPageSize, c.Lifecycle.DefaultPageSize)
	}
	return nil
}

// validateNATS validates the trigger transport (only if NATS is enabled)
func (c *Config) validateNATS() error {
	if c.NATS.RouterRetryCount < 0 {
		return fmt.Errorf("NATS_ROUTER_RETRY_COUNT must not be negative")
	}
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.ServerPort < 0 || c.NATS.ServerPort > 65535 {
			return fmt.Errorf("NATS_SERVER_PORT must be between 0 and 65535")
		}
		if c.NATS.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
		}
	} else if len(c.NATS.URLs) == 0 {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	for _, u := range c.NATS.URLs {
		if !strings.HasPrefix(u, "nats://") && !strings.HasPrefix(u, "tls://") {
			return fmt.Errorf("NATS_URL entries must start with nats:// or tls://, got %q", u)
		}
	}
	if c.NATS.StreamName == "" || c.NATS.DurableName == "" {
		return fmt.Errorf("NATS_STREAM_NAME and NATS_DURABLE_NAME are required when NATS_ENABLED=true")
	}
	if c.NATS.SubscribersCount < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if c.Metrics.Address == "" {
		return fmt.Errorf("METRICS_ADDRESS is required when METRICS_ENABLED=true")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("METRICS_PATH must start with '/', got %q", c.Metrics.Path)
	}
	return nil
}

func (c *Config) validateSentry() error {
	if c.Sentry.SampleRate < 0 || c.Sentry.SampleRate > 1 {
		return fmt.Errorf("SENTRY_SAMPLE_RATE must be between 0 and 1, got %v", c.Sentry.SampleRate)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
