// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty dsn", func(c *Config) { c.Store.DSN = "" }, "STORE_DSN"},
		{"zero read batch", func(c *Config) { c.Cohort.ReadBatchSize = 0 }, "COHORT_READ_BATCH_SIZE"},
		{"insert above read", func(c *Config) { c.Cohort.InsertBatchSize = 20000 }, "must not exceed"},
		{"negative pause", func(c *Config) { c.Cohort.BatchPause = -1 }, "must not be negative"},
		{"watchdog without interval", func(c *Config) {
			c.Cohort.WatchdogEnabled = true
			c.Cohort.WatchdogInterval = 0
		}, "COHORT_WATCHDOG_INTERVAL"},
		{"page sizes", func(c *Config) { c.Lifecycle.MaxPageSize = 10 }, "LIFECYCLE_MAX_PAGE_SIZE"},
		{"nats bad url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URLs = []string{"http://nats"}
		}, "NATS_URL"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "METRICS_PATH"},
		{"sample rate", func(c *Config) { c.Sentry.SampleRate = 2 }, "SENTRY_SAMPLE_RATE"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
