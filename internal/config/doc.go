// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
Package config loads and validates Cohortlens configuration with Koanf v2.

Sources are layered: struct defaults, then an optional YAML file, then
environment variables. Only mapped environment variables are read (see
envMappings); everything else in the environment is ignored.

Sections:

  - database: DuckDB analytical store (DUCKDB_PATH, DUCKDB_MAX_MEMORY)
  - store: transactional store driver and DSN (STORE_DRIVER, STORE_DSN)
  - cohort: batch sizes, pacing and watchdog for recalculation/ingestion
  - lifecycle: people page sizes
  - breaker: circuit breaker thresholds shared by both stores
  - nats: trigger transport and Watermill router middleware
  - metrics, logging, sentry: ambient concerns

Example config.yaml:

	store:
	  driver: postgres
	  dsn: postgres://cohortlens@localhost/cohortlens?sslmode=disable
	cohort:
	  batch_pause: 2s
	  watchdog_enabled: true
	nats:
	  enabled: true
	  urls: [nats://nats-1:4222, nats://nats-2:4222]
*/
package config
