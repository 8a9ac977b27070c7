// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
Package main is the Cohortlens worker.

The worker consumes cohort recalculation and static ingestion triggers and runs
them against the analytical (DuckDB) and transactional (SQLite or PostgreSQL)
stores. Whatever decides when cohorts are due publishes triggers to the
cohort.recalculate and cohort.ingest topics; the worker does not schedule work
itself.

# Application Architecture

	RootSupervisor ("cohortlens")
	├── StorageSupervisor ("storage-layer")
	│   └── Calculation watchdog (COHORT_WATCHDOG_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Trigger router (NATS JetStream with -tags nats, else in-process)
	└── APISupervisor ("api-layer")
	    └── Prometheus listener (METRICS_ENABLED)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, optional YAML file and environment variables
 2. Logging: zerolog with JSON/console output modes
 3. Error reporting: Sentry when SENTRY_DSN is set
 4. Stores: DuckDB analytical store and the transactional store
 5. Trigger transport and watermill router
 6. Supervisor tree: Suture v4 process supervision

# Shutdown

SIGINT and SIGTERM cancel the tree's context. The router stops consuming,
in-flight handlers finish, then the transport and stores are closed.
*/
package main
