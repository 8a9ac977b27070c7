// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package txstore is the transactional store behind cohort recalculation:
// cohort definitions with their calculation state, materialized membership
// rows (cohort_people), actions, feature flags and the activity log.
//
// # Drivers
//
// Two database/sql drivers are supported, selected by config.StoreConfig:
//
//   - sqlite (default): modernc.org/sqlite, embedded, WAL journal
//   - postgres: github.com/lib/pq
//
// Statements are written with ? placeholders and rebound to $N for
// postgres.
//
// # Calculation State
//
// Version bookkeeping is done in single statements so concurrent
// recalculations of one cohort stay consistent:
//
//	BeginCalculation     pending_version = COALESCE(pending_version, 0) + 1 ... RETURNING
//	CompleteCalculation  version = ?, count = ? WHERE version IS NULL OR version < ?
//
// ListStaleCalculations and ResetCalculation let a watchdog clear rows left
// with is_calculating set by a crashed worker.
//
// # Feature Flags
//
// CohortIDsInFeatureFlags reads the filters of active flags and extracts
// cohort references with gjson. Only cohorts referenced by a flag get
// row-level membership.
package txstore
