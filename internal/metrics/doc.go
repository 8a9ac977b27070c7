// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
served by the supervised metrics listener (see internal/supervisor/services).

# Available Metrics

Stores:
  - cohortlens_store_query_duration_seconds{store, operation}
  - cohortlens_store_query_errors_total{store, operation, error_type}
  - circuit_breaker_state / _requests_total / _state_transitions_total{name}

Lifecycle:
  - cohortlens_lifecycle_query_duration_seconds{query, interval}

Cohorts:
  - cohortlens_cohort_calculations_total{result}
  - cohortlens_cohort_calculation_duration_seconds
  - cohortlens_cohort_version_swaps_total{outcome}
  - cohortlens_cohort_membership_rows_inserted_total
  - cohortlens_cohort_membership_rows_deleted_total{reason}
  - cohortlens_stale_calculations_reset_total
  - cohortlens_static_ingestions_total{result}
  - cohortlens_static_ingestion_identifiers_total{outcome}

Transport and audit:
  - cohortlens_trigger_messages_total{topic, outcome}
  - cohortlens_activity_log_entries_total{item_type, activity}

# Example PromQL

	# Failed recalculations over the last hour
	increase(cohortlens_cohort_calculations_total{result="failure"}[1h])

	# Generations that lost the version swap to a newer run
	rate(cohortlens_cohort_version_swaps_total{outcome="lost"}[5m])
*/
package metrics
