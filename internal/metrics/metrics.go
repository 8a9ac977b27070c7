// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/cohortlens/internal/models"
)

// Calculation and ingestion results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	// Store Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohortlens_store_query_duration_seconds",
			Help:    "Duration of analytical and transactional store queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"store", "operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortlens_store_query_errors_total",
			Help: "Total number of store query errors",
		},
		[]string{"store", "operation", "error_type"}, // error_type: "unavailable", "query_construction", "other"
	)

	// Lifecycle Metrics
	LifecycleQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohortlens_lifecycle_query_duration_seconds",
			Help:    "Duration of lifecycle queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query", "interval"}, // query: "compute", "people"
	)

	// Cohort Calculation Metrics
	CohortCalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortlens_cohort_calculations_total",
			Help: "Total number of cohort recalculations by result",
		},
		[]string{"result"},
	)

	CohortCalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cohortlens_cohort_calculation_duration_seconds",
			Help:    "Duration of cohort recalculations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)

	CohortVersionSwaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortlens_cohort_version_swaps_total",
			Help: "Version compare-and-swap outcomes (won, lost)",
		},
		[]string{"outcome"},
	)

	CohortMembershipRowsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohortlens_cohort_membership_rows_inserted_total",
			Help: "Total number of cohort membership rows inserted",
		},
	)

	CohortMembershipRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortlens_cohort_membership_rows_deleted_total",
			Help: "Total number of cohort membership rows deleted",
		},
		[]string{"reason"}, // "stale_version", "failed_version", "lost_swap"
	)

	StaleCalculationsReset = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohortlens_stale_calculations_reset_total",
			Help: "Total number of stuck calculations reset by the watchdog",
		},
	)

	// Static Ingestion Metrics
	StaticIngestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortlens_static_ingestions_total",
			Help: "Total number of static cohort ingestions by result",
		},
		[]string{"result"},
	)

	StaticIngestionIdentifiers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortlens_static_ingestion_identifiers_total",
			Help: "Identifiers seen by static ingestion by outcome",
		},
		[]string{"outcome"}, // "inserted", "existing", "unresolved"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Trigger Transport Metrics
	TriggerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortlens_trigger_messages_total",
			Help: "Trigger messages handled by topic and outcome",
		},
		[]string{"topic", "outcome"}, // outcome: "acked", "dropped", "retried"
	)

	// Activity Log Metrics
	ActivityLogEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortlens_activity_log_entries_total",
			Help: "Activity log entries written by item type and activity",
		},
		[]string{"item_type", "activity"},
	)
)

// errorType buckets an error for the error_type label.
func errorType(err error) string {
	switch {
	case models.IsStoreUnavailable(err):
		return "unavailable"
	case models.IsQueryConstructionError(err):
		return "query_construction"
	default:
		return "other"
	}
}

// RecordDBQuery records duration and, when err is set, the error type.
func RecordDBQuery(store, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(store, operation, errorType(err)).Inc()
	}
}

// RecordLifecycleQuery records a lifecycle compute or people query.
func RecordLifecycleQuery(query string, interval models.Interval, duration time.Duration) {
	LifecycleQueryDuration.WithLabelValues(query, string(interval)).Observe(duration.Seconds())
}

// RecordCalculation records the outcome of one recalculation.
func RecordCalculation(result string, duration time.Duration) {
	CohortCalculations.WithLabelValues(result).Inc()
	if result != ResultSkipped {
		CohortCalculationDuration.Observe(duration.Seconds())
	}
}

// RecordVersionSwap records whether a completed calculation won the swap.
func RecordVersionSwap(won bool) {
	if won {
		CohortVersionSwaps.WithLabelValues("won").Inc()
		return
	}
	CohortVersionSwaps.WithLabelValues("lost").Inc()
}

// RecordMembershipRowsDeleted records rows removed by a cleanup loop.
func RecordMembershipRowsDeleted(reason string, n int) {
	if n > 0 {
		CohortMembershipRowsDeleted.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordStaticIngestion records one ingestion run and its identifier outcomes.
func RecordStaticIngestion(result string, inserted, existing, unresolved int) {
	StaticIngestions.WithLabelValues(result).Inc()
	StaticIngestionIdentifiers.WithLabelValues("inserted").Add(float64(inserted))
	StaticIngestionIdentifiers.WithLabelValues("existing").Add(float64(existing))
	StaticIngestionIdentifiers.WithLabelValues("unresolved").Add(float64(unresolved))
}

// RecordTriggerMessage records the outcome of a trigger message.
func RecordTriggerMessage(topic, outcome string) {
	TriggerMessages.WithLabelValues(topic, outcome).Inc()
}

// RecordActivity records an activity log entry.
func RecordActivity(itemType, activity string) {
	ActivityLogEntries.WithLabelValues(itemType, activity).Inc()
}
