// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/cohortlens/internal/models"
)

// TestRecordDBQuery_ErrorTypes verifies error bucketing for the error_type label
func TestRecordDBQuery_ErrorTypes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{"unavailable", &models.StoreUnavailableError{Store: "duckdb", Op: "q", Err: errors.New("x")}, "unavailable"},
		{"construction", models.NewQueryConstructionError("bad operator"), "query_construction"},
		{"other", errors.New("constraint failed"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := DBQueryErrors.WithLabelValues("test", tt.name, tt.wantType)
			before := testutil.ToFloat64(counter)

			RecordDBQuery("test", tt.name, 10*time.Millisecond, tt.err)

			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("error counter = %v, want %v", got, before+1)
			}
		})
	}
}

func TestRecordDBQuery_SuccessRecordsNoError(t *testing.T) {
	before := testutil.CollectAndCount(DBQueryErrors)
	RecordDBQuery("test", "success_only", time.Millisecond, nil)
	if after := testutil.CollectAndCount(DBQueryErrors); after != before {
		t.Errorf("success should not create error series: before=%d after=%d", before, after)
	}
}

func TestRecordCalculation(t *testing.T) {
	success := CohortCalculations.WithLabelValues(ResultSuccess)
	skipped := CohortCalculations.WithLabelValues(ResultSkipped)
	s0, k0 := testutil.ToFloat64(success), testutil.ToFloat64(skipped)

	RecordCalculation(ResultSuccess, time.Second)
	RecordCalculation(ResultSkipped, 0)

	if testutil.ToFloat64(success) != s0+1 || testutil.ToFloat64(skipped) != k0+1 {
		t.Error("calculation counters not incremented")
	}
}

func TestRecordVersionSwap(t *testing.T) {
	won := CohortVersionSwaps.WithLabelValues("won")
	lost := CohortVersionSwaps.WithLabelValues("lost")
	w0, l0 := testutil.ToFloat64(won), testutil.ToFloat64(lost)

	RecordVersionSwap(true)
	RecordVersionSwap(false)
	RecordVersionSwap(false)

	if testutil.ToFloat64(won) != w0+1 {
		t.Errorf("won = %v, want %v", testutil.ToFloat64(won), w0+1)
	}
	if testutil.ToFloat64(lost) != l0+2 {
		t.Errorf("lost = %v, want %v", testutil.ToFloat64(lost), l0+2)
	}
}

func TestRecordStaticIngestion(t *testing.T) {
	inserted := StaticIngestionIdentifiers.WithLabelValues("inserted")
	existing := StaticIngestionIdentifiers.WithLabelValues("existing")
	i0, e0 := testutil.ToFloat64(inserted), testutil.ToFloat64(existing)

	RecordStaticIngestion(ResultSuccess, 2, 1, 0)

	if testutil.ToFloat64(inserted) != i0+2 || testutil.ToFloat64(existing) != e0+1 {
		t.Error("identifier outcomes not recorded")
	}
}

func TestRecordMembershipRowsDeleted_IgnoresZero(t *testing.T) {
	c := CohortMembershipRowsDeleted.WithLabelValues("lost_swap")
	before := testutil.ToFloat64(c)
	RecordMembershipRowsDeleted("lost_swap", 0)
	RecordMembershipRowsDeleted("lost_swap", 3)
	if got := testutil.ToFloat64(c); got != before+3 {
		t.Errorf("deleted rows = %v, want %v", got, before+3)
	}
}

// TestMetricGathering verifies metrics can be gathered and linted
func TestMetricGathering(t *testing.T) {
	RecordLifecycleQuery("compute", models.IntervalWeek, time.Millisecond)
	RecordTriggerMessage("cohort.recalculate", "acked")
	RecordActivity("cohort", "created")

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint: %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s: %s", p.Metric, p.Text)
	}
}
