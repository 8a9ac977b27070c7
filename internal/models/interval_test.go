// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIntervalTruncate(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		interval Interval
		want     time.Time
	}{
		{IntervalDay, date(2024, 1, 10)},
		{IntervalWeek, date(2024, 1, 8)},
		{IntervalMonth, date(2024, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			if got := tt.interval.Truncate(ts); !got.Equal(tt.want) {
				t.Errorf("Truncate(%v) = %v, want %v", ts, got, tt.want)
			}
		})
	}
}

func TestIntervalTruncate_WeekStartsMonday(t *testing.T) {
	t.Parallel()

	sunday := time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC)
	if got := IntervalWeek.Truncate(sunday); !got.Equal(date(2024, 1, 8)) {
		t.Errorf("Sunday truncated to %v, want 2024-01-08", got)
	}
	monday := date(2024, 1, 15)
	if got := IntervalWeek.Truncate(monday); !got.Equal(monday) {
		t.Errorf("Monday truncated to %v, want itself", got)
	}
}

func TestIntervalTruncate_ConvertsToUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2024, 3, 1, 2, 0, 0, 0, loc) // 2024-02-29 21:00 UTC
	if got := IntervalDay.Truncate(ts); !got.Equal(date(2024, 2, 29)) {
		t.Errorf("Truncate = %v, want 2024-02-29", got)
	}
}

func TestIntervalAdd(t *testing.T) {
	t.Parallel()

	if got := IntervalMonth.Add(date(2024, 1, 1), -1); !got.Equal(date(2023, 12, 1)) {
		t.Errorf("month -1 = %v", got)
	}
	if got := IntervalWeek.Add(date(2024, 1, 8), 2); !got.Equal(date(2024, 1, 22)) {
		t.Errorf("week +2 = %v", got)
	}
	if got := IntervalDay.Add(date(2024, 2, 28), 1); !got.Equal(date(2024, 2, 29)) {
		t.Errorf("day +1 = %v", got)
	}
}

func TestIntervalPeriods(t *testing.T) {
	t.Parallel()

	periods := IntervalWeek.Periods(date(2024, 1, 10), date(2024, 1, 25))
	want := []time.Time{date(2024, 1, 8), date(2024, 1, 15), date(2024, 1, 22)}
	if len(periods) != len(want) {
		t.Fatalf("got %d periods, want %d: %v", len(periods), len(want), periods)
	}
	for i := range want {
		if !periods[i].Equal(want[i]) {
			t.Errorf("period[%d] = %v, want %v", i, periods[i], want[i])
		}
	}

	if got := IntervalDay.Periods(date(2024, 1, 2), date(2024, 1, 1)); got != nil {
		t.Errorf("reversed range should yield no periods, got %v", got)
	}
}

func TestIntervalQueryWindow(t *testing.T) {
	t.Parallel()

	start, end := IntervalWeek.QueryWindow(date(2024, 1, 10), date(2024, 1, 25))
	if !start.Equal(date(2024, 1, 1)) {
		t.Errorf("start = %v, want 2024-01-01", start)
	}
	if !end.Equal(date(2024, 1, 29)) {
		t.Errorf("end = %v, want 2024-01-29", end)
	}
}

func TestParseInterval(t *testing.T) {
	t.Parallel()

	if i, err := ParseInterval(""); err != nil || i != IntervalDay {
		t.Errorf("empty interval = %q, %v; want day", i, err)
	}
	if i, err := ParseInterval("month"); err != nil || i != IntervalMonth {
		t.Errorf("month = %q, %v", i, err)
	}
	_, err := ParseInterval("hour")
	if !IsQueryConstructionError(err) {
		t.Errorf("hour should be a QueryConstructionError, got %v", err)
	}
}
