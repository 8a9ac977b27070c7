// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// Interval is the granularity that activity is bucketed into.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
)

// Period label formats used in lifecycle series.
const (
	PeriodDayFormat   = "2006-01-02"
	PeriodLabelFormat = "2-Jan-2006"
)

// periodConfig pins truncation to UTC with Monday-based weeks so that Go-side
// period math agrees with DuckDB's DATE_TRUNC('week', ...).
var periodConfig = &now.Config{
	WeekStartDay: time.Monday,
	TimeLocation: time.UTC,
}

// ParseInterval parses an interval name. An empty string defaults to day.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case "":
		return IntervalDay, nil
	case IntervalDay, IntervalWeek, IntervalMonth:
		return Interval(s), nil
	}
	return "", NewQueryConstructionError("unsupported interval %q", s)
}

// Valid reports whether i is one of the supported granularities.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth:
		return true
	}
	return false
}

// SQLUnit returns the unit name accepted by DATE_TRUNC and INTERVAL literals.
func (i Interval) SQLUnit() string {
	switch i {
	case IntervalWeek:
		return "week"
	case IntervalMonth:
		return "month"
	default:
		return "day"
	}
}

// Truncate returns the start of the period containing t, in UTC.
func (i Interval) Truncate(t time.Time) time.Time {
	n := periodConfig.With(t.UTC())
	switch i {
	case IntervalWeek:
		return n.BeginningOfWeek()
	case IntervalMonth:
		return n.BeginningOfMonth()
	default:
		return n.BeginningOfDay()
	}
}

// Add moves t by n periods. t is expected to be truncated already.
func (i Interval) Add(t time.Time, n int) time.Time {
	switch i {
	case IntervalWeek:
		return t.AddDate(0, 0, 7*n)
	case IntervalMonth:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Periods returns every period start between from and to, both truncated and
// inclusive.
func (i Interval) Periods(from, to time.Time) []time.Time {
	start := i.Truncate(from)
	end := i.Truncate(to)
	if end.Before(start) {
		return nil
	}
	var periods []time.Time
	for p := start; !p.After(end); p = i.Add(p, 1) {
		periods = append(periods, p)
	}
	return periods
}

// QueryWindow returns the half-open range [start, end) scanned for activity.
// The start is widened by one period so the first reported period can see the
// period before it; the end covers the whole of the last reported period.
func (i Interval) QueryWindow(from, to time.Time) (time.Time, time.Time) {
	return i.Add(i.Truncate(from), -1), i.Add(i.Truncate(to), 1)
}

func (i Interval) String() string { return string(i) }

// FormatPeriod renders a period start for series day keys.
func FormatPeriod(t time.Time) string {
	return t.UTC().Format(PeriodDayFormat)
}

// ParsePeriod parses a period given either as a date or an RFC3339 timestamp.
func ParsePeriod(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(PeriodDayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return t, nil
}
