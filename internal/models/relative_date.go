// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import (
	"regexp"
	"strconv"
	"time"
)

var relativeDatePattern = regexp.MustCompile(`^-(\d+)([hdwmqy])(Start)?$`)

// ParseDateBound resolves an absolute or relative date against ref.
//
// Accepted forms:
//
//	2024-01-10, 2024-01-10T08:00:00Z   absolute
//	-12h, -7d, -2w, -1m, -1q, -1y       ref minus the amount
//	-1mStart                            start of the unit, one unit ago
//	dStart, wStart, mStart, yStart      start of the current unit
func ParseDateBound(s string, ref time.Time) (time.Time, error) {
	ref = ref.UTC()
	switch s {
	case "dStart":
		return IntervalDay.Truncate(ref), nil
	case "wStart":
		return IntervalWeek.Truncate(ref), nil
	case "mStart":
		return IntervalMonth.Truncate(ref), nil
	case "yStart":
		return time.Date(ref.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	}

	if m := relativeDatePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, &QueryConstructionError{Reason: "invalid relative date " + strconv.Quote(s), Err: err}
		}
		t := shiftDate(ref, m[2], -n)
		if m[3] != "" {
			t = startOfUnit(t, m[2])
		}
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(PeriodDayFormat, s); err == nil {
		return t, nil
	}
	return time.Time{}, NewQueryConstructionError("invalid date %q", s)
}

func shiftDate(t time.Time, unit string, n int) time.Time {
	switch unit {
	case "h":
		return t.Add(time.Duration(n) * time.Hour)
	case "d":
		return t.AddDate(0, 0, n)
	case "w":
		return t.AddDate(0, 0, 7*n)
	case "m":
		return t.AddDate(0, n, 0)
	case "q":
		return t.AddDate(0, 3*n, 0)
	default:
		return t.AddDate(n, 0, 0)
	}
}

func startOfUnit(t time.Time, unit string) time.Time {
	switch unit {
	case "h":
		return t.Truncate(time.Hour)
	case "d":
		return IntervalDay.Truncate(t)
	case "w":
		return IntervalWeek.Truncate(t)
	case "m":
		return IntervalMonth.Truncate(t)
	case "q":
		return periodConfig.With(t).BeginningOfQuarter()
	default:
		return periodConfig.With(t).BeginningOfYear()
	}
}
