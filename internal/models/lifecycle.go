// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import "time"

// Classification is the lifecycle state of a (person, period) pair.
type Classification string

const (
	// ClassificationNew: created within the period and active in it
	ClassificationNew Classification = "new"

	// ClassificationReturning: active in the period and the one before it
	ClassificationReturning Classification = "returning"

	// ClassificationResurrecting: active in the period, absent in the one
	// before it, and not new
	ClassificationResurrecting Classification = "resurrecting"

	// ClassificationDormant: absent in the period, active in the one before it
	ClassificationDormant Classification = "dormant"
)

// Classifications lists every classification in priority order.
var Classifications = []Classification{
	ClassificationNew,
	ClassificationReturning,
	ClassificationResurrecting,
	ClassificationDormant,
}

// ParseClassification parses a classification name.
func ParseClassification(s string) (Classification, error) {
	c := Classification(s)
	if c.Priority() < 0 {
		return "", NewQueryConstructionError("unknown lifecycle classification %q", s)
	}
	return c, nil
}

// Priority is the stable sort key within a period. Unknown values return -1.
func (c Classification) Priority() int {
	for i, known := range Classifications {
		if c == known {
			return i
		}
	}
	return -1
}

func (c Classification) String() string { return string(c) }

// LifecycleRow is one non-empty (period, classification) bucket.
type LifecycleRow struct {
	Period         time.Time      `json:"period"`
	Classification Classification `json:"status"`
	Count          int64          `json:"count"`

	// Label is "<entity name> - <status>"
	Label string `json:"label"`
}

// LifecycleSeries is the dense per-classification series used for charts.
// Periods without activity are present with a zero count.
type LifecycleSeries struct {
	Classification Classification `json:"status"`
	Label          string         `json:"label"`
	Days           []string       `json:"days"`
	Labels         []string       `json:"labels"`
	Data           []int64        `json:"data"`
	Count          int64          `json:"count"`
}

// LifecycleQueryMetadata provides query provenance information
type LifecycleQueryMetadata struct {
	// QueryHash is a deterministic hash of the filter
	QueryHash string `json:"query_hash"`

	EntityName string    `json:"entity_name"`
	Interval   Interval  `json:"interval"`
	DateFrom   time.Time `json:"date_from"`
	DateTo     time.Time `json:"date_to"`

	GeneratedAt time.Time `json:"generated_at"`
	QueryTimeMs int64     `json:"query_time_ms"`
}

// LifecycleResult is the output of a lifecycle query.
type LifecycleResult struct {
	// Rows are ordered by period, then classification priority
	Rows []LifecycleRow `json:"rows"`

	// Series holds one entry per classification, in priority order
	Series []LifecycleSeries `json:"series"`

	Metadata LifecycleQueryMetadata `json:"metadata"`
}

// Count returns the count for a (period, classification) pair, zero if absent.
func (r *LifecycleResult) Count(period time.Time, c Classification) int64 {
	for _, row := range r.Rows {
		if row.Classification == c && row.Period.Equal(period) {
			return row.Count
		}
	}
	return 0
}

// LifecyclePeoplePage is one page of persons behind a lifecycle bucket.
type LifecyclePeoplePage struct {
	Period         time.Time      `json:"period"`
	Classification Classification `json:"status"`
	People         []Person       `json:"people"`
	Offset         int            `json:"offset"`
	Limit          int            `json:"limit"`

	// NextOffset is set when the page was full and more rows may follow
	NextOffset *int `json:"next_offset,omitempty"`
}
