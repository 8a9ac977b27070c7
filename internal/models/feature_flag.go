// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import "github.com/goccy/go-json"

// FeatureFlag is the part of a feature flag the recalculation engine needs:
// its filters may reference cohorts, whose memberships must then be
// materialized row by row.
type FeatureFlag struct {
	ID     int64  `json:"id"`
	TeamID int64  `json:"team_id"`
	Key    string `json:"key"`

	// Filters is the raw filter document, e.g.
	// {"groups": [{"properties": [{"key": "id", "type": "cohort", "value": 5}]}]}
	Filters json.RawMessage `json:"filters"`

	Active  bool `json:"active"`
	Deleted bool `json:"deleted"`
}
