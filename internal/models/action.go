// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

// URLMatching selects how an action step compares $current_url.
type URLMatching string

const (
	URLMatchContains URLMatching = "contains"
	URLMatchExact    URLMatching = "exact"
	URLMatchRegex    URLMatching = "regex"
)

// Action is a named disjunction of event-matching steps.
type Action struct {
	ID      int64        `json:"id"`
	TeamID  int64        `json:"team_id"`
	Name    string       `json:"name"`
	Steps   []ActionStep `json:"steps"`
	Deleted bool         `json:"deleted"`
}

// ActionStep matches events by name, optional URL and properties. All set
// fields must match.
type ActionStep struct {
	Event       string      `json:"event,omitempty"`
	URL         string      `json:"url,omitempty"`
	URLMatching URLMatching `json:"url_matching,omitempty"`
	Properties  []Property  `json:"properties,omitempty"`
}
