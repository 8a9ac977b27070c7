// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import "time"

// Person is a resolved person record.
type Person struct {
	ID           string                 `json:"id"`
	TeamID       int64                  `json:"team_id"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
	IsIdentified bool                   `json:"is_identified"`
	CreatedAt    time.Time              `json:"created_at"`

	// DistinctIDs are the alternate identifiers known for this person
	DistinctIDs []string `json:"distinct_ids"`
}

// IdentifierKind selects how static cohort identifiers are resolved.
type IdentifierKind string

const (
	IdentifierDistinctID IdentifierKind = "distinct_id"
	IdentifierPersonID   IdentifierKind = "person_id"
)

// Valid reports whether k is a supported identifier kind.
func (k IdentifierKind) Valid() bool {
	return k == IdentifierDistinctID || k == IdentifierPersonID
}
