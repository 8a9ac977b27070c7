// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package activity

import (
	"context"
	"errors"
	"time"
)

// DefaultLoadLimit is the page size used by Load when none is given.
const DefaultLoadLimit = 10

// ChangeAction describes what happened to a field.
type ChangeAction string

const (
	ChangeCreated ChangeAction = "created"
	ChangeChanged ChangeAction = "changed"
	ChangeDeleted ChangeAction = "deleted"
)

// Common activity names.
const (
	ActivityCreated = "created"
	ActivityUpdated = "updated"
	ActivityDeleted = "deleted"
)

// ErrScope is returned for entries that do not set exactly one of TeamID
// and OrganizationID.
var ErrScope = errors.New("activity entry must have exactly one of team_id or organization_id")

// Change is one field-level difference between two versions of an item.
type Change struct {
	// Type is the item type the field belongs to
	Type string `json:"type"`

	Action ChangeAction `json:"action"`
	Field  string       `json:"field,omitempty"`
	Before interface{}  `json:"before,omitempty"`
	After  interface{}  `json:"after,omitempty"`
}

// Detail is the JSON payload stored with an entry.
type Detail struct {
	Changes []Change `json:"changes,omitempty"`

	// Name is the item's display name at the time of the activity
	Name string `json:"name,omitempty"`
}

// Entry is one activity log row.
type Entry struct {
	ID string `json:"id"`

	// Exactly one of TeamID and OrganizationID is set
	TeamID         *int64 `json:"team_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`

	UserID   *int64 `json:"user_id,omitempty"`
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id"`
	Activity string `json:"activity"`
	Detail   Detail `json:"detail"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the scope and required fields.
func (e *Entry) Validate() error {
	hasTeam := e.TeamID != nil
	hasOrg := e.OrganizationID != ""
	if hasTeam == hasOrg {
		return ErrScope
	}
	if e.ItemType == "" || e.ItemID == "" || e.Activity == "" {
		return errors.New("activity entry requires item_type, item_id and activity")
	}
	return nil
}

// Query selects entries for one item, newest first.
type Query struct {
	TeamID         *int64
	OrganizationID string
	ItemType       string
	ItemID         string
	Limit          int
}

// Store persists activity entries.
type Store interface {
	// SaveActivity appends an entry.
	SaveActivity(ctx context.Context, entry *Entry) error

	// LoadActivity returns entries matching q ordered by created_at
	// descending, at most q.Limit of them.
	LoadActivity(ctx context.Context, q Query) ([]Entry, error)
}
