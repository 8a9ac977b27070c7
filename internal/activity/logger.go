// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/metrics"
)

// Logger writes and loads activity entries.
type Logger struct {
	store Store
	now   func() time.Time
}

// NewLogger creates a logger writing to store.
func NewLogger(store Store) *Logger {
	return &Logger{
		store: store,
		now:   time.Now,
	}
}

// Log validates and persists entry, assigning its ID and CreatedAt when
// unset.
func (l *Logger) Log(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}

	if err := l.store.SaveActivity(ctx, entry); err != nil {
		return fmt.Errorf("save activity for %s %s: %w", entry.ItemType, entry.ItemID, err)
	}

	metrics.RecordActivity(entry.ItemType, entry.Activity)
	logging.Ctx(ctx).Debug().
		Str("item_type", entry.ItemType).
		Str("item_id", entry.ItemID).
		Str("activity", entry.Activity).
		Int("changes", len(entry.Detail.Changes)).
		Msg("Activity logged")
	return nil
}

// LogChanges records entry with the field changes between before and after.
func (l *Logger) LogChanges(ctx context.Context, entry Entry, before, after interface{}) error {
	entry.Detail.Changes = ChangesBetween(entry.ItemType, before, after)
	return l.Log(ctx, &entry)
}

// Load returns the most recent entries for a team's item. A non-positive
// limit uses DefaultLoadLimit.
func (l *Logger) Load(ctx context.Context, teamID int64, itemType, itemID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLoadLimit
	}
	entries, err := l.store.LoadActivity(ctx, Query{
		TeamID:   &teamID,
		ItemType: itemType,
		ItemID:   itemID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("load activity for %s %s: %w", itemType, itemID, err)
	}
	return entries, nil
}
