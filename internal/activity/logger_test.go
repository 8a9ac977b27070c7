// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package activity

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 { return &v }

func TestLogger_Log(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store)
	ctx := context.Background()

	entry := &Entry{
		TeamID:   int64Ptr(1),
		ItemType: "Cohort",
		ItemID:   "7",
		Activity: ActivityCreated,
		Detail:   Detail{Name: "Power users"},
	}
	if err := logger.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("ID and CreatedAt should be assigned: %+v", entry)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored entry, got %d", store.Len())
	}
}

func TestLogger_Scope(t *testing.T) {
	logger := NewLogger(NewMemoryStore(10))
	ctx := context.Background()

	tests := []struct {
		name    string
		entry   Entry
		wantErr error
	}{
		{"team", Entry{TeamID: int64Ptr(1), ItemType: "Cohort", ItemID: "1", Activity: "created"}, nil},
		{"organization", Entry{OrganizationID: "org-1", ItemType: "Cohort", ItemID: "1", Activity: "created"}, nil},
		{"neither", Entry{ItemType: "Cohort", ItemID: "1", Activity: "created"}, ErrScope},
		{"both", Entry{TeamID: int64Ptr(1), OrganizationID: "org-1", ItemType: "Cohort", ItemID: "1", Activity: "created"}, ErrScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := tt.entry
			err := logger.Log(ctx, &entry)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Log error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := logger.Log(ctx, &Entry{TeamID: int64Ptr(1), ItemType: "Cohort"}); err == nil {
		t.Error("missing item id and activity should fail")
	}
}

func TestLogger_LoadNewestFirst(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		err := logger.Log(ctx, &Entry{
			TeamID:    int64Ptr(1),
			ItemType:  "Cohort",
			ItemID:    "7",
			Activity:  ActivityUpdated,
			Detail:    Detail{Name: strconv.Itoa(i)},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Log %d: %v", i, err)
		}
	}
	// Other items and teams are not returned
	_ = logger.Log(ctx, &Entry{TeamID: int64Ptr(2), ItemType: "Cohort", ItemID: "7", Activity: ActivityUpdated})
	_ = logger.Log(ctx, &Entry{TeamID: int64Ptr(1), ItemType: "Cohort", ItemID: "8", Activity: ActivityUpdated})

	entries, err := logger.Load(ctx, 1, "Cohort", "7", 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != DefaultLoadLimit {
		t.Fatalf("expected %d entries, got %d", DefaultLoadLimit, len(entries))
	}
	if entries[0].Detail.Name != "14" || entries[9].Detail.Name != "5" {
		t.Errorf("not newest first: first=%s last=%s", entries[0].Detail.Name, entries[9].Detail.Name)
	}
}

func TestLogger_LogChanges(t *testing.T) {
	store := NewMemoryStore(10)
	logger := NewLogger(store)
	ctx := context.Background()

	type cohort struct {
		Name    string `json:"name"`
		Deleted bool   `json:"deleted"`
	}

	err := logger.LogChanges(ctx, Entry{
		TeamID:   int64Ptr(1),
		ItemType: "Cohort",
		ItemID:   "3",
		Activity: ActivityDeleted,
	}, cohort{Name: "a"}, cohort{Name: "a", Deleted: true})
	if err != nil {
		t.Fatalf("LogChanges: %v", err)
	}

	entries, _ := logger.Load(ctx, 1, "Cohort", "3", 5)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	changes := entries[0].Detail.Changes
	if len(changes) != 1 || changes[0].Field != "deleted" || changes[0].Action != ChangeChanged {
		t.Errorf("changes = %+v", changes)
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	store := NewMemoryStore(20)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_ = store.SaveActivity(ctx, &Entry{ItemID: strconv.Itoa(i)})
	}
	if store.Len() > 20 {
		t.Errorf("store grew past max length: %d", store.Len())
	}
}
