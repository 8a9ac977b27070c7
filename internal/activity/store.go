// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package activity

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store in memory.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	entries []Entry
	mu      sync.RWMutex
	maxLen  int
}

// NewMemoryStore creates a new in-memory activity store.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		entries: make([]Entry, 0, 64),
		maxLen:  maxLen,
	}
}

// SaveActivity appends an entry, dropping the oldest tenth when full.
func (s *MemoryStore) SaveActivity(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxLen {
		s.entries = s.entries[max(s.maxLen/10, 1):]
	}
	s.entries = append(s.entries, *entry)
	return nil
}

// LoadActivity returns matching entries, newest first.
func (s *MemoryStore) LoadActivity(_ context.Context, q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Entry
	for i := range s.entries {
		if matches(&s.entries[i], &q) {
			results = append(results, s.entries[i])
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func matches(e *Entry, q *Query) bool {
	if q.TeamID != nil && (e.TeamID == nil || *e.TeamID != *q.TeamID) {
		return false
	}
	if q.OrganizationID != "" && e.OrganizationID != q.OrganizationID {
		return false
	}
	if q.ItemType != "" && e.ItemType != q.ItemType {
		return false
	}
	if q.ItemID != "" && e.ItemID != q.ItemID {
		return false
	}
	return true
}
