// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package txstore

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

func personIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%04d", prefix, i)
	}
	return ids
}

func TestInsertAndListMembers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Spans more than one multi-row statement
	ids := personIDs("p", maxRowsPerStatement+250)
	n, err := s.InsertMembers(ctx, 1, intPtr(3), ids)
	checkNoError(t, err)
	if n != int64(len(ids)) {
		t.Errorf("inserted %d, want %d", n, len(ids))
	}

	_, err = s.InsertMembers(ctx, 1, nil, []string{"static-b", "static-a"})
	checkNoError(t, err)
	_, err = s.InsertMembers(ctx, 2, intPtr(3), []string{"p-0000"})
	checkNoError(t, err)

	got, err := s.CohortMembers(ctx, 1, intPtr(3))
	checkNoError(t, err)
	if !reflect.DeepEqual(got, ids) {
		t.Errorf("version 3 has %d members, want %d in order", len(got), len(ids))
	}

	got, err = s.CohortMembers(ctx, 1, nil)
	checkNoError(t, err)
	if !reflect.DeepEqual(got, []string{"static-a", "static-b"}) {
		t.Errorf("unversioned members = %v", got)
	}

	counts, err := s.CountMembersByVersion(ctx, 1)
	checkNoError(t, err)
	if counts[3] != int64(len(ids)) || counts[-1] != 2 {
		t.Errorf("counts = %v", counts)
	}

	if n, err := s.InsertMembers(ctx, 1, intPtr(4), nil); err != nil || n != 0 {
		t.Errorf("empty insert = %d, %v", n, err)
	}
}

func TestDeleteMembersBatches(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMembers(ctx, 1, nil, personIDs("static", 3))
	checkNoError(t, err)
	_, err = s.InsertMembers(ctx, 1, intPtr(1), personIDs("v1", 5))
	checkNoError(t, err)
	_, err = s.InsertMembers(ctx, 1, intPtr(2), personIDs("v2", 5))
	checkNoError(t, err)
	_, err = s.InsertMembers(ctx, 1, intPtr(3), personIDs("v3", 4))
	checkNoError(t, err)

	var rounds int
	for {
		n, err := s.DeleteMembersBatch(ctx, 1, 3, 3)
		checkNoError(t, err)
		if n == 0 {
			break
		}
		if n > 3 {
			t.Fatalf("batch deleted %d rows, limit 3", n)
		}
		rounds++
	}
	if rounds != 2 {
		t.Errorf("deleted version 3 in %d rounds, want 2", rounds)
	}

	var total int64
	for {
		n, err := s.DeleteMembersBeforeBatch(ctx, 1, 2, 4)
		checkNoError(t, err)
		if n == 0 {
			break
		}
		total += n
	}
	if total != 8 {
		t.Errorf("deleted %d rows older than version 2, want 8", total)
	}

	counts, err := s.CountMembersByVersion(ctx, 1)
	checkNoError(t, err)
	if !reflect.DeepEqual(counts, map[int]int64{2: 5}) {
		t.Errorf("remaining = %v, want only version 2", counts)
	}
}

func TestExistingMembers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMembers(ctx, 1, intPtr(1), []string{"a", "b"})
	checkNoError(t, err)
	_, err = s.InsertMembers(ctx, 1, nil, []string{"c"})
	checkNoError(t, err)
	_, err = s.InsertMembers(ctx, 2, nil, []string{"d"})
	checkNoError(t, err)

	existing, err := s.ExistingMembers(ctx, 1, []string{"a", "c", "d", "e"})
	checkNoError(t, err)
	if len(existing) != 2 {
		t.Fatalf("existing = %v", existing)
	}
	for _, id := range []string{"a", "c"} {
		if _, ok := existing[id]; !ok {
			t.Errorf("%s should exist", id)
		}
	}

	none, err := s.ExistingMembers(ctx, 1, nil)
	checkNoError(t, err)
	if len(none) != 0 {
		t.Errorf("nil input returned %v", none)
	}
}
