// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package cohort

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/cohortlens/internal/models"
)

func TestRecalculate_UnreferencedKeepsCountOnly(t *testing.T) {
	env := setupTestEnv(t)
	env.seedPersons(t)
	c := env.createCohort(t, weeklyVisitors(t))
	engine := NewEngine(env.store, env.db, testConfig(), &fakeReporter{})

	res, err := engine.Recalculate(context.Background(), c.ID)
	checkNoError(t, err)
	if res.Materialized || res.Count != 3 || res.Version != 1 {
		t.Errorf("result = %+v", res)
	}

	got := env.load(t, c.ID)
	if got.Version != nil {
		t.Errorf("version = %d, want unset", *got.Version)
	}
	if got.Count == nil || *got.Count != 3 {
		t.Errorf("count = %v, want 3", got.Count)
	}
	if got.PendingVersion == nil || *got.PendingVersion != 1 {
		t.Errorf("pending_version = %v, want 1", got.PendingVersion)
	}
	if got.IsCalculating || got.ErrorsCalculating != 0 || got.LastCalculation == nil {
		t.Errorf("bookkeeping = calculating %v, errors %d, last %v", got.IsCalculating, got.ErrorsCalculating, got.LastCalculation)
	}

	counts, err := env.store.CountMembersByVersion(context.Background(), c.ID)
	checkNoError(t, err)
	if len(counts) != 0 {
		t.Errorf("unreferenced cohort has membership rows: %v", counts)
	}
}

func TestRecalculate_MaterializesAndIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	env.seedPersons(t)
	c := env.createCohort(t, weeklyVisitors(t))
	env.targetWithFlag(t, c.ID)
	engine := NewEngine(env.store, env.db, testConfig(), &fakeReporter{})
	ctx := context.Background()

	want := []string{"u1", "u2", "u3"}
	for run := 1; run <= 2; run++ {
		res, err := engine.Recalculate(ctx, c.ID)
		checkNoError(t, err)
		if !res.Materialized || !res.Swapped || res.Version != run || res.Count != 3 {
			t.Fatalf("run %d: result = %+v", run, res)
		}

		got := env.load(t, c.ID)
		if got.Version == nil || *got.Version != run {
			t.Fatalf("run %d: version = %v", run, got.Version)
		}
		if *got.Count != 3 {
			t.Errorf("run %d: count = %d", run, *got.Count)
		}

		members, err := env.store.CohortMembers(ctx, c.ID, got.Version)
		checkNoError(t, err)
		if !reflect.DeepEqual(members, want) {
			t.Errorf("run %d: members = %v, want %v", run, members, want)
		}

		counts, err := env.store.CountMembersByVersion(ctx, c.ID)
		checkNoError(t, err)
		if !reflect.DeepEqual(counts, map[int]int64{run: 3}) {
			t.Errorf("run %d: rows by version = %v, older versions not purged", run, counts)
		}

		snapshot, err := env.db.CohortSnapshotIDs(ctx, c.ID, run, "", 10)
		checkNoError(t, err)
		if len(snapshot) != 0 {
			t.Errorf("run %d: snapshot not dropped: %v", run, snapshot)
		}
	}
}

func TestRecalculate_FailureCleansUpPendingVersion(t *testing.T) {
	env := setupTestEnv(t)
	env.seedPersons(t)
	c := env.createCohort(t, weeklyVisitors(t))
	env.targetWithFlag(t, c.ID)
	ctx := context.Background()

	_, err := NewEngine(env.store, env.db, testConfig(), &fakeReporter{}).Recalculate(ctx, c.ID)
	checkNoError(t, err)

	// Page 1 holds two ids and is written; page 2 fails
	flaky := &flakyAnalytics{Analytics: env.db, failSnapshotPage: 2}
	res, err := NewEngine(env.store, flaky, testConfig(), &fakeReporter{}).Recalculate(ctx, c.ID)
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	var pwe *models.PartialWriteError
	if !errors.As(err, &pwe) {
		t.Fatalf("expected PartialWriteError, got %T", err)
	}
	if pwe.Version != 2 || pwe.CleanupErr != nil || res.Version != 2 {
		t.Errorf("partial write = %+v, result = %+v", pwe, res)
	}

	got := env.load(t, c.ID)
	if got.Version == nil || *got.Version != 1 || *got.Count != 3 {
		t.Errorf("version/count changed after failure: %v/%v", got.Version, got.Count)
	}
	if got.IsCalculating {
		t.Error("is_calculating left set")
	}
	if got.ErrorsCalculating != 1 {
		t.Errorf("errors_calculating = %d, want 1", got.ErrorsCalculating)
	}

	counts, err := env.store.CountMembersByVersion(ctx, c.ID)
	checkNoError(t, err)
	if !reflect.DeepEqual(counts, map[int]int64{1: 3}) {
		t.Errorf("rows by version = %v, want only version 1", counts)
	}

	// The next success resets the error counter
	_, err = NewEngine(env.store, env.db, testConfig(), &fakeReporter{}).Recalculate(ctx, c.ID)
	checkNoError(t, err)
	if got := env.load(t, c.ID); got.ErrorsCalculating != 0 || *got.Version != 3 {
		t.Errorf("after recovery: errors %d, version %d", got.ErrorsCalculating, *got.Version)
	}
}

func TestRecalculate_OlderGenerationLosesSwap(t *testing.T) {
	env := setupTestEnv(t)
	env.seedPersons(t)
	c := env.createCohort(t, weeklyVisitors(t))
	env.targetWithFlag(t, c.ID)
	ctx := context.Background()

	// A newer generation was published while this run was pending
	won, err := env.store.CompleteCalculation(ctx, c.ID, 10, 7)
	checkNoError(t, err)
	if !won {
		t.Fatal("setup swap lost")
	}

	res, err := NewEngine(env.store, env.db, testConfig(), &fakeReporter{}).Recalculate(ctx, c.ID)
	checkNoError(t, err)
	if res.Swapped || res.Version != 1 {
		t.Errorf("result = %+v, want a lost swap at version 1", res)
	}

	got := env.load(t, c.ID)
	if *got.Version != 10 || *got.Count != 7 {
		t.Errorf("newer generation overwritten: version %d count %d", *got.Version, *got.Count)
	}
	counts, err := env.store.CountMembersByVersion(ctx, c.ID)
	checkNoError(t, err)
	if len(counts) != 0 {
		t.Errorf("losing run left rows: %v", counts)
	}
}

func TestRecalculate_ConcurrentPendingVersionsDiffer(t *testing.T) {
	env := setupTestEnv(t)
	env.seedPersons(t)
	c := env.createCohort(t, weeklyVisitors(t))
	env.targetWithFlag(t, c.ID)
	ctx := context.Background()

	// An earlier trigger took pending version 1 and is still running
	first, err := env.store.BeginCalculation(ctx, c.ID)
	checkNoError(t, err)

	res, err := NewEngine(env.store, env.db, testConfig(), &fakeReporter{}).Recalculate(ctx, c.ID)
	checkNoError(t, err)
	if res.Version != first+1 || !res.Swapped {
		t.Fatalf("second run = %+v, want pending %d and a won swap", res, first+1)
	}

	// The earlier run finishing late must not replace the newer version
	won, err := env.store.CompleteCalculation(ctx, c.ID, first, 99)
	checkNoError(t, err)
	if won {
		t.Error("stale writer won the swap")
	}
	if got := env.load(t, c.ID); *got.Version != first+1 || *got.Count != 3 {
		t.Errorf("version %d count %d after stale completion", *got.Version, *got.Count)
	}
}

func TestRecalculate_Skips(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	engine := NewEngine(env.store, env.db, testConfig(), &fakeReporter{})

	static := env.createCohort(t)
	deleted := env.createCohort(t, weeklyVisitors(t))
	deleted.Deleted = true
	checkNoError(t, env.store.UpdateCohort(ctx, deleted))

	for _, id := range []int64{static.ID, deleted.ID} {
		res, err := engine.Recalculate(ctx, id)
		checkNoError(t, err)
		if !res.Skipped {
			t.Errorf("cohort %d not skipped", id)
		}
		if got := env.load(t, id); got.PendingVersion != nil {
			t.Errorf("cohort %d pending_version = %d, want unset", id, *got.PendingVersion)
		}
	}

	if _, err := engine.Recalculate(ctx, 999); !errors.Is(err, models.ErrCohortNotFound) {
		t.Errorf("missing cohort: expected ErrCohortNotFound, got %v", err)
	}
}

func TestRecalculate_QueryConstructionError(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	g, err := models.ActionGroup(404, 7)
	checkNoError(t, err)
	c := env.createCohort(t, g)

	_, err = NewEngine(env.store, env.db, testConfig(), &fakeReporter{}).Recalculate(ctx, c.ID)
	if !models.IsQueryConstructionError(err) {
		t.Fatalf("expected QueryConstructionError, got %v", err)
	}
	var pwe *models.PartialWriteError
	if errors.As(err, &pwe) {
		t.Error("nothing was written; error should not be a PartialWriteError")
	}

	got := env.load(t, c.ID)
	if got.IsCalculating || got.ErrorsCalculating != 1 || got.Version != nil {
		t.Errorf("bookkeeping after failure = %+v", got)
	}
}
