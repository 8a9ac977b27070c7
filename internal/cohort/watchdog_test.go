// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package cohort

import (
	"context"
	"testing"
	"time"
)

func TestWatchdog_Sweep(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	stuck := env.createCohort(t, weeklyVisitors(t))
	fresh := env.createCohort(t, weeklyVisitors(t))

	_, err := env.store.BeginCalculation(ctx, stuck.ID)
	checkNoError(t, err)
	env.store.SetNowForTesting(func() time.Time { return testNow.Add(50 * time.Minute) })
	_, err = env.store.BeginCalculation(ctx, fresh.ID)
	checkNoError(t, err)

	w := NewWatchdog(env.store, time.Hour)
	w.now = func() time.Time { return testNow.Add(90 * time.Minute) }

	n, err := w.Sweep(ctx)
	checkNoError(t, err)
	if n != 1 {
		t.Fatalf("reset %d calculations, want 1", n)
	}

	if got := env.load(t, stuck.ID); got.IsCalculating || got.ErrorsCalculating != 1 {
		t.Errorf("stuck cohort = calculating %v, errors %d", got.IsCalculating, got.ErrorsCalculating)
	}
	if got := env.load(t, fresh.ID); !got.IsCalculating {
		t.Error("fresh calculation was reset")
	}

	n, err = w.Sweep(ctx)
	checkNoError(t, err)
	if n != 0 {
		t.Errorf("second sweep reset %d", n)
	}
}
