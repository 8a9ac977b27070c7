// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package cohort

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/metrics"
	"github.com/tomtom215/cohortlens/internal/models"
)

// StaleStore exposes calculations that were never finished.
type StaleStore interface {
	ListStaleCalculations(ctx context.Context, cutoff time.Time) ([]models.CalculationStatus, error)
	ResetCalculation(ctx context.Context, cohortID int64, cutoff time.Time) (bool, error)
}

// Watchdog clears is_calculating on cohorts whose worker died mid-run.
// Rows the dead run wrote stay until a later generation wins its swap and
// purges older versions.
type Watchdog struct {
	store      StaleStore
	staleAfter time.Duration
	now        func() time.Time
}

// NewWatchdog creates a Watchdog treating calculations older than
// staleAfter as stuck.
func NewWatchdog(store StaleStore, staleAfter time.Duration) *Watchdog {
	return &Watchdog{store: store, staleAfter: staleAfter, now: time.Now}
}

// Sweep resets every stuck calculation and returns how many were reset.
func (w *Watchdog) Sweep(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.staleAfter)
	stale, err := w.store.ListStaleCalculations(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep stale calculations: %w", err)
	}

	reset := 0
	for _, st := range stale {
		ok, err := w.store.ResetCalculation(ctx, st.CohortID, cutoff)
		if err != nil {
			return reset, err
		}
		if !ok {
			continue
		}
		reset++
		metrics.StaleCalculationsReset.Inc()

		event := logging.Warn().Int64("cohort_id", st.CohortID).Int64("team_id", st.TeamID)
		if st.PendingVersion != nil {
			event = event.Int("pending_version", *st.PendingVersion)
		}
		if st.CalculationStartedAt != nil {
			event = event.Time("started_at", *st.CalculationStartedAt)
		}
		event.Msg("Reset stuck cohort calculation")
	}
	return reset, nil
}
