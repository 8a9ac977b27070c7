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

// Cleanup reasons used for the rows-deleted metric.
const (
	reasonFailed   = "failed"
	reasonLostSwap = "lost_swap"
	reasonStale    = "stale_version"
)

// Result describes one recalculation.
type Result struct {
	CohortID int64 `json:"cohort_id"`

	// Version is the generation this run computed (its pending version)
	Version int   `json:"version"`
	Count   int64 `json:"count"`

	// Materialized is set when membership rows were written because a
	// feature flag targets the cohort
	Materialized bool `json:"materialized"`

	// Swapped is false when a newer generation had already been published
	Swapped bool `json:"swapped"`

	// Skipped is set for static or deleted cohorts
	Skipped bool `json:"skipped"`
}

// Recalculate evaluates a dynamic cohort into a new generation.
//
// The pending version is incremented atomically in the store, so concurrent
// runs for the same cohort never share a version. Membership rows are only
// written for cohorts referenced by an active feature flag; otherwise only
// the count is kept. Publication is a compare-and-swap that never replaces a
// newer version. is_calculating is cleared on every exit path.
//
// On failure the rows written for the pending version are deleted, version
// and count are left as they were, errors_calculating is incremented, and
// the error is returned. Failures while rows were being written are wrapped
// in *models.PartialWriteError.
func (e *Engine) Recalculate(ctx context.Context, cohortID int64) (res Result, err error) {
	res.CohortID = cohortID

	cohort, err := e.store.LoadCohort(ctx, cohortID)
	if err != nil {
		return res, err
	}
	ctx = logging.ContextWithCohort(ctx, cohort.TeamID, cohort.ID)

	if cohort.IsStatic || cohort.Deleted {
		logging.Ctx(ctx).Debug().
			Int64("cohort_id", cohortID).
			Bool("static", cohort.IsStatic).
			Bool("deleted", cohort.Deleted).
			Msg("Skipping cohort recalculation")
		metrics.RecordCalculation(metrics.ResultSkipped, 0)
		res.Skipped = true
		return res, nil
	}

	pending, err := e.store.BeginCalculation(ctx, cohortID)
	if err != nil {
		return res, err
	}
	res.Version = pending

	start := time.Now()
	e.log.Started(ctx, cohortID, pending)

	succeeded := false
	defer func() {
		// Runs even when ctx has been cancelled.
		finishErr := e.store.FinishCalculation(context.WithoutCancel(ctx), cohortID, succeeded)
		if finishErr != nil {
			logging.CtxErr(ctx, finishErr).Int64("cohort_id", cohortID).Msg("Failed to clear calculation flag")
			if err == nil {
				err = finishErr
			}
		}
	}()

	if err = e.calculate(ctx, cohort, pending, &res); err != nil {
		took := time.Since(start)
		e.log.Failed(ctx, cohortID, pending, err, took)
		metrics.RecordCalculation(metrics.ResultFailure, took)
		return res, err
	}

	succeeded = true
	took := time.Since(start)
	e.log.Completed(ctx, cohortID, pending, res.Count, res.Materialized, res.Swapped, took)
	metrics.RecordCalculation(metrics.ResultSuccess, took)
	return res, nil
}

func (e *Engine) calculate(ctx context.Context, cohort *models.Cohort, pending int, res *Result) error {
	cleanupCtx := context.WithoutCancel(ctx)

	count, err := e.analytics.MaterializeCohort(ctx, cohort, pending)
	if err != nil {
		e.cleanupFailed(cleanupCtx, cohort.ID, pending)
		return err
	}
	defer func() {
		if err := e.analytics.DropSnapshot(cleanupCtx, cohort.ID, pending); err != nil {
			logging.CtxErr(ctx, err).Int("version", pending).Msg("Failed to drop cohort snapshot")
		}
	}()
	res.Count = count

	referenced, err := e.store.CohortIDsInFeatureFlags(ctx)
	if err != nil {
		e.cleanupFailed(cleanupCtx, cohort.ID, pending)
		return err
	}
	if _, ok := referenced[cohort.ID]; !ok {
		return e.store.SetCount(ctx, cohort.ID, count)
	}

	res.Materialized = true
	if err := e.writeMembers(ctx, cohort.ID, pending); err != nil {
		return &models.PartialWriteError{
			CohortID:   cohort.ID,
			Version:    pending,
			Err:        err,
			CleanupErr: e.deleteVersion(cleanupCtx, cohort.ID, pending, reasonFailed),
		}
	}

	won, err := e.store.CompleteCalculation(ctx, cohort.ID, pending, count)
	if err != nil {
		return &models.PartialWriteError{
			CohortID:   cohort.ID,
			Version:    pending,
			Err:        err,
			CleanupErr: e.deleteVersion(cleanupCtx, cohort.ID, pending, reasonFailed),
		}
	}
	metrics.RecordVersionSwap(won)
	res.Swapped = won

	// The outcome is settled at this point; cleanup errors are only logged.
	if won {
		if err := e.deleteBefore(ctx, cohort.ID, pending); err != nil {
			logging.CtxErr(ctx, err).Int("version", pending).Msg("Failed to purge older cohort versions")
		}
		return nil
	}
	if err := e.deleteVersion(ctx, cohort.ID, pending, reasonLostSwap); err != nil {
		logging.CtxErr(ctx, err).Int("version", pending).Msg("Failed to delete superseded cohort version")
	}
	return nil
}

// writeMembers copies the snapshot into cohort_people, one read batch at a
// time, pacing successive batches by BatchPause.
func (e *Engine) writeMembers(ctx context.Context, cohortID int64, version int) error {
	limiter := pacer(e.cfg.BatchPause)
	after := ""
	for {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pace cohort %d batch: %w", cohortID, err)
		}

		ids, err := e.analytics.CohortSnapshotIDs(ctx, cohortID, version, after, e.cfg.ReadBatchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		for start := 0; start < len(ids); start += e.cfg.InsertBatchSize {
			chunk := ids[start:min(start+e.cfg.InsertBatchSize, len(ids))]
			if _, err := e.store.InsertMembers(ctx, cohortID, &version, chunk); err != nil {
				return err
			}
		}
		after = ids[len(ids)-1]
	}
}

// cleanupFailed removes rows of a version that failed before any were
// written. Nothing should be there; a failing store is only logged.
func (e *Engine) cleanupFailed(ctx context.Context, cohortID int64, version int) {
	if err := e.deleteVersion(ctx, cohortID, version, reasonFailed); err != nil {
		logging.CtxErr(ctx, err).Int("version", version).Msg("Failed to clean up cohort version")
	}
}

// deleteVersion deletes every row of one version in paced batches.
func (e *Engine) deleteVersion(ctx context.Context, cohortID int64, version int, reason string) error {
	return e.deleteLoop(ctx, reason, func(ctx context.Context) (int64, error) {
		return e.store.DeleteMembersBatch(ctx, cohortID, version, e.cfg.DeleteBatchSize)
	})
}

// deleteBefore deletes rows of every version older than version.
func (e *Engine) deleteBefore(ctx context.Context, cohortID int64, version int) error {
	return e.deleteLoop(ctx, reasonStale, func(ctx context.Context) (int64, error) {
		return e.store.DeleteMembersBeforeBatch(ctx, cohortID, version, e.cfg.DeleteBatchSize)
	})
}

func (e *Engine) deleteLoop(ctx context.Context, reason string, batch func(ctx context.Context) (int64, error)) error {
	limiter := pacer(e.cfg.CleanupPause)
	var total int64
	defer func() { metrics.RecordMembershipRowsDeleted(reason, int(total)) }()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pace cleanup: %w", err)
		}
		n, err := batch(ctx)
		if err != nil {
			return err
		}
		total += n
		if n < int64(e.cfg.DeleteBatchSize) {
			return nil
		}
	}
}
