// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package cohort

import (
	"context"
	"strconv"

	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/metrics"
	"github.com/tomtom215/cohortlens/internal/models"
)

// IngestResult describes one static ingestion.
type IngestResult struct {
	CohortID   int64 `json:"cohort_id"`
	Received   int   `json:"received"`
	Inserted   int   `json:"inserted"`
	Existing   int   `json:"existing"`
	Unresolved int   `json:"unresolved"`

	// Failed is set when an error was recorded on the cohort instead of
	// being returned
	Failed bool  `json:"failed"`
	Err    error `json:"-"`
}

// IngestStaticList adds the persons named by identifiers to the cohort at
// its current version and to the analytical static cohort index.
//
// Identifiers that do not resolve to a person are skipped, as are persons
// already in the cohort. Work proceeds in batches of IngestBatchSize.
//
// A failure is reported and recorded on the cohort (is_calculating cleared,
// errors_calculating incremented), and the result is returned with Failed
// set and a nil error. In debug mode the error is returned immediately
// without touching the cohort row.
func (e *Engine) IngestStaticList(ctx context.Context, cohortID int64, identifiers []string, kind models.IdentifierKind) (IngestResult, error) {
	res := IngestResult{CohortID: cohortID, Received: len(identifiers)}
	if !kind.Valid() {
		return res, models.NewQueryConstructionError("unsupported identifier kind %q", kind)
	}

	err := e.ingest(ctx, cohortID, identifiers, kind, &res)
	if err == nil {
		e.log.IngestionCompleted(ctx, cohortID, res.Received, res.Inserted)
		metrics.RecordStaticIngestion(metrics.ResultSuccess, res.Inserted, res.Existing, res.Unresolved)
		return res, nil
	}

	metrics.RecordStaticIngestion(metrics.ResultFailure, res.Inserted, res.Existing, res.Unresolved)
	if e.cfg.Debug {
		return res, err
	}

	e.log.IngestionFailed(ctx, cohortID, res.Inserted, err)
	e.reporter.Capture(ctx, err, map[string]string{
		"operation": "static_ingestion",
		"cohort_id": strconv.FormatInt(cohortID, 10),
	})
	if finishErr := e.store.FinishCalculation(context.WithoutCancel(ctx), cohortID, false); finishErr != nil {
		logging.CtxErr(ctx, finishErr).Int64("cohort_id", cohortID).Msg("Failed to record ingestion failure")
	}
	res.Failed = true
	res.Err = err
	return res, nil
}

func (e *Engine) ingest(ctx context.Context, cohortID int64, identifiers []string, kind models.IdentifierKind, res *IngestResult) error {
	if err := e.store.MarkCalculating(ctx, cohortID); err != nil {
		return err
	}
	cohort, err := e.store.LoadCohort(ctx, cohortID)
	if err != nil {
		return err
	}
	ctx = logging.ContextWithCohort(ctx, cohort.TeamID, cohort.ID)

	for start := 0; start < len(identifiers); start += e.cfg.IngestBatchSize {
		batch := identifiers[start:min(start+e.cfg.IngestBatchSize, len(identifiers))]

		personIDs, err := e.analytics.ResolvePersons(ctx, cohort.TeamID, batch, kind)
		if err != nil {
			return err
		}
		res.Unresolved += max(len(batch)-len(personIDs), 0)

		existing, err := e.store.ExistingMembers(ctx, cohortID, personIDs)
		if err != nil {
			return err
		}
		fresh := make([]string, 0, len(personIDs))
		for _, id := range personIDs {
			if _, ok := existing[id]; !ok {
				fresh = append(fresh, id)
			}
		}
		res.Existing += len(personIDs) - len(fresh)
		if len(fresh) == 0 {
			continue
		}

		if err := e.analytics.InsertStaticCohort(ctx, cohort.TeamID, cohortID, fresh); err != nil {
			return err
		}
		n, err := e.store.InsertMembers(ctx, cohortID, cohort.Version, fresh)
		if err != nil {
			return err
		}
		res.Inserted += int(n)
	}

	return e.store.FinishCalculation(ctx, cohortID, true)
}
