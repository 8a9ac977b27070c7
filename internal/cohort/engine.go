// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package cohort

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/cohortlens/internal/config"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/models"
)

// Store is the transactional side of a cohort: its bookkeeping row and its
// versioned membership rows. Implemented by txstore.Store.
type Store interface {
	LoadCohort(ctx context.Context, cohortID int64) (*models.Cohort, error)
	UpdateCohort(ctx context.Context, c *models.Cohort) error
	BeginCalculation(ctx context.Context, cohortID int64) (int, error)
	MarkCalculating(ctx context.Context, cohortID int64) error
	CompleteCalculation(ctx context.Context, cohortID int64, version int, count int64) (bool, error)
	SetCount(ctx context.Context, cohortID int64, count int64) error
	FinishCalculation(ctx context.Context, cohortID int64, succeeded bool) error

	InsertMembers(ctx context.Context, cohortID int64, version *int, personIDs []string) (int64, error)
	DeleteMembersBatch(ctx context.Context, cohortID int64, version, limit int) (int64, error)
	DeleteMembersBeforeBatch(ctx context.Context, cohortID int64, version, limit int) (int64, error)
	ExistingMembers(ctx context.Context, cohortID int64, personIDs []string) (map[string]struct{}, error)

	CohortIDsInFeatureFlags(ctx context.Context) (map[int64]struct{}, error)
}

// Analytics is the analytical side: definition evaluation, snapshots and
// person resolution. Implemented by database.DB.
type Analytics interface {
	MaterializeCohort(ctx context.Context, cohort *models.Cohort, version int) (int64, error)
	CohortSnapshotIDs(ctx context.Context, cohortID int64, version int, afterID string, limit int) ([]string, error)
	DropSnapshot(ctx context.Context, cohortID int64, version int) error
	ResolvePersons(ctx context.Context, teamID int64, identifiers []string, kind models.IdentifierKind) ([]string, error)
	InsertStaticCohort(ctx context.Context, teamID, cohortID int64, personIDs []string) error
}

// Engine recalculates dynamic cohorts and ingests static ones.
type Engine struct {
	store     Store
	analytics Analytics
	cfg       config.CohortConfig
	reporter  logging.Reporter
	log       *logging.CalculationLogger
}

// NewEngine creates an Engine. Zero batch sizes fall back to the defaults.
// A nil reporter only logs.
func NewEngine(store Store, analytics Analytics, cfg config.CohortConfig, reporter logging.Reporter) *Engine {
	if cfg.ReadBatchSize <= 0 {
		cfg.ReadBatchSize = 10000
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = 1000
	}
	if cfg.DeleteBatchSize <= 0 {
		cfg.DeleteBatchSize = 1000
	}
	if cfg.IngestBatchSize <= 0 {
		cfg.IngestBatchSize = 1000
	}
	if reporter == nil {
		reporter, _ = logging.NewReporter(logging.SentryConfig{})
	}
	return &Engine{
		store:     store,
		analytics: analytics,
		cfg:       cfg,
		reporter:  reporter,
		log:       logging.NewCalculationLogger(),
	}
}

// pacer returns a limiter that admits the first call immediately and one
// call per pause afterwards.
func pacer(pause time.Duration) *rate.Limiter {
	if pause <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(pause), 1)
}
