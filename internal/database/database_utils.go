// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cohortlens/internal/breaker"
	"github.com/tomtom215/cohortlens/internal/metrics"
	"github.com/tomtom215/cohortlens/internal/models"
)

// defaultQueryTimeout applies when the config leaves QueryTimeout unset.
const defaultQueryTimeout = 30 * time.Second

// ensureContext adds the configured query timeout if ctx has no deadline
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := defaultQueryTimeout
	if db.cfg != nil && db.cfg.QueryTimeout > 0 {
		timeout = db.cfg.QueryTimeout
	}

	if ctx == nil {
		return context.WithTimeout(context.Background(), timeout)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	return ctx, func() {}
}

// run executes fn under the query timeout and circuit breaker, records the
// query metrics and classifies the error.
func (db *DB) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.breaker.Execute(func() error {
		return fn(ctx)
	})
	err = models.WrapStoreError(storeName, op, err, breaker.Sentinels...)
	metrics.RecordDBQuery(storeName, op, time.Since(start), err)
	return err
}

// Checkpoint forces a WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// GetDatabasePath returns the path to the database file
func (db *DB) GetDatabasePath() string {
	return db.cfg.Path
}
