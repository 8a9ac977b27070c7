// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
)

// Sentinel errors for lookups.
var (
	ErrCohortNotFound = errors.New("cohort not found")
	ErrActionNotFound = errors.New("action not found")
	ErrStaticCohort   = errors.New("cohort is static")
)

// QueryConstructionError reports a filter, entity or cohort definition that
// cannot be turned into a query. It is a caller error and must not be retried.
type QueryConstructionError struct {
	Reason string
	Err    error
}

// NewQueryConstructionError formats a QueryConstructionError.
func NewQueryConstructionError(format string, args ...interface{}) *QueryConstructionError {
	return &QueryConstructionError{Reason: fmt.Sprintf(format, args...)}
}

func (e *QueryConstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query construction: %s: %v", e.Reason, e.Err)
	}
	return "query construction: " + e.Reason
}

func (e *QueryConstructionError) Unwrap() error { return e.Err }

// StoreUnavailableError marks a transient failure of the analytical or
// transactional store. The scheduler that triggered the operation is expected
// to retry.
type StoreUnavailableError struct {
	Store string
	Op    string
	Err   error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable during %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// PartialWriteError reports that membership rows for Version were being
// written when the calculation failed. Cleanup of that version has already
// been attempted when this error is returned; CleanupErr is set if it failed.
type PartialWriteError struct {
	CohortID   int64
	Version    int
	Err        error
	CleanupErr error
}

func (e *PartialWriteError) Error() string {
	if e.CleanupErr != nil {
		return fmt.Sprintf("cohort %d version %d partially written: %v (cleanup failed: %v)",
			e.CohortID, e.Version, e.Err, e.CleanupErr)
	}
	return fmt.Sprintf("cohort %d version %d partially written: %v", e.CohortID, e.Version, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// IsQueryConstructionError reports whether err wraps a QueryConstructionError.
func IsQueryConstructionError(err error) bool {
	var qce *QueryConstructionError
	return errors.As(err, &qce)
}

// IsStoreUnavailable reports whether err wraps a StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var sue *StoreUnavailableError
	return errors.As(err, &sue)
}

// WrapStoreError converts connection-level failures into StoreUnavailableError
// and wraps everything else with the operation name. Callers add their own
// breaker-specific sentinels through extra.
func WrapStoreError(store, op string, err error, extra ...error) error {
	if err == nil {
		return nil
	}
	if IsStoreUnavailable(err) || IsQueryConstructionError(err) {
		return err
	}
	transient := errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded)
	for _, sentinel := range extra {
		if errors.Is(err, sentinel) {
			transient = true
			break
		}
	}
	if transient {
		return &StoreUnavailableError{Store: store, Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
