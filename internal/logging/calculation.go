// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package logging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Calculation event names, emitted in the "event" field.
const (
	EventCalculationStarted   = "cohort_calculation_started"
	EventCalculationCompleted = "cohort_calculation_completed"
	EventCalculationFailed    = "cohort_calculation_failed"
	EventIngestionCompleted   = "cohort_ingestion_completed"
	EventIngestionFailed      = "cohort_ingestion_failed"
)

// CalculationLogger emits the structured events of cohort recalculation and
// static ingestion.
type CalculationLogger struct {
	logger zerolog.Logger
}

// NewCalculationLogger creates a CalculationLogger on the global logger.
func NewCalculationLogger() *CalculationLogger {
	return &CalculationLogger{logger: WithComponent("cohort")}
}

// NewCalculationLoggerWithLogger creates a CalculationLogger on logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCalculationLoggerWithLogger(logger zerolog.Logger) *CalculationLogger {
	return &CalculationLogger{logger: logger.With().Str("component", "cohort").Logger()}
}

func (l *CalculationLogger) event(ctx context.Context, e *zerolog.Event, name string, cohortID int64) *zerolog.Event {
	if id := CorrelationIDFromContext(ctx); id != "" {
		e = e.Str("correlation_id", id)
	}
	if id := MessageIDFromContext(ctx); id != "" {
		e = e.Str("message_id", id)
	}
	return e.Str("event", name).Int64("cohort_id", cohortID)
}

// Started logs the start of a recalculation at pendingVersion.
func (l *CalculationLogger) Started(ctx context.Context, cohortID int64, pendingVersion int) {
	l.event(ctx, l.logger.Info(), EventCalculationStarted, cohortID).
		Int("pending_version", pendingVersion).
		Msg("Cohort calculation started")
}

// Completed logs a successful recalculation. swapped is false when a newer
// generation had already been committed.
func (l *CalculationLogger) Completed(ctx context.Context, cohortID int64, version int, count int64, materialized, swapped bool, took time.Duration) {
	l.event(ctx, l.logger.Info(), EventCalculationCompleted, cohortID).
		Int("version", version).
		Int64("count", count).
		Bool("materialized", materialized).
		Bool("swapped", swapped).
		Dur("duration", took).
		Msg("Cohort calculation completed")
}

// Failed logs a failed recalculation.
func (l *CalculationLogger) Failed(ctx context.Context, cohortID int64, pendingVersion int, err error, took time.Duration) {
	l.event(ctx, l.logger.Error(), EventCalculationFailed, cohortID).
		Err(err).
		Int("pending_version", pendingVersion).
		Dur("duration", took).
		Msg("Cohort calculation failed")
}

// IngestionCompleted logs a finished static ingestion.
func (l *CalculationLogger) IngestionCompleted(ctx context.Context, cohortID int64, received, inserted int) {
	l.event(ctx, l.logger.Info(), EventIngestionCompleted, cohortID).
		Int("received", received).
		Int("inserted", inserted).
		Msg("Static cohort ingestion completed")
}

// IngestionFailed logs a failed static ingestion.
func (l *CalculationLogger) IngestionFailed(ctx context.Context, cohortID int64, inserted int, err error) {
	l.event(ctx, l.logger.Error(), EventIngestionFailed, cohortID).
		Err(err).
		Int("inserted", inserted).
		Msg("Static cohort ingestion failed")
}
