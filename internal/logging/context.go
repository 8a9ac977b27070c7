// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	messageIDKey     contextKey = "message_id"
	cohortIDKey      contextKey = "cohort_id"
	teamIDKey        contextKey = "team_id"
	loggerKey        contextKey = "logger"
)

// GenerateCorrelationID creates a short correlation ID (first 8 characters of
// a UUID) for readability in logs.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID, or "" if absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithMessageID records the trigger message being processed.
func ContextWithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDKey, id)
}

// MessageIDFromContext retrieves the trigger message ID, or "" if absent.
func MessageIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(messageIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithCohort records the cohort (and its team) an operation acts on.
func ContextWithCohort(ctx context.Context, teamID, cohortID int64) context.Context {
	ctx = context.WithValue(ctx, teamIDKey, teamID)
	return context.WithValue(ctx, cohortIDKey, cohortID)
}

// CohortIDFromContext retrieves the cohort ID, or 0 if absent.
func CohortIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(cohortIDKey).(int64); ok {
		return id
	}
	return 0
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context, falling back to the
// global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the context's correlation, message, team and
// cohort ids attached.
//
//	logging.Ctx(ctx).Info().Msg("Snapshot materialized")
//	// {"level":"info","correlation_id":"abc12345","cohort_id":7,"message":"Snapshot materialized"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := CtxWith(ctx).Logger()
	return &logger
}

// CtxWith returns a logger context builder with context values pre-populated.
//
//	logger := logging.CtxWith(ctx).Int("version", v).Logger()
func CtxWith(ctx context.Context) zerolog.Context {
	logger := LoggerFromContext(ctx)
	logCtx := logger.With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := MessageIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("message_id", id)
	}
	if id, ok := ctx.Value(teamIDKey).(int64); ok {
		logCtx = logCtx.Int64("team_id", id)
	}
	if id := CohortIDFromContext(ctx); id != 0 {
		logCtx = logCtx.Int64("cohort_id", id)
	}
	return logCtx
}

// CtxErr starts an error level message with context fields and the error.
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Err(err)
}
