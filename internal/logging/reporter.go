// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter captures errors that are handled locally but must still reach an
// operator, such as swallowed static ingestion failures.
type Reporter interface {
	Capture(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// SentryConfig configures error reporting. An empty DSN disables reporting.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
	Debug       bool

	// BeforeSend is passed through to the Sentry client (tests use it to
	// intercept events).
	BeforeSend func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event
}

// NewReporter returns a Sentry-backed Reporter, or a log-only Reporter when
// cfg.DSN is empty.
func NewReporter(cfg SentryConfig) (Reporter, error) {
	if cfg.DSN == "" {
		return logReporter{}, nil
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  sampleRate,
		Debug:       cfg.Debug,
		BeforeSend:  cfg.BeforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("create sentry client: %w", err)
	}
	return &sentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

type sentryReporter struct {
	hub *sentry.Hub
}

func (r *sentryReporter) Capture(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	CtxErr(ctx, err).Fields(tagFields(tags)).Msg("Reporting error")

	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if id := CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		if id := CohortIDFromContext(ctx); id != 0 {
			scope.SetTag("cohort_id", fmt.Sprint(id))
		}
		hub.CaptureException(err)
	})
}

func (r *sentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

// logReporter only logs.
type logReporter struct{}

func (logReporter) Capture(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	CtxErr(ctx, err).Fields(tagFields(tags)).Msg("Reporting error")
}

func (logReporter) Flush(time.Duration) bool { return true }

func tagFields(tags map[string]string) map[string]interface{} {
	fields := make(map[string]interface{}, len(tags))
	for k, v := range tags {
		fields[k] = v
	}
	return fields
}
