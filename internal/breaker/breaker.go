// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package breaker wraps sony/gobreaker for the analytical and transactional
// stores, exporting state and request outcomes as Prometheus metrics.
package breaker

import (
	"context"
	"database/sql"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cohortlens/internal/config"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/metrics"
	"github.com/tomtom215/cohortlens/internal/models"
)

// Sentinels are the rejection errors returned while the circuit is open or
// saturated in half-open state. Pass them to models.WrapStoreError so that
// rejections surface as StoreUnavailableError.
var Sentinels = []error{gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests}

// Breaker guards calls to one store.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// New creates a breaker that opens after cfg.ConsecutiveFailures failures in
// a row.
func New(name string, cfg config.BreakerConfig) *Breaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().Str("breaker", name).Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: isSuccessful,
	})

	return &Breaker{cb: cb, name: name}
}

// isSuccessful keeps caller errors from tripping the breaker. Only failures
// that say something about store health count.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		models.IsQueryConstructionError(err)
}

// Name returns the breaker name used in metrics.
func (b *Breaker) Name() string { return b.name }

// State returns the current state as a string.
func (b *Breaker) State() string { return b.cb.State().String() }

// Execute runs fn under breaker protection.
func (b *Breaker) Execute(fn func() error) error {
	_, err := Do(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Do runs fn under breaker protection and returns its typed result.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})

	switch {
	case IsRejected(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return zero, err
	case err != nil:
		outcome := "failure"
		if isSuccessful(err) {
			outcome = "success"
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, outcome).Inc()
		if typed, ok := result.(T); ok {
			return typed, err
		}
		return zero, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	typed, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

// IsRejected reports whether err is a breaker rejection rather than a store error.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
