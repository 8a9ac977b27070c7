// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockSweeper struct {
	calls atomic.Int32
	err   error
}

func (m *mockSweeper) Sweep(ctx context.Context) (int, error) {
	m.calls.Add(1)
	return 1, m.err
}

func TestNewWatchdogService_DefaultInterval(t *testing.T) {
	svc := NewWatchdogService(&mockSweeper{}, 0)
	if svc.interval != 5*time.Minute {
		t.Errorf("expected default interval 5m, got %v", svc.interval)
	}
	if svc.String() != "calculation-watchdog" {
		t.Errorf("unexpected name %q", svc.String())
	}
}

func TestWatchdogService_Serve(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "sweeps repeatedly"},
		{name: "keeps running after sweep errors", err: errors.New("store unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := &mockSweeper{err: tt.err}
			svc := NewWatchdogService(sweeper, 10*time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			err := svc.Serve(ctx)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected context.DeadlineExceeded, got %v", err)
			}
			if got := sweeper.calls.Load(); got < 2 {
				t.Errorf("expected at least 2 sweeps, got %d", got)
			}
		})
	}
}

func TestWatchdogService_SweepsImmediately(t *testing.T) {
	sweeper := &mockSweeper{}
	svc := NewWatchdogService(sweeper, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(time.Second)
	for sweeper.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watchdog did not sweep on start")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
