// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package services

import (
	"context"
	"time"

	"github.com/tomtom215/cohortlens/internal/logging"
)

// Sweeper is satisfied by *cohort.Watchdog.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// WatchdogService sweeps stuck calculations every interval, starting
// immediately.
type WatchdogService struct {
	sweeper  Sweeper
	interval time.Duration
	name     string
}

// NewWatchdogService wraps sweeper. A non-positive interval means 5m.
func NewWatchdogService(sweeper Sweeper, interval time.Duration) *WatchdogService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &WatchdogService{sweeper: sweeper, interval: interval, name: "calculation-watchdog"}
}

// Serve implements suture.Service.
func (s *WatchdogService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *WatchdogService) sweep(ctx context.Context) {
	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Error().Err(err).Int("reset", n).Msg("Calculation watchdog sweep failed")
		}
		return
	}
	if n > 0 {
		logging.Info().Int("reset", n).Msg("Calculation watchdog reset stuck cohorts")
	}
}

func (s *WatchdogService) String() string {
	return s.name
}
