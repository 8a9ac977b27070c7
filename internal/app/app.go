// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package app opens the stores and engines shared by the worker and the
// operator CLI.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/cohortlens/internal/activity"
	"github.com/tomtom215/cohortlens/internal/cohort"
	"github.com/tomtom215/cohortlens/internal/config"
	"github.com/tomtom215/cohortlens/internal/database"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/txstore"
)

// App holds the opened stores and the components built on them.
type App struct {
	Config   *config.Config
	DB       *database.DB
	Store    *txstore.Store
	Engine   *cohort.Engine
	Activity *activity.Logger
	Watchdog *cohort.Watchdog
	Reporter logging.Reporter
}

// InitLogging applies the logging section of cfg to the global logger.
func InitLogging(cfg config.LoggingConfig) {
	logging.Init(logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		Caller:    cfg.Caller,
		Timestamp: true,
	})
}

// Open connects both stores and wires the recalculation engine.
func Open(cfg *config.Config) (*App, error) {
	reporter, err := logging.NewReporter(logging.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	db, err := database.New(&cfg.Database, cfg.Breaker)
	if err != nil {
		return nil, fmt.Errorf("open analytical store: %w", err)
	}

	store, err := txstore.Open(&cfg.Store, cfg.Breaker)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Error closing analytical store")
		}
		return nil, fmt.Errorf("open transactional store: %w", err)
	}

	db.SetResolver(store)

	logging.Info().
		Str("duckdb_path", cfg.Database.Path).
		Str("store_driver", store.Driver()).
		Bool("sentry", cfg.Sentry.DSN != "").
		Msg("Stores opened")

	return &App{
		Config:   cfg,
		DB:       db,
		Store:    store,
		Engine:   cohort.NewEngine(store, db, cfg.Cohort, reporter),
		Activity: activity.NewLogger(store),
		Watchdog: cohort.NewWatchdog(store, cfg.Cohort.StaleAfter),
		Reporter: reporter,
	}, nil
}

// Close flushes the reporter and closes both stores.
func (a *App) Close() error {
	a.Reporter.Flush(2 * time.Second)
	return errors.Join(a.Store.Close(), a.DB.Close())
}
