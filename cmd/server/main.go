// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cohortlens/internal/app"
	"github.com/tomtom215/cohortlens/internal/config"
	"github.com/tomtom215/cohortlens/internal/eventprocessor"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/supervisor"
	"github.com/tomtom215/cohortlens/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	app.InitLogging(cfg.Logging)
	logging.Info().Msg("Starting Cohortlens worker with supervisor tree")

	a, err := app.Open(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open stores")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing stores")
		}
	}()

	wmLogger := logging.NewWatermillAdapter()

	transport, err := eventprocessor.NewTransport(&cfg.NATS, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create trigger transport")
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing trigger transport")
		}
	}()
	if !cfg.NATS.Enabled {
		logging.Warn().Msg("NATS disabled (NATS_ENABLED=false): only triggers published in-process are consumed")
	}

	router, err := eventprocessor.NewRouter(eventprocessor.RouterConfigFromNATS(&cfg.NATS), transport.Publisher, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create trigger router")
	}
	router.Register(eventprocessor.NewHandlers(a.Engine), transport.Subscriber)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewRouterService(router))
	logging.Info().
		Bool("nats", cfg.NATS.Enabled).
		Bool("embedded_server", cfg.NATS.EmbeddedServer).
		Msg("Trigger router added to supervisor tree")

	if cfg.Metrics.Enabled {
		tree.AddAPIService(services.NewMetricsService(cfg.Metrics, 0))
		logging.Info().
			Str("address", cfg.Metrics.Address).
			Str("path", cfg.Metrics.Path).
			Msg("Metrics listener added to supervisor tree")
	}

	if cfg.Cohort.WatchdogEnabled {
		tree.AddStorageService(services.NewWatchdogService(a.Watchdog, cfg.Cohort.WatchdogInterval))
		logging.Info().
			Dur("interval", cfg.Cohort.WatchdogInterval).
			Dur("stale_after", cfg.Cohort.StaleAfter).
			Msg("Calculation watchdog added to supervisor tree")
	} else {
		logging.Info().Msg("Calculation watchdog disabled (COHORT_WATCHDOG_ENABLED=false)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within shutdown timeout")
		}
	}

	logging.Info().Msg("Cohortlens worker stopped")
}
