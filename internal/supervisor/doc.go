// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
Package supervisor provides process supervision for the Cohortlens worker using
suture v4.

The tree organizes long-running services into three layers:

	RootSupervisor ("cohortlens")
	├── StorageSupervisor ("storage-layer")
	│   └── WatchdogService (if COHORT_WATCHDOG_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   └── RouterService (recalculation and ingestion triggers)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService "metrics-server" (if METRICS_ENABLED)

Each layer restarts independently: a crashing router does not take the
metrics listener down with it.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewRouterService(router))
	tree.AddAPIService(services.NewMetricsService(cfg.Metrics, 0))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return tree.Serve(ctx)

Supervisor events (restarts, backoff, timeouts) are logged through sutureslog,
bridged onto zerolog by logging.NewSlogLogger.
*/
package supervisor
