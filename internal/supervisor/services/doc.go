// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
Package services provides suture.Service wrappers for Cohortlens components.

Each wrapper translates a component's lifecycle (Run, ListenAndServe, a
periodic sweep) into suture's context-aware Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

Trigger router (RouterService):
  - Runs the watermill router that consumes recalculation and ingestion triggers
  - Returns suture.ErrDoNotRestart when the router is closed outside the tree

Metrics listener (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - NewMetricsServer builds the promhttp server from MetricsConfig

Watchdog (WatchdogService):
  - Sweeps stuck cohort calculations on a fixed interval
  - Sweep errors are logged and do not stop the service

All services implement fmt.Stringer so suture can name them in events.
*/
package services
