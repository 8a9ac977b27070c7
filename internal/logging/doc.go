// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package logging provides centralized zerolog-based structured logging for Cohortlens.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger configured once from the logging config section
//   - Context-aware logging carrying correlation, message, team and cohort ids
//   - CalculationLogger for the cohort_calculation_* and cohort_ingestion_* events
//   - slog adapter for Suture v4 (via sutureslog)
//   - watermill.LoggerAdapter for the trigger router and pub/sub
//   - Reporter, which forwards handled errors to Sentry when a DSN is configured
//
// # Quick Start
//
//	import "github.com/tomtom215/cohortlens/internal/logging"
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Int64("cohort_id", id).Msg("Cohort created")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Cleanup round failed")
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
package logging
