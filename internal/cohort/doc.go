// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
Package cohort computes and maintains cohort membership.

Engine.Recalculate turns a dynamic cohort definition into a new generation:

	BeginCalculation      pending_version += 1, is_calculating = true
	MaterializeCohort     evaluate groups into an analytical snapshot
	CohortIDsInFeatureFlags
	  referenced          copy snapshot into cohort_people at pending_version,
	                      paced by BatchPause, then compare-and-swap version
	  not referenced      keep only the count
	FinishCalculation     is_calculating = false (always)

A failed run deletes whatever it wrote at its pending version, leaves
version and count alone and returns the error. A run that loses the swap to
a newer generation deletes its own rows; a winner purges older versions.

Engine.IngestStaticList adds explicit person lists to a cohort. Unknown
identifiers and existing members are skipped. Unlike recalculation, its
failures are reported and recorded on the cohort rather than returned,
except in debug mode.

Manager creates and edits cohort definitions and writes an activity log
entry with field-level changes for each edit. Watchdog resets calculations
whose worker never finished.
*/
package cohort
