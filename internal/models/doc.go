// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
Package models defines data structures for the Cohortlens application.

This package contains the domain types shared by the analytical store, the
transactional store, the cohort engine and the trigger transport. It serves as
the single source of truth for data structure definitions and the typed errors
those layers exchange.

Key Components:

  - Entity / Filter / PropertyGroup: lifecycle query input (what counts as
    activity, over which range, at which granularity)
  - Interval: day/week/month period arithmetic (weeks start on Monday)
  - Classification: new, returning, resurrecting and dormant
  - LifecycleResult / LifecyclePeoplePage: lifecycle query output
  - Cohort / Group / CohortMembership: versioned cohort definitions
  - Action / ActionStep: predefined event disjunctions referenced by entities
  - Person: resolved person record with its distinct ids

Model Categories:

1. Query Models:
  - Filter: immutable per query, validated with go-playground/validator
  - PropertyGroup: recursive AND/OR tree over Property comparisons

2. Cohort Models:
  - Cohort: version, pending version and calculation bookkeeping
  - Group: tagged variant (properties, action or event), rejected at
    construction when zero or several kinds are set

3. Errors:
  - QueryConstructionError: bad filter or entity input, never retried
  - StoreUnavailableError: transient store failure, retried by the caller
  - PartialWriteError: a membership version was partially written

Thread Safety:

All models are plain data structures without internal synchronization.
Filter, Entity and Group values are treated as immutable once built and are
safe to share between goroutines.
*/
package models
