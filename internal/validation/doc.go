// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built on first use (struct metadata is cached
// by the library) with the custom tags the cohort domain needs:
//
//   - identifier_kind: "distinct_id" or "person_id"
//   - lifecycle_status: new, returning, resurrecting or dormant
//   - interval: day, week or month
//
// # Usage
//
//	if verr := validation.ValidateStruct(&cmd); verr != nil {
//	    return verr.ToQueryConstructionError()
//	}
//
// Lifecycle filters have a shortcut that already returns the non-retryable
// error type:
//
//	if err := validation.ValidateFilter(&filter); err != nil {
//	    return nil, err
//	}
//
// Field names in messages are the struct namespace (for example
// "Filter.Entities[0].ID") so nested failures can be located.
package validation
