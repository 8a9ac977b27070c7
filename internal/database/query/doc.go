// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package query provides SQL query building utilities for the database package.
//
// WhereBuilder collects parameterized conditions joined by one connective.
// Nested builders render as parenthesized clauses, so recursive AND/OR
// property groups map directly onto a tree of builders:
//
//	outer := query.NewWhereBuilder()
//	outer.AddClause("e.team_id = ?", teamID)
//
//	any := query.NewWhereBuilderWith(query.Or)
//	any.AddClause("e.event = ?", "$pageview")
//	any.AddClause("e.event = ?", "$screen")
//	outer.AddGroup(any)
//
//	where, args := outer.Build()
//	// e.team_id = ? AND (e.event = ? OR e.event = ?)
//
// An empty builder builds to "TRUE" and an empty IN list to "FALSE", so
// callers never emit invalid SQL for degenerate filters. Placeholders are
// always "?"; dialects that need numbered parameters rebind the final text.
package query
