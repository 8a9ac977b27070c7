// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package database is the analytical store: events, persons and cohort
// snapshots in DuckDB, and the queries that classify lifecycle activity and
// evaluate cohort definitions.
//
// # Architecture
//
// Core:
//   - database.go: connection lifecycle, definition resolver, clock override
//   - database_schema.go: table and index creation
//   - database_utils.go: query timeouts and the breaker-guarded run helper
//   - crud_persons.go: person/event writes, identifier resolution, person loads
//
// Query building:
//   - property_filter.go: property groups, operators and cohort membership
//   - event_query.go: the (person, period, created_at) activity set, actions
//   - cohort_query.go: cohort definitions rendered as person id subqueries
//   - query/: WHERE clause builder
//
// Analytics:
//   - analytics_lifecycle.go: lifecycle counts, series and people listings
//   - cohort_snapshot.go: versioned cohort snapshots, static cohort index
//
// # Lifecycle Classification
//
// For each period P in [date_from, date_to] (truncated to the interval), a
// person active in P is:
//
//	new           created within P
//	returning     also active in P-1
//	resurrecting  otherwise
//
// and a person active in P-1 but not in P is dormant in P. The scanned
// window is [trunc(date_from) - 1, trunc(date_to) + 1) so the first period
// is classified against its predecessor.
//
// # Error Handling
//
// Filters that cannot be rendered (unknown actions or cohorts, unsupported
// operators, invalid regular expressions) fail with
// models.QueryConstructionError before any SQL runs. Store failures pass
// through a circuit breaker; an open breaker, a dropped connection or an
// expired deadline surfaces as models.StoreUnavailableError.
//
// # Thread Safety
//
// DB is safe for concurrent use. Each query builds its own filterBuilder.
//
// # Usage Example
//
//	db, err := database.New(&cfg.Database, cfg.Breaker)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	db.SetResolver(store)
//
//	result, err := db.GetLifecycle(ctx, teamID, models.Filter{
//	    Entities: []models.Entity{{Type: models.EntityTypeEvents, ID: "$pageview"}},
//	    DateFrom: from,
//	    DateTo:   to,
//	    Interval: models.IntervalWeek,
//	})
package database
