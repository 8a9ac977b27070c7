// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
database_schema.go - Analytical Schema

Tables:
  - events: raw events keyed by distinct id, with JSON properties
  - persons: person records with JSON properties and creation time
  - person_distinct_ids: distinct id to person mapping (many to one)
  - person_static_cohort: static cohort membership index used by cohort
    property filters
  - cohort_snapshots: versioned person id sets produced by cohort
    materialization, read back in pages by the recalculation engine

All timestamps are stored as UTC TIMESTAMP values.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the analytical tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS events (
			uuid TEXT PRIMARY KEY,
			team_id BIGINT NOT NULL,
			event TEXT NOT NULL,
			distinct_id TEXT NOT NULL,
			properties JSON,
			timestamp TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS persons (
			id TEXT PRIMARY KEY,
			team_id BIGINT NOT NULL,
			properties JSON,
			is_identified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS person_distinct_ids (
			team_id BIGINT NOT NULL,
			distinct_id TEXT NOT NULL,
			person_id TEXT NOT NULL,
			PRIMARY KEY (team_id, distinct_id)
		)`,

		`CREATE TABLE IF NOT EXISTS person_static_cohort (
			team_id BIGINT NOT NULL,
			cohort_id BIGINT NOT NULL,
			person_id TEXT NOT NULL,
			inserted_at TIMESTAMP NOT NULL,
			PRIMARY KEY (cohort_id, person_id)
		)`,

		`CREATE TABLE IF NOT EXISTS cohort_snapshots (
			team_id BIGINT NOT NULL,
			cohort_id BIGINT NOT NULL,
			version INTEGER NOT NULL,
			person_id TEXT NOT NULL,
			PRIMARY KEY (cohort_id, version, person_id)
		)`,
	}
}

// createIndexes creates secondary indexes for the lifecycle scan
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

func getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_events_team_event_ts ON events(team_id, event, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_pdi_person ON person_distinct_ids(team_id, person_id)`,
		`CREATE INDEX IF NOT EXISTS idx_persons_team ON persons(team_id)`,
	}
}
