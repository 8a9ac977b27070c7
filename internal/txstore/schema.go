// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package txstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/cohortlens/internal/config"
)

// schemaTemplate is shared by both drivers. %[1]s is the auto-increment
// primary key type, %[2]s the timestamp type.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS cohorts (
	id                     %[1]s,
	team_id                BIGINT NOT NULL,
	name                   TEXT NOT NULL DEFAULT '',
	description            TEXT NOT NULL DEFAULT '',
	groups_json            TEXT NOT NULL DEFAULT '[]',
	is_static              BOOLEAN NOT NULL DEFAULT FALSE,
	version                INTEGER,
	pending_version        INTEGER,
	count                  BIGINT,
	is_calculating         BOOLEAN NOT NULL DEFAULT FALSE,
	errors_calculating     INTEGER NOT NULL DEFAULT 0,
	last_calculation       %[2]s,
	calculation_started_at %[2]s,
	created_by             BIGINT,
	created_at             %[2]s NOT NULL,
	deleted                BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_cohorts_team ON cohorts(team_id);
CREATE TABLE IF NOT EXISTS cohort_people (
	id        %[1]s,
	cohort_id BIGINT NOT NULL,
	person_id TEXT NOT NULL,
	version   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_cohort_people_person ON cohort_people(cohort_id, person_id);
CREATE INDEX IF NOT EXISTS idx_cohort_people_version ON cohort_people(cohort_id, version);
CREATE TABLE IF NOT EXISTS actions (
	id         %[1]s,
	team_id    BIGINT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	steps      TEXT NOT NULL DEFAULT '[]',
	deleted    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at %[2]s NOT NULL
);
CREATE TABLE IF NOT EXISTS feature_flags (
	id      %[1]s,
	team_id BIGINT NOT NULL,
	flag_key TEXT NOT NULL,
	filters TEXT NOT NULL DEFAULT '{}',
	active  BOOLEAN NOT NULL DEFAULT TRUE,
	deleted BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS activity_log (
	id              TEXT PRIMARY KEY,
	team_id         BIGINT,
	organization_id TEXT,
	user_id         BIGINT,
	item_type       TEXT NOT NULL,
	item_id         TEXT NOT NULL,
	activity        TEXT NOT NULL,
	detail          TEXT,
	created_at      %[2]s NOT NULL,
	CHECK (team_id IS NOT NULL OR organization_id IS NOT NULL)
);
CREATE INDEX IF NOT EXISTS idx_activity_item ON activity_log(team_id, item_type, item_id)
`

func (s *Store) createSchema(ctx context.Context) error {
	idType, timeType := "INTEGER PRIMARY KEY", "TIMESTAMP"
	if s.driver == config.StoreDriverPostgres {
		idType, timeType = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	ddl := fmt.Sprintf(schemaTemplate, idType, timeType)

	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
