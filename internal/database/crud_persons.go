// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cohortlens/internal/database/query"
	"github.com/tomtom215/cohortlens/internal/models"
)

// maxInClauseItems bounds the number of parameters in one IN list.
const maxInClauseItems = 1000

// marshalProperties encodes a property map for a JSON column.
func marshalProperties(props map[string]interface{}) (string, error) {
	if props == nil {
		return "{}", nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(data), nil
}

// UpsertPerson inserts or replaces a person and maps its distinct ids.
func (db *DB) UpsertPerson(ctx context.Context, person models.Person) error {
	props, err := marshalProperties(person.Properties)
	if err != nil {
		return err
	}

	return db.run(ctx, "upsert_person", func(ctx context.Context) error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO persons (id, team_id, properties, is_identified, created_at)
			 VALUES (?, ?, CAST(? AS JSON), ?, ?)`,
			person.ID, person.TeamID, props, person.IsIdentified, person.CreatedAt.UTC()); err != nil {
			return err
		}

		for _, distinctID := range person.DistinctIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO person_distinct_ids (team_id, distinct_id, person_id) VALUES (?, ?, ?)`,
				person.TeamID, distinctID, person.ID); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// InsertEvents appends events in one transaction. Events without a UUID get
// a generated one.
func (db *DB) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	type row struct {
		uuid  string
		props string
		ev    models.Event
	}
	rows := make([]row, len(events))
	for i, ev := range events {
		props, err := marshalProperties(ev.Properties)
		if err != nil {
			return err
		}
		id := ev.UUID
		if id == "" {
			id = uuid.NewString()
		}
		rows[i] = row{uuid: id, props: props, ev: ev}
	}

	return db.run(ctx, "insert_events", func(ctx context.Context) error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO events (uuid, team_id, event, distinct_id, properties, timestamp)
			 VALUES (?, ?, ?, ?, CAST(? AS JSON), ?)`)
		if err != nil {
			return err
		}
		defer closeWithLog(stmt, "prepared statement")

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.uuid, r.ev.TeamID, r.ev.Event, r.ev.DistinctID, r.props, r.ev.Timestamp.UTC()); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// ResolvePersons maps identifiers of the given kind to person ids. Unknown
// identifiers are skipped; the result is deduplicated and sorted.
func (db *DB) ResolvePersons(ctx context.Context, teamID int64, identifiers []string, kind models.IdentifierKind) ([]string, error) {
	if !kind.Valid() {
		return nil, models.NewQueryConstructionError("unsupported identifier kind %q", kind)
	}
	if len(identifiers) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(identifiers))
	for start := 0; start < len(identifiers); start += maxInClauseItems {
		end := min(start+maxInClauseItems, len(identifiers))
		chunk := identifiers[start:end]

		wb := query.NewWhereBuilder().AddClause("team_id = ?", teamID)
		sqlText := "SELECT id FROM persons WHERE "
		if kind == models.IdentifierDistinctID {
			wb.AddIn("distinct_id", chunk)
			sqlText = "SELECT DISTINCT person_id FROM person_distinct_ids WHERE "
		} else {
			wb.AddIn("id", chunk)
		}
		where, args := wb.Build()
		sqlText += where

		err := db.run(ctx, "resolve_persons", func(ctx context.Context) error {
			rs, err := db.conn.QueryContext(ctx, sqlText, args...)
			if err != nil {
				return err
			}
			defer closeWithLog(rs, "rows")
			for rs.Next() {
				var id string
				if err := rs.Scan(&id); err != nil {
					return err
				}
				seen[id] = struct{}{}
			}
			return rs.Err()
		})
		if err != nil {
			return nil, fmt.Errorf("resolve persons: %w", err)
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetPersonsByIDs loads persons with their distinct ids, preserving the
// order of ids. Missing persons are skipped.
func (db *DB) GetPersonsByIDs(ctx context.Context, teamID int64, ids []string) ([]models.Person, error) {
	if len(ids) == 0 {
		return []models.Person{}, nil
	}

	byID := make(map[string]*models.Person, len(ids))
	for start := 0; start < len(ids); start += maxInClauseItems {
		chunk := ids[start:min(start+maxInClauseItems, len(ids))]
		if err := db.loadPersons(ctx, teamID, chunk, byID); err != nil {
			return nil, err
		}
	}

	people := make([]models.Person, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			people = append(people, *p)
		}
	}
	return people, nil
}

func (db *DB) loadPersons(ctx context.Context, teamID int64, ids []string, byID map[string]*models.Person) error {
	wb := query.NewWhereBuilder().AddClause("team_id = ?", teamID).AddIn("id", ids)
	where, args := wb.Build()

	err := db.run(ctx, "get_persons", func(ctx context.Context) error {
		rs, err := db.conn.QueryContext(ctx,
			`SELECT id, team_id, CAST(properties AS VARCHAR), is_identified, created_at
			 FROM persons WHERE `+where, args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rs, "rows")

		for rs.Next() {
			var (
				p     models.Person
				props sql.NullString
			)
			if err := rs.Scan(&p.ID, &p.TeamID, &props, &p.IsIdentified, &p.CreatedAt); err != nil {
				return err
			}
			p.CreatedAt = p.CreatedAt.UTC()
			if props.Valid && props.String != "" {
				if err := json.Unmarshal([]byte(props.String), &p.Properties); err != nil {
					return fmt.Errorf("decode properties of person %s: %w", p.ID, err)
				}
			}
			p.DistinctIDs = []string{}
			byID[p.ID] = &p
		}
		return rs.Err()
	})
	if err != nil {
		return fmt.Errorf("get persons: %w", err)
	}

	wb = query.NewWhereBuilder().AddClause("team_id = ?", teamID).AddIn("person_id", ids)
	where, args = wb.Build()

	err = db.run(ctx, "get_distinct_ids", func(ctx context.Context) error {
		rs, err := db.conn.QueryContext(ctx,
			"SELECT person_id, distinct_id FROM person_distinct_ids WHERE "+where+" ORDER BY person_id, distinct_id", args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rs, "rows")

		for rs.Next() {
			var personID, distinctID string
			if err := rs.Scan(&personID, &distinctID); err != nil {
				return err
			}
			if p, ok := byID[personID]; ok {
				p.DistinctIDs = append(p.DistinctIDs, distinctID)
			}
		}
		return rs.Err()
	})
	if err != nil {
		return fmt.Errorf("get distinct ids: %w", err)
	}
	return nil
}
