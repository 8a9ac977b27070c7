// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/cohortlens/internal/database/query"
	"github.com/tomtom215/cohortlens/internal/models"
)

// MaterializeCohort evaluates a dynamic cohort definition into the snapshot
// for (cohort, version), replacing any previous snapshot of that version,
// and returns the member count.
func (db *DB) MaterializeCohort(ctx context.Context, cohort *models.Cohort, version int) (int64, error) {
	if cohort == nil {
		return 0, models.NewQueryConstructionError("cohort is nil")
	}
	if cohort.IsStatic {
		return 0, &models.QueryConstructionError{Reason: fmt.Sprintf("cohort %d", cohort.ID), Err: models.ErrStaticCohort}
	}

	b := db.newFilterBuilder(ctx, cohort.TeamID)
	b.visiting[cohort.ID] = true
	sub, subArgs, err := b.cohortPersonQuery(cohort)
	if err != nil {
		return 0, err
	}

	insert := `INSERT INTO cohort_snapshots (team_id, cohort_id, version, person_id)
		SELECT ?, ?, ?, person_id FROM (` + sub + `)`
	args := append([]interface{}{cohort.TeamID, cohort.ID, version}, subArgs...)

	var count int64
	err = db.run(ctx, "materialize_cohort", func(ctx context.Context) error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM cohort_snapshots WHERE cohort_id = ? AND version = ?", cohort.ID, version); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM cohort_snapshots WHERE cohort_id = ? AND version = ?",
			cohort.ID, version).Scan(&count); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("materialize cohort %d version %d: %w", cohort.ID, version, err)
	}
	return count, nil
}

// CohortSnapshotIDs returns up to limit person ids of a snapshot that sort
// after afterID. Pass "" to start from the beginning.
func (db *DB) CohortSnapshotIDs(ctx context.Context, cohortID int64, version int, afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, models.NewQueryConstructionError("limit must be positive")
	}

	wb := query.NewWhereBuilder().
		AddClause("cohort_id = ?", cohortID).
		AddClause("version = ?", version)
	if afterID != "" {
		wb.AddClause("person_id > ?", afterID)
	}
	where, args := wb.Build()
	args = append(args, limit)

	ids := make([]string, 0, limit)
	err := db.run(ctx, "snapshot_page", func(ctx context.Context) error {
		rs, err := db.conn.QueryContext(ctx,
			"SELECT person_id FROM cohort_snapshots WHERE "+where+" ORDER BY person_id LIMIT ?", args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rs, "rows")

		for rs.Next() {
			var id string
			if err := rs.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("read snapshot of cohort %d version %d: %w", cohortID, version, err)
	}
	return ids, nil
}

// DropSnapshot removes the snapshot for (cohort, version).
func (db *DB) DropSnapshot(ctx context.Context, cohortID int64, version int) error {
	err := db.run(ctx, "drop_snapshot", func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx,
			"DELETE FROM cohort_snapshots WHERE cohort_id = ? AND version = ?", cohortID, version)
		return err
	})
	if err != nil {
		return fmt.Errorf("drop snapshot of cohort %d version %d: %w", cohortID, version, err)
	}
	return nil
}

// InsertStaticCohort records static cohort members in the analytical index
// read by cohort property filters. Existing members are ignored.
func (db *DB) InsertStaticCohort(ctx context.Context, teamID, cohortID int64, personIDs []string) error {
	if len(personIDs) == 0 {
		return nil
	}

	insertedAt := time.Now().UTC()
	err := db.run(ctx, "insert_static_cohort", func(ctx context.Context) error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for start := 0; start < len(personIDs); start += maxInClauseItems {
			chunk := personIDs[start:min(start+maxInClauseItems, len(personIDs))]

			values := make([]string, len(chunk))
			args := make([]interface{}, 0, len(chunk)*4)
			for i, id := range chunk {
				values[i] = "(?, ?, ?, ?)"
				args = append(args, teamID, cohortID, id, insertedAt)
			}
			stmt := "INSERT OR IGNORE INTO person_static_cohort (team_id, cohort_id, person_id, inserted_at) VALUES " +
				strings.Join(values, ", ")
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("index static cohort %d: %w", cohortID, err)
	}
	return nil
}

// StaticCohortMembers lists the indexed members of a static cohort.
func (db *DB) StaticCohortMembers(ctx context.Context, teamID, cohortID int64) ([]string, error) {
	var ids []string
	err := db.run(ctx, "static_cohort_members", func(ctx context.Context) error {
		rs, err := db.conn.QueryContext(ctx,
			"SELECT person_id FROM person_static_cohort WHERE team_id = ? AND cohort_id = ? ORDER BY person_id",
			teamID, cohortID)
		if err != nil {
			return err
		}
		defer closeWithLog(rs, "rows")

		for rs.Next() {
			var id string
			if err := rs.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("static cohort %d members: %w", cohortID, err)
	}
	return ids, nil
}
