// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package txstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tomtom215/cohortlens/internal/metrics"
)

// InsertMembers writes membership rows for personIDs at version (nil for
// static cohorts that were never calculated) in one transaction.
func (s *Store) InsertMembers(ctx context.Context, cohortID int64, version *int, personIDs []string) (int64, error) {
	if len(personIDs) == 0 {
		return 0, nil
	}

	var inserted int64
	err := s.withTx(ctx, "insert_members", func(ctx context.Context, tx *sql.Tx) error {
		for start := 0; start < len(personIDs); start += maxRowsPerStatement {
			chunk := personIDs[start:min(start+maxRowsPerStatement, len(personIDs))]

			values := make([]string, len(chunk))
			args := make([]interface{}, 0, len(chunk)*3)
			for i, id := range chunk {
				values[i] = "(?, ?, ?)"
				args = append(args, cohortID, id, nullInt(version))
			}
			res, err := tx.ExecContext(ctx, s.rebind(
				"INSERT INTO cohort_people (cohort_id, person_id, version) VALUES "+strings.Join(values, ", ")), args...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert members of cohort %d: %w", cohortID, err)
	}

	metrics.CohortMembershipRowsInserted.Add(float64(inserted))
	return inserted, nil
}

// DeleteMembersBatch deletes up to limit rows of one version and returns
// how many were deleted. Callers loop until it returns 0.
func (s *Store) DeleteMembersBatch(ctx context.Context, cohortID int64, version, limit int) (int64, error) {
	n, err := s.exec(ctx, "delete_members", `
		DELETE FROM cohort_people WHERE id IN (
			SELECT id FROM cohort_people WHERE cohort_id = ? AND version = ? LIMIT ?
		)`, cohortID, version, limit)
	if err != nil {
		return 0, fmt.Errorf("delete members of cohort %d version %d: %w", cohortID, version, err)
	}
	return n, nil
}

// DeleteMembersBeforeBatch deletes up to limit rows older than version,
// including unversioned rows.
func (s *Store) DeleteMembersBeforeBatch(ctx context.Context, cohortID int64, version, limit int) (int64, error) {
	n, err := s.exec(ctx, "delete_stale_members", `
		DELETE FROM cohort_people WHERE id IN (
			SELECT id FROM cohort_people WHERE cohort_id = ? AND (version IS NULL OR version < ?) LIMIT ?
		)`, cohortID, version, limit)
	if err != nil {
		return 0, fmt.Errorf("delete members of cohort %d before version %d: %w", cohortID, version, err)
	}
	return n, nil
}

// ExistingMembers returns which of personIDs already have a row in the
// cohort at any version.
func (s *Store) ExistingMembers(ctx context.Context, cohortID int64, personIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for start := 0; start < len(personIDs); start += maxRowsPerStatement {
		chunk := personIDs[start:min(start+maxRowsPerStatement, len(personIDs))]

		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, cohortID)
		for _, id := range chunk {
			args = append(args, id)
		}

		err := s.run(ctx, "existing_members", func(ctx context.Context) error {
			rows, err := s.conn.QueryContext(ctx, s.rebind(
				"SELECT DISTINCT person_id FROM cohort_people WHERE cohort_id = ? AND person_id IN ("+placeholders(len(chunk))+")"),
				args...)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					return err
				}
				existing[id] = struct{}{}
			}
			return rows.Err()
		})
		if err != nil {
			return nil, fmt.Errorf("existing members of cohort %d: %w", cohortID, err)
		}
	}
	return existing, nil
}

// CohortMembers lists person ids at version (nil selects unversioned rows)
// in id order.
func (s *Store) CohortMembers(ctx context.Context, cohortID int64, version *int) ([]string, error) {
	query := "SELECT person_id FROM cohort_people WHERE cohort_id = ? AND version IS NULL ORDER BY person_id"
	args := []interface{}{cohortID}
	if version != nil {
		query = "SELECT person_id FROM cohort_people WHERE cohort_id = ? AND version = ? ORDER BY person_id"
		args = append(args, *version)
	}

	var ids []string
	err := s.run(ctx, "cohort_members", func(ctx context.Context) error {
		rows, err := s.conn.QueryContext(ctx, s.rebind(query), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("members of cohort %d: %w", cohortID, err)
	}
	return ids, nil
}

// CountMembersByVersion returns the number of rows per version; unversioned
// rows are counted under -1.
func (s *Store) CountMembersByVersion(ctx context.Context, cohortID int64) (map[int]int64, error) {
	counts := make(map[int]int64)
	err := s.run(ctx, "count_members", func(ctx context.Context) error {
		rows, err := s.conn.QueryContext(ctx, s.rebind(
			"SELECT COALESCE(version, -1), COUNT(*) FROM cohort_people WHERE cohort_id = ? GROUP BY COALESCE(version, -1)"),
			cohortID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				version int
				n       int64
			)
			if err := rows.Scan(&version, &n); err != nil {
				return err
			}
			counts[version] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("count members of cohort %d: %w", cohortID, err)
	}
	return counts, nil
}
