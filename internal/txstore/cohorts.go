// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package txstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cohortlens/internal/models"
)

const cohortColumns = `id, team_id, name, description, groups_json, is_static, version, pending_version,
	count, is_calculating, errors_calculating, last_calculation, calculation_started_at,
	created_by, created_at, deleted`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCohort(row rowScanner) (*models.Cohort, error) {
	var (
		c                          models.Cohort
		groups                     string
		version, pending, count    sql.NullInt64
		createdBy                  sql.NullInt64
		lastCalculation, startedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.TeamID, &c.Name, &c.Description, &groups, &c.IsStatic,
		&version, &pending, &count, &c.IsCalculating, &c.ErrorsCalculating,
		&lastCalculation, &startedAt, &createdBy, &c.CreatedAt, &c.Deleted)
	if err != nil {
		return nil, err
	}

	c.Groups, err = models.ParseGroups([]byte(groups))
	if err != nil {
		return nil, fmt.Errorf("cohort %d groups: %w", c.ID, err)
	}
	c.Version = intFromNull(version)
	c.PendingVersion = intFromNull(pending)
	c.Count = int64FromNull(count)
	c.LastCalculation = timeFromNull(lastCalculation)
	c.CalculationStartedAt = timeFromNull(startedAt)
	c.CreatedBy = int64FromNull(createdBy)
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func marshalGroups(groups []models.Group) (string, error) {
	if groups == nil {
		groups = []models.Group{}
	}
	data, err := json.Marshal(groups)
	if err != nil {
		return "", fmt.Errorf("marshal groups: %w", err)
	}
	return string(data), nil
}

// CreateCohort inserts c and sets its ID and CreatedAt.
func (s *Store) CreateCohort(ctx context.Context, c *models.Cohort) error {
	groups, err := marshalGroups(c.Groups)
	if err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}

	return s.run(ctx, "create_cohort", func(ctx context.Context) error {
		return s.conn.QueryRowContext(ctx, s.rebind(`
			INSERT INTO cohorts (team_id, name, description, groups_json, is_static, created_by, created_at, deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			c.TeamID, c.Name, c.Description, groups, c.IsStatic, nullInt64(c.CreatedBy), c.CreatedAt, c.Deleted,
		).Scan(&c.ID)
	})
}

// UpdateCohort persists the definition fields of c: name, description,
// groups, is_static and deleted. Calculation state is left alone.
func (s *Store) UpdateCohort(ctx context.Context, c *models.Cohort) error {
	groups, err := marshalGroups(c.Groups)
	if err != nil {
		return err
	}
	n, err := s.exec(ctx, "update_cohort", `
		UPDATE cohorts SET name = ?, description = ?, groups_json = ?, is_static = ?, deleted = ?
		WHERE id = ? AND team_id = ?`,
		c.Name, c.Description, groups, c.IsStatic, c.Deleted, c.ID, c.TeamID)
	if err != nil {
		return fmt.Errorf("update cohort %d: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update cohort %d: %w", c.ID, models.ErrCohortNotFound)
	}
	return nil
}

// LoadCohort returns a cohort by id regardless of team or deletion.
func (s *Store) LoadCohort(ctx context.Context, cohortID int64) (*models.Cohort, error) {
	var c *models.Cohort
	err := s.run(ctx, "load_cohort", func(ctx context.Context) error {
		var err error
		c, err = scanCohort(s.conn.QueryRowContext(ctx,
			s.rebind("SELECT "+cohortColumns+" FROM cohorts WHERE id = ?"), cohortID))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cohort %d: %w", cohortID, models.ErrCohortNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load cohort %d: %w", cohortID, err)
	}
	return c, nil
}

// GetCohort returns a team's cohort. Deleted cohorts are returned with
// Deleted set; callers decide whether to use them.
func (s *Store) GetCohort(ctx context.Context, teamID, cohortID int64) (*models.Cohort, error) {
	c, err := s.LoadCohort(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if c.TeamID != teamID {
		return nil, fmt.Errorf("cohort %d: %w", cohortID, models.ErrCohortNotFound)
	}
	return c, nil
}

// ListCohorts returns a team's non-deleted cohorts ordered by id.
func (s *Store) ListCohorts(ctx context.Context, teamID int64) ([]*models.Cohort, error) {
	var cohorts []*models.Cohort
	err := s.run(ctx, "list_cohorts", func(ctx context.Context) error {
		rows, err := s.conn.QueryContext(ctx, s.rebind(
			"SELECT "+cohortColumns+" FROM cohorts WHERE team_id = ? AND deleted = FALSE ORDER BY id"), teamID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCohort(rows)
			if err != nil {
				return err
			}
			cohorts = append(cohorts, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	return cohorts, nil
}

// BeginCalculation atomically increments pending_version, marks the cohort
// as calculating and returns the new pending version.
func (s *Store) BeginCalculation(ctx context.Context, cohortID int64) (int, error) {
	var pending int
	err := s.run(ctx, "begin_calculation", func(ctx context.Context) error {
		return s.conn.QueryRowContext(ctx, s.rebind(`
			UPDATE cohorts
			SET pending_version = COALESCE(pending_version, 0) + 1,
				is_calculating = TRUE,
				calculation_started_at = ?
			WHERE id = ?
			RETURNING pending_version`),
			s.now().UTC(), cohortID,
		).Scan(&pending)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("cohort %d: %w", cohortID, models.ErrCohortNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("begin calculation of cohort %d: %w", cohortID, err)
	}
	return pending, nil
}

// MarkCalculating sets is_calculating without touching versions.
func (s *Store) MarkCalculating(ctx context.Context, cohortID int64) error {
	n, err := s.exec(ctx, "mark_calculating",
		"UPDATE cohorts SET is_calculating = TRUE, calculation_started_at = ? WHERE id = ?",
		s.now().UTC(), cohortID)
	if err != nil {
		return fmt.Errorf("mark cohort %d calculating: %w", cohortID, err)
	}
	if n == 0 {
		return fmt.Errorf("cohort %d: %w", cohortID, models.ErrCohortNotFound)
	}
	return nil
}

// CompleteCalculation publishes version and count only if no equal or newer
// version has been published. It reports whether this call won.
func (s *Store) CompleteCalculation(ctx context.Context, cohortID int64, version int, count int64) (bool, error) {
	n, err := s.exec(ctx, "complete_calculation", `
		UPDATE cohorts SET version = ?, count = ?
		WHERE id = ? AND (version IS NULL OR version < ?)`,
		version, count, cohortID, version)
	if err != nil {
		return false, fmt.Errorf("complete calculation of cohort %d: %w", cohortID, err)
	}
	return n == 1, nil
}

// SetCount records the member count without changing the version.
func (s *Store) SetCount(ctx context.Context, cohortID int64, count int64) error {
	if _, err := s.exec(ctx, "set_count", "UPDATE cohorts SET count = ? WHERE id = ?", count, cohortID); err != nil {
		return fmt.Errorf("set count of cohort %d: %w", cohortID, err)
	}
	return nil
}

// FinishCalculation clears is_calculating. On success errors_calculating is
// reset and last_calculation set; on failure errors_calculating is
// incremented.
func (s *Store) FinishCalculation(ctx context.Context, cohortID int64, succeeded bool) error {
	var err error
	if succeeded {
		_, err = s.exec(ctx, "finish_calculation", `
			UPDATE cohorts
			SET is_calculating = FALSE, errors_calculating = 0, last_calculation = ?, calculation_started_at = NULL
			WHERE id = ?`,
			s.now().UTC(), cohortID)
	} else {
		_, err = s.exec(ctx, "finish_calculation", `
			UPDATE cohorts
			SET is_calculating = FALSE, errors_calculating = errors_calculating + 1, calculation_started_at = NULL
			WHERE id = ?`,
			cohortID)
	}
	if err != nil {
		return fmt.Errorf("finish calculation of cohort %d: %w", cohortID, err)
	}
	return nil
}

// ListStaleCalculations returns cohorts still marked calculating that
// started before cutoff.
func (s *Store) ListStaleCalculations(ctx context.Context, cutoff time.Time) ([]models.CalculationStatus, error) {
	var stale []models.CalculationStatus
	err := s.run(ctx, "list_stale_calculations", func(ctx context.Context) error {
		rows, err := s.conn.QueryContext(ctx, s.rebind(`
			SELECT id, team_id, pending_version, is_calculating, errors_calculating, calculation_started_at
			FROM cohorts
			WHERE is_calculating = TRUE AND deleted = FALSE
				AND (calculation_started_at IS NULL OR calculation_started_at < ?)
			ORDER BY id`), cutoff.UTC())
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				st      models.CalculationStatus
				pending sql.NullInt64
				started sql.NullTime
			)
			if err := rows.Scan(&st.CohortID, &st.TeamID, &pending, &st.IsCalculating, &st.ErrorsCalculating, &started); err != nil {
				return err
			}
			st.PendingVersion = intFromNull(pending)
			st.CalculationStartedAt = timeFromNull(started)
			stale = append(stale, st)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list stale calculations: %w", err)
	}
	return stale, nil
}

// ResetCalculation clears a stuck is_calculating flag and counts it as a
// failed attempt. It reports false if the cohort is no longer stale.
func (s *Store) ResetCalculation(ctx context.Context, cohortID int64, cutoff time.Time) (bool, error) {
	n, err := s.exec(ctx, "reset_calculation", `
		UPDATE cohorts
		SET is_calculating = FALSE, errors_calculating = errors_calculating + 1, calculation_started_at = NULL
		WHERE id = ? AND is_calculating = TRUE
			AND (calculation_started_at IS NULL OR calculation_started_at < ?)`,
		cohortID, cutoff.UTC())
	if err != nil {
		return false, fmt.Errorf("reset calculation of cohort %d: %w", cohortID, err)
	}
	return n == 1, nil
}
