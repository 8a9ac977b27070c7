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
	"strconv"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/models"
)

// CreateAction inserts a and sets its ID.
func (s *Store) CreateAction(ctx context.Context, a *models.Action) error {
	steps := a.Steps
	if steps == nil {
		steps = []models.ActionStep{}
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("marshal action steps: %w", err)
	}

	return s.run(ctx, "create_action", func(ctx context.Context) error {
		return s.conn.QueryRowContext(ctx, s.rebind(`
			INSERT INTO actions (team_id, name, steps, deleted, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`),
			a.TeamID, a.Name, string(data), a.Deleted, s.now().UTC(),
		).Scan(&a.ID)
	})
}

// GetAction returns a team's action with its steps.
func (s *Store) GetAction(ctx context.Context, teamID, actionID int64) (*models.Action, error) {
	var (
		a     models.Action
		steps string
	)
	err := s.run(ctx, "get_action", func(ctx context.Context) error {
		return s.conn.QueryRowContext(ctx, s.rebind(
			"SELECT id, team_id, name, steps, deleted FROM actions WHERE id = ? AND team_id = ?"),
			actionID, teamID,
		).Scan(&a.ID, &a.TeamID, &a.Name, &steps, &a.Deleted)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("action %d: %w", actionID, models.ErrActionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get action %d: %w", actionID, err)
	}
	if err := json.Unmarshal([]byte(steps), &a.Steps); err != nil {
		return nil, fmt.Errorf("action %d steps: %w", actionID, err)
	}
	return &a, nil
}

// CreateFeatureFlag inserts f and sets its ID.
func (s *Store) CreateFeatureFlag(ctx context.Context, f *models.FeatureFlag) error {
	filters := string(f.Filters)
	if filters == "" {
		filters = "{}"
	}
	if !gjson.Valid(filters) {
		return models.NewQueryConstructionError("feature flag %q has invalid filters", f.Key)
	}

	return s.run(ctx, "create_feature_flag", func(ctx context.Context) error {
		return s.conn.QueryRowContext(ctx, s.rebind(`
			INSERT INTO feature_flags (team_id, flag_key, filters, active, deleted)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`),
			f.TeamID, f.Key, filters, f.Active, f.Deleted,
		).Scan(&f.ID)
	})
}

// SetFeatureFlagActive toggles a flag.
func (s *Store) SetFeatureFlagActive(ctx context.Context, flagID int64, active bool) error {
	if _, err := s.exec(ctx, "set_flag_active", "UPDATE feature_flags SET active = ? WHERE id = ?", active, flagID); err != nil {
		return fmt.Errorf("update feature flag %d: %w", flagID, err)
	}
	return nil
}

// CohortIDsInFeatureFlags returns the ids of cohorts referenced by active,
// non-deleted feature flags.
func (s *Store) CohortIDsInFeatureFlags(ctx context.Context) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	err := s.run(ctx, "cohorts_in_flags", func(ctx context.Context) error {
		rows, err := s.conn.QueryContext(ctx,
			"SELECT id, filters FROM feature_flags WHERE active = TRUE AND deleted = FALSE")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				flagID  int64
				filters string
			)
			if err := rows.Scan(&flagID, &filters); err != nil {
				return err
			}
			if !gjson.Valid(filters) {
				logging.Warn().Int64("flag_id", flagID).Msg("Skipping feature flag with invalid filters")
				continue
			}
			for _, id := range cohortReferences(filters) {
				ids[id] = struct{}{}
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("cohort ids in feature flags: %w", err)
	}
	return ids, nil
}

// cohortReferences extracts cohort ids from a flag filter document. Cohort
// properties carry the id either as the value (key "id") or as the key.
func cohortReferences(filters string) []int64 {
	var ids []int64
	gjson.Get(filters, "groups.#.properties|@flatten").ForEach(func(_, prop gjson.Result) bool {
		if prop.Get("type").String() != string(models.PropertyTypeCohort) {
			return true
		}
		raw := prop.Get("key").String()
		if raw == "id" {
			raw = prop.Get("value").String()
		}
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}
