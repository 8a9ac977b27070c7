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

	"github.com/goccy/go-json"

	"github.com/tomtom215/cohortlens/internal/activity"
)

var _ activity.Store = (*Store)(nil)

// SaveActivity appends an activity log entry.
func (s *Store) SaveActivity(ctx context.Context, entry *activity.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal activity detail: %w", err)
	}

	var org interface{}
	if entry.OrganizationID != "" {
		org = entry.OrganizationID
	}

	_, err = s.exec(ctx, "save_activity", `
		INSERT INTO activity_log (id, team_id, organization_id, user_id, item_type, item_id, activity, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, nullInt64(entry.TeamID), org, nullInt64(entry.UserID),
		entry.ItemType, entry.ItemID, entry.Activity, string(detail), entry.CreatedAt.UTC())
	return err
}

// LoadActivity returns entries matching q, newest first.
func (s *Store) LoadActivity(ctx context.Context, q activity.Query) ([]activity.Entry, error) {
	var (
		conds []string
		args  []interface{}
	)
	if q.TeamID != nil {
		conds = append(conds, "team_id = ?")
		args = append(args, *q.TeamID)
	}
	if q.OrganizationID != "" {
		conds = append(conds, "organization_id = ?")
		args = append(args, q.OrganizationID)
	}
	if q.ItemType != "" {
		conds = append(conds, "item_type = ?")
		args = append(args, q.ItemType)
	}
	if q.ItemID != "" {
		conds = append(conds, "item_id = ?")
		args = append(args, q.ItemID)
	}
	where := "TRUE"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = activity.DefaultLoadLimit
	}
	args = append(args, limit)

	var entries []activity.Entry
	err := s.run(ctx, "load_activity", func(ctx context.Context) error {
		rows, err := s.conn.QueryContext(ctx, s.rebind(`
			SELECT id, team_id, organization_id, user_id, item_type, item_id, activity, detail, created_at
			FROM activity_log WHERE `+where+`
			ORDER BY created_at DESC, id DESC
			LIMIT ?`), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e              activity.Entry
				teamID, userID sql.NullInt64
				org, detail    sql.NullString
			)
			if err := rows.Scan(&e.ID, &teamID, &org, &userID, &e.ItemType, &e.ItemID, &e.Activity, &detail, &e.CreatedAt); err != nil {
				return err
			}
			e.TeamID = int64FromNull(teamID)
			e.UserID = int64FromNull(userID)
			e.OrganizationID = org.String
			e.CreatedAt = e.CreatedAt.UTC()
			if detail.Valid && detail.String != "" {
				if err := json.Unmarshal([]byte(detail.String), &e.Detail); err != nil {
					return fmt.Errorf("decode activity %s detail: %w", e.ID, err)
				}
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	return entries, nil
}
