// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
analytics_lifecycle.go - Lifecycle Classification

For an entity and a range of periods every active (person, period) pair is
classified as:

  - new: the person was created within the period
  - returning: the person was also active in the previous period
  - resurrecting: active now, inactive in the previous period, not new
  - dormant: active in the previous period, inactive now (emitted as a
    synthetic row one period after each activity with no successor)

Counts and people listings share the same CTE text so that a bucket's count
always equals the number of people it lists.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/metrics"
	"github.com/tomtom215/cohortlens/internal/models"
	"github.com/tomtom215/cohortlens/internal/validation"
)

// DefaultLifecyclePageSize is the people page size when none is given.
const DefaultLifecyclePageSize = 100

// lifecycleCTE classifies the activity set. Placeholders: activity args,
// then first and last reported period.
const lifecycleCTE = `
	WITH activity AS (%[1]s),
	classified AS (
		SELECT
			a.person_id,
			a.period,
			CASE
				WHEN a.created_at >= a.period AND a.created_at < a.period + INTERVAL 1 %[2]s THEN 'new'
				WHEN prev.person_id IS NOT NULL THEN 'returning'
				ELSE 'resurrecting'
			END AS status
		FROM activity a
		LEFT JOIN activity prev
			ON prev.person_id = a.person_id
			AND prev.period = a.period - INTERVAL 1 %[2]s
		UNION ALL
		SELECT
			a.person_id,
			a.period + INTERVAL 1 %[2]s AS period,
			'dormant' AS status
		FROM activity a
		LEFT JOIN activity nxt
			ON nxt.person_id = a.person_id
			AND nxt.period = a.period + INTERVAL 1 %[2]s
		WHERE nxt.person_id IS NULL
	),
	reported AS (
		SELECT person_id, period, status
		FROM classified
		WHERE period >= ? AND period <= ?
	)`

// statusOrder sorts classifications by priority inside a period.
const statusOrder = `CASE status WHEN 'new' THEN 0 WHEN 'returning' THEN 1 WHEN 'resurrecting' THEN 2 ELSE 3 END`

// lifecycleQuery renders the shared CTE for f.
func (b *filterBuilder) lifecycleQuery(f models.Filter) (string, []interface{}, error) {
	activity, args, err := b.activityQuery(f)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf(lifecycleCTE, activity, f.Interval.SQLUnit())
	args = append(args, f.Interval.Truncate(f.DateFrom), f.Interval.Truncate(f.DateTo))
	return sql, args, nil
}

// GetLifecycle returns one row per non-empty (period, classification) pair
// ordered by period then classification priority, together with dense
// per-classification series for charting.
func (db *DB) GetLifecycle(ctx context.Context, teamID int64, filter models.Filter) (*models.LifecycleResult, error) {
	if err := validation.ValidateFilter(&filter); err != nil {
		return nil, err
	}
	entity, err := filter.Entity()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	cte, args, err := db.newFilterBuilder(ctx, teamID).lifecycleQuery(filter)
	if err != nil {
		return nil, err
	}
	sqlText := cte + `
	SELECT period, status, COUNT(*) AS cnt
	FROM reported
	GROUP BY period, status
	ORDER BY period, ` + statusOrder

	label := entity.DisplayName()
	var rows []models.LifecycleRow
	err = db.run(ctx, "lifecycle", func(ctx context.Context) error {
		rs, err := db.conn.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rs, "rows")

		for rs.Next() {
			var (
				row    models.LifecycleRow
				status string
			)
			if err := rs.Scan(&row.Period, &status, &row.Count); err != nil {
				return err
			}
			row.Period = row.Period.UTC()
			row.Classification = models.Classification(status)
			row.Label = fmt.Sprintf("%s - %s", label, status)
			rows = append(rows, row)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle query: %w", err)
	}

	took := time.Since(start)
	metrics.RecordLifecycleQuery("compute", filter.Interval, took)
	logging.Ctx(ctx).Debug().
		Int64("team_id", teamID).
		Str("entity", label).
		Str("interval", filter.Interval.String()).
		Int("rows", len(rows)).
		Dur("took", took).
		Msg("Lifecycle computed")

	return &models.LifecycleResult{
		Rows:   rows,
		Series: buildLifecycleSeries(rows, filter, label),
		Metadata: models.LifecycleQueryMetadata{
			QueryHash:   generateLifecycleQueryHash(teamID, filter),
			EntityName:  label,
			Interval:    filter.Interval,
			DateFrom:    filter.Interval.Truncate(filter.DateFrom),
			DateTo:      filter.Interval.Truncate(filter.DateTo),
			GeneratedAt: time.Now().UTC(),
			QueryTimeMs: took.Milliseconds(),
		},
	}, nil
}

// GetLifecyclePeople lists the persons behind one (period, classification)
// bucket, ordered by person id. A non-positive limit uses the default page
// size.
func (db *DB) GetLifecyclePeople(ctx context.Context, teamID int64, filter models.Filter, period time.Time, classification models.Classification, offset, limit int) (*models.LifecyclePeoplePage, error) {
	if err := validation.ValidateFilter(&filter); err != nil {
		return nil, err
	}
	if classification.Priority() < 0 {
		return nil, models.NewQueryConstructionError("unknown lifecycle classification %q", classification)
	}
	if offset < 0 {
		return nil, models.NewQueryConstructionError("offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultLifecyclePageSize
	}

	start := time.Now()
	target := filter.Interval.Truncate(period)

	cte, args, err := db.newFilterBuilder(ctx, teamID).lifecycleQuery(filter)
	if err != nil {
		return nil, err
	}
	sqlText := cte + `
	SELECT person_id
	FROM reported
	WHERE period = ? AND status = ?
	ORDER BY person_id
	LIMIT ? OFFSET ?`
	args = append(args, target, string(classification), limit, offset)

	var ids []string
	err = db.run(ctx, "lifecycle_people", func(ctx context.Context) error {
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
			ids = append(ids, id)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle people query: %w", err)
	}

	people, err := db.GetPersonsByIDs(ctx, teamID, ids)
	if err != nil {
		return nil, err
	}

	page := &models.LifecyclePeoplePage{
		Period:         target,
		Classification: classification,
		People:         people,
		Offset:         offset,
		Limit:          limit,
	}
	if len(ids) == limit {
		next := offset + limit
		page.NextOffset = &next
	}

	metrics.RecordLifecycleQuery("people", filter.Interval, time.Since(start))
	return page, nil
}

// buildLifecycleSeries expands rows into one dense series per
// classification, in priority order, with zero-filled periods.
func buildLifecycleSeries(rows []models.LifecycleRow, filter models.Filter, label string) []models.LifecycleSeries {
	periods := filter.Periods()

	counts := make(map[models.Classification]map[int64]int64, len(models.Classifications))
	for _, row := range rows {
		if counts[row.Classification] == nil {
			counts[row.Classification] = make(map[int64]int64)
		}
		counts[row.Classification][row.Period.Unix()] = row.Count
	}

	series := make([]models.LifecycleSeries, 0, len(models.Classifications))
	for _, c := range models.Classifications {
		s := models.LifecycleSeries{
			Classification: c,
			Label:          fmt.Sprintf("%s - %s", label, c),
			Days:           make([]string, len(periods)),
			Labels:         make([]string, len(periods)),
			Data:           make([]int64, len(periods)),
		}
		for i, p := range periods {
			s.Days[i] = models.FormatPeriod(p)
			s.Labels[i] = p.Format(models.PeriodLabelFormat)
			s.Data[i] = counts[c][p.Unix()]
			s.Count += s.Data[i]
		}
		series = append(series, s)
	}
	return series
}

// generateLifecycleQueryHash creates a deterministic hash for query reproducibility
func generateLifecycleQueryHash(teamID int64, filter models.Filter) string {
	canonical, err := json.Marshal(struct {
		TeamID int64         `json:"team_id"`
		Filter models.Filter `json:"filter"`
	}{teamID, filter})
	if err != nil {
		canonical = []byte(fmt.Sprintf("lifecycle|team=%d|interval=%s|from=%s|to=%s",
			teamID, filter.Interval, filter.DateFrom.Format(time.RFC3339), filter.DateTo.Format(time.RFC3339)))
	}

	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:8]) // First 8 bytes = 16 hex chars
}
