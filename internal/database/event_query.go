// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/tomtom215/cohortlens/internal/database/query"
	"github.com/tomtom215/cohortlens/internal/models"
)

// currentURLPath is the JSON path of the URL matched by action steps.
const currentURLPath = `$."$current_url"`

// eventsJoin joins events to their person through the distinct id mapping.
const eventsJoin = `FROM events e
		JOIN person_distinct_ids pdi ON pdi.team_id = e.team_id AND pdi.distinct_id = e.distinct_id
		JOIN persons p ON p.team_id = pdi.team_id AND p.id = pdi.person_id`

// activityQuery builds the DISTINCT (person_id, period, created_at) set for
// the filter's entity. The scanned window starts one period before the first
// reported period so that period can be classified against its predecessor.
func (b *filterBuilder) activityQuery(f models.Filter) (string, []interface{}, error) {
	if !f.Interval.Valid() {
		return "", nil, models.NewQueryConstructionError("unsupported interval %q", f.Interval)
	}
	entity, err := f.Entity()
	if err != nil {
		return "", nil, err
	}

	wb := query.NewWhereBuilder()
	wb.AddClause("e.team_id = ?", b.teamID)

	start, end := f.Interval.QueryWindow(f.DateFrom, f.DateTo)
	wb.AddTimeRange("e.timestamp", start, end)

	entityWB, err := b.entity(entity)
	if err != nil {
		return "", nil, err
	}
	wb.AddGroup(entityWB)

	propsWB, err := b.propertyGroup(f.Properties, eventScope)
	if err != nil {
		return "", nil, err
	}
	wb.AddGroup(propsWB)

	where, args := wb.Build()
	sql := fmt.Sprintf(`
		SELECT DISTINCT
			pdi.person_id AS person_id,
			CAST(DATE_TRUNC('%s', e.timestamp) AS TIMESTAMP) AS period,
			p.created_at AS created_at
		%s
		WHERE %s`, f.Interval.SQLUnit(), eventsJoin, where)

	return sql, args, nil
}

// entity renders the predicate selecting the entity's events.
func (b *filterBuilder) entity(entity models.Entity) (*query.WhereBuilder, error) {
	wb := query.NewWhereBuilder()

	switch entity.Type {
	case models.EntityTypeEvents:
		wb.AddClause("e.event = ?", entity.ID)
	case models.EntityTypeActions:
		actionID, err := entity.ActionID()
		if err != nil {
			return nil, err
		}
		actionWB, err := b.action(actionID)
		if err != nil {
			return nil, err
		}
		wb.AddGroup(actionWB)
	default:
		return nil, models.NewQueryConstructionError("unsupported entity type %q", entity.Type)
	}

	propsWB, err := b.properties(entity.Properties, eventScope)
	if err != nil {
		return nil, err
	}
	wb.AddGroup(propsWB)
	return wb, nil
}

// action resolves an action and renders the disjunction of its steps.
func (b *filterBuilder) action(actionID int64) (*query.WhereBuilder, error) {
	if b.resolver == nil {
		return nil, models.NewQueryConstructionError("action %d cannot be resolved: no definition source", actionID)
	}
	action, err := b.resolver.GetAction(b.ctx, b.teamID, actionID)
	if errors.Is(err, models.ErrActionNotFound) {
		return nil, &models.QueryConstructionError{Reason: fmt.Sprintf("action %d", actionID), Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve action %d: %w", actionID, err)
	}
	if action.Deleted {
		return nil, &models.QueryConstructionError{Reason: fmt.Sprintf("action %d is deleted", actionID), Err: models.ErrActionNotFound}
	}

	steps := query.NewWhereBuilderWith(query.Or)
	if len(action.Steps) == 0 {
		// An action without steps matches no events
		return steps.AddClause("FALSE"), nil
	}
	for i, step := range action.Steps {
		stepWB, err := b.actionStep(step)
		if err != nil {
			return nil, fmt.Errorf("action %d step %d: %w", actionID, i, err)
		}
		if stepWB.IsEmpty() {
			stepWB.AddClause("TRUE")
		}
		steps.AddGroup(stepWB)
	}
	return steps, nil
}

// actionStep renders one step: every set field must match.
func (b *filterBuilder) actionStep(step models.ActionStep) (*query.WhereBuilder, error) {
	wb := query.NewWhereBuilder()
	if step.Event != "" {
		wb.AddClause("e.event = ?", step.Event)
	}

	if step.URL != "" {
		url := "json_extract_string(e.properties, CAST(? AS VARCHAR))"
		switch step.URLMatching {
		case "", models.URLMatchContains:
			wb.AddClause("contains("+url+", ?)", currentURLPath, step.URL)
		case models.URLMatchExact:
			wb.AddClause(url+" = ?", currentURLPath, step.URL)
		case models.URLMatchRegex:
			if _, err := regexp.Compile(step.URL); err != nil {
				return nil, &models.QueryConstructionError{Reason: "invalid url regex", Err: err}
			}
			wb.AddClause("regexp_matches("+url+", ?)", currentURLPath, step.URL)
		default:
			return nil, models.NewQueryConstructionError("unsupported url matching %q", step.URLMatching)
		}
	}

	propsWB, err := b.properties(step.Properties, eventScope)
	if err != nil {
		return nil, err
	}
	wb.AddGroup(propsWB)
	return wb, nil
}
