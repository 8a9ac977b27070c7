// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"fmt"

	"github.com/tomtom215/cohortlens/internal/database/query"
	"github.com/tomtom215/cohortlens/internal/models"
)

// cohortPersonQuery renders a SELECT of person ids matching any of the
// cohort's groups.
func (b *filterBuilder) cohortPersonQuery(cohort *models.Cohort) (string, []interface{}, error) {
	if len(cohort.Groups) == 0 {
		return "", nil, models.NewQueryConstructionError("cohort %d has no groups", cohort.ID)
	}

	groups := query.NewWhereBuilderWith(query.Or)
	for i, g := range cohort.Groups {
		gwb, err := b.cohortGroup(g)
		if err != nil {
			return "", nil, fmt.Errorf("cohort %d group %d: %w", cohort.ID, i, err)
		}
		if gwb.IsEmpty() {
			gwb.AddClause("TRUE")
		}
		groups.AddGroup(gwb)
	}

	wb := query.NewWhereBuilder()
	wb.AddClause("p.team_id = ?", b.teamID)
	wb.AddGroup(groups)

	where, args := wb.Build()
	return "SELECT p.id AS person_id FROM persons p WHERE " + where, args, nil
}

// cohortGroup renders one group over persons p.
func (b *filterBuilder) cohortGroup(g models.Group) (*query.WhereBuilder, error) {
	switch g.Kind() {
	case models.GroupKindProperties:
		return b.properties(g.Properties(), personScope)
	case models.GroupKindAction, models.GroupKindEvent:
		sub, args, err := b.performedQuery(g)
		if err != nil {
			return nil, err
		}
		return query.NewWhereBuilder().AddClause("p.id IN ("+sub+")", args...), nil
	}
	return nil, models.NewQueryConstructionError("group has no kind")
}

// performedQuery selects persons who performed the group's action or event
// inside its window, optionally constrained by an occurrence count.
func (b *filterBuilder) performedQuery(g models.Group) (string, []interface{}, error) {
	w, err := g.Window(b.ref)
	if err != nil {
		return "", nil, err
	}

	wb := query.NewWhereBuilder()
	wb.AddClause("e.team_id = ?", b.teamID)

	if g.Kind() == models.GroupKindAction {
		actionWB, err := b.action(g.ActionID())
		if err != nil {
			return "", nil, err
		}
		wb.AddGroup(actionWB)
	} else {
		wb.AddClause("e.event = ?", g.EventName())
	}

	if w.Days > 0 {
		wb.AddClause("e.timestamp >= ?", b.ref.AddDate(0, 0, -w.Days))
	}
	if w.Start != nil {
		wb.AddClause("e.timestamp >= ?", w.Start.UTC())
	}
	if w.End != nil {
		wb.AddClause("e.timestamp <= ?", w.End.UTC())
	}

	where, args := wb.Build()
	sql := fmt.Sprintf(`SELECT pdi.person_id
		%s
		WHERE %s
		GROUP BY pdi.person_id`, eventsJoin, where)

	if w.Count != nil {
		op := map[models.CountOperator]string{
			models.CountEq:  "=",
			models.CountLTE: "<=",
			models.CountGTE: ">=",
		}[w.CountOperator]
		if op == "" {
			return "", nil, models.NewQueryConstructionError("unsupported count operator %q", w.CountOperator)
		}
		sql += " HAVING COUNT(*) " + op + " ?"
		args = append(args, *w.Count)
	}

	return sql, args, nil
}
