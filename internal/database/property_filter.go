// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cohortlens/internal/database/query"
	"github.com/tomtom215/cohortlens/internal/models"
)

// maxCohortDepth bounds cohort-in-cohort inlining.
const maxCohortDepth = 5

// propertyScope names the columns a predicate may reference.
type propertyScope struct {
	// eventProps is the event JSON column; empty where no event is in scope
	eventProps string

	// personProps is the person JSON column
	personProps string

	// personID is the person id expression matched by cohort properties
	personID string
}

var (
	eventScope  = propertyScope{eventProps: "e.properties", personProps: "p.properties", personID: "pdi.person_id"}
	personScope = propertyScope{personProps: "p.properties", personID: "p.id"}
)

// filterBuilder renders filters into DuckDB predicates. It resolves actions
// and cohorts on demand and is not safe for concurrent use.
type filterBuilder struct {
	ctx      context.Context
	teamID   int64
	resolver DefinitionResolver
	ref      time.Time

	// visiting holds the cohorts currently being inlined
	visiting map[int64]bool
}

func (db *DB) newFilterBuilder(ctx context.Context, teamID int64) *filterBuilder {
	return &filterBuilder{
		ctx:      ctx,
		teamID:   teamID,
		resolver: db.getResolver(),
		ref:      db.now().UTC(),
		visiting: make(map[int64]bool),
	}
}

// propertyGroup renders a recursive AND/OR group.
func (b *filterBuilder) propertyGroup(g models.PropertyGroup, scope propertyScope) (*query.WhereBuilder, error) {
	connective := query.And
	switch g.Type {
	case "", models.PropertyGroupAnd:
	case models.PropertyGroupOr:
		connective = query.Or
	default:
		return nil, models.NewQueryConstructionError("unsupported property group type %q", g.Type)
	}

	wb := query.NewWhereBuilderWith(connective)
	for _, p := range g.Properties {
		clause, args, err := b.property(p, scope)
		if err != nil {
			return nil, err
		}
		wb.AddClause(clause, args...)
	}
	for _, sub := range g.Groups {
		subWB, err := b.propertyGroup(sub, scope)
		if err != nil {
			return nil, err
		}
		wb.AddGroup(subWB)
	}
	return wb, nil
}

// properties renders a flat AND list.
func (b *filterBuilder) properties(props []models.Property, scope propertyScope) (*query.WhereBuilder, error) {
	return b.propertyGroup(models.AndGroup(props...), scope)
}

// property renders one comparison as a parenthesized predicate.
func (b *filterBuilder) property(p models.Property, scope propertyScope) (string, []interface{}, error) {
	switch p.EffectiveType() {
	case models.PropertyTypeCohort:
		return b.cohortProperty(p, scope)
	case models.PropertyTypePerson:
		return comparison(scope.personProps, p)
	case models.PropertyTypeEvent:
		if scope.eventProps == "" {
			// Cohort property groups describe persons
			return comparison(scope.personProps, p)
		}
		return comparison(scope.eventProps, p)
	default:
		return "", nil, models.NewQueryConstructionError("unsupported property type %q", p.Type)
	}
}

// jsonPath returns the DuckDB JSON path for a top-level key.
func jsonPath(key string) (string, error) {
	if key == "" {
		return "", models.NewQueryConstructionError("property key is empty")
	}
	if strings.ContainsAny(key, "\"\\") {
		return "", models.NewQueryConstructionError("property key %q contains quotes or backslashes", key)
	}
	return `$."` + key + `"`, nil
}

// comparison renders p against the JSON column.
func comparison(column string, p models.Property) (string, []interface{}, error) {
	path, err := jsonPath(p.Key)
	if err != nil {
		return "", nil, err
	}
	col := fmt.Sprintf("json_extract_string(%s, CAST(? AS VARCHAR))", column)
	args := []interface{}{path}

	op := p.EffectiveOperator()
	switch op {
	case models.OperatorExact, models.OperatorIsNot:
		values, err := listValues(p.Value)
		if err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			return "", nil, models.NewQueryConstructionError("property %q: %s needs a value", p.Key, op)
		}
		for _, v := range values {
			args = append(args, v)
		}
		in := fmt.Sprintf("%s IN (%s)", col, query.Placeholders(len(values)))
		if op == models.OperatorExact {
			return "(" + in + ")", args, nil
		}
		// Repeat the path argument for the second column reference
		args = append([]interface{}{path}, args...)
		return fmt.Sprintf("(%s IS NULL OR %s NOT IN (%s))", col, col, query.Placeholders(len(values))), args, nil

	case models.OperatorIContains, models.OperatorNotIContains:
		v, err := scalarValue(p.Value)
		if err != nil {
			return "", nil, fmt.Errorf("property %q: %w", p.Key, err)
		}
		if op == models.OperatorIContains {
			return fmt.Sprintf("(contains(lower(%s), lower(?)))", col), append(args, v), nil
		}
		return fmt.Sprintf("(%s IS NULL OR NOT contains(lower(%s), lower(?)))", col, col), append([]interface{}{path}, append(args, v)...), nil

	case models.OperatorRegex, models.OperatorNotRegex:
		v, err := scalarValue(p.Value)
		if err != nil {
			return "", nil, fmt.Errorf("property %q: %w", p.Key, err)
		}
		if _, err := regexp.Compile(v); err != nil {
			return "", nil, &models.QueryConstructionError{Reason: fmt.Sprintf("property %q: invalid regex", p.Key), Err: err}
		}
		if op == models.OperatorRegex {
			return fmt.Sprintf("(regexp_matches(%s, ?))", col), append(args, v), nil
		}
		return fmt.Sprintf("(%s IS NULL OR NOT regexp_matches(%s, ?))", col, col), append([]interface{}{path}, append(args, v)...), nil

	case models.OperatorGT, models.OperatorGTE, models.OperatorLT, models.OperatorLTE:
		f, err := numericValue(p.Value)
		if err != nil {
			return "", nil, fmt.Errorf("property %q: %w", p.Key, err)
		}
		sqlOp := map[models.PropertyOperator]string{
			models.OperatorGT:  ">",
			models.OperatorGTE: ">=",
			models.OperatorLT:  "<",
			models.OperatorLTE: "<=",
		}[op]
		return fmt.Sprintf("(TRY_CAST(%s AS DOUBLE) %s ?)", col, sqlOp), append(args, f), nil

	case models.OperatorIsSet:
		return fmt.Sprintf("(%s IS NOT NULL)", col), args, nil

	case models.OperatorIsNotSet:
		return fmt.Sprintf("(%s IS NULL)", col), args, nil
	}

	return "", nil, models.NewQueryConstructionError("unsupported operator %q for property %q", op, p.Key)
}

// cohortProperty renders membership of the person in another cohort.
func (b *filterBuilder) cohortProperty(p models.Property, scope propertyScope) (string, []interface{}, error) {
	cohortID, err := cohortPropertyID(p)
	if err != nil {
		return "", nil, err
	}

	negate := false
	switch p.EffectiveOperator() {
	case models.OperatorExact:
	case models.OperatorIsNot:
		negate = true
	default:
		return "", nil, models.NewQueryConstructionError("unsupported operator %q for cohort property", p.Operator)
	}

	sub, args, err := b.cohortMembers(cohortID)
	if err != nil {
		return "", nil, err
	}

	in := "IN"
	if negate {
		in = "NOT IN"
	}
	return fmt.Sprintf("(%s %s (%s))", scope.personID, in, sub), args, nil
}

// cohortPropertyID accepts either {key: "<id>"} or {key: "id", value: <id>}.
func cohortPropertyID(p models.Property) (int64, error) {
	raw := p.Key
	if raw == "id" {
		v, err := scalarValue(p.Value)
		if err != nil {
			return 0, err
		}
		raw = v
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &models.QueryConstructionError{Reason: fmt.Sprintf("invalid cohort id %q", raw), Err: err}
	}
	return id, nil
}

// cohortMembers returns a subquery selecting the person ids of a cohort.
// Static cohorts read the static index; dynamic cohorts are inlined.
func (b *filterBuilder) cohortMembers(cohortID int64) (string, []interface{}, error) {
	if b.visiting[cohortID] {
		return "", nil, models.NewQueryConstructionError("cohort %d references itself", cohortID)
	}
	if len(b.visiting) >= maxCohortDepth {
		return "", nil, models.NewQueryConstructionError("cohort %d nests deeper than %d levels", cohortID, maxCohortDepth)
	}

	cohort, err := b.lookupCohort(cohortID)
	if err != nil {
		return "", nil, err
	}

	if cohort.IsStatic {
		return "SELECT person_id FROM person_static_cohort WHERE team_id = ? AND cohort_id = ?",
			[]interface{}{b.teamID, cohortID}, nil
	}

	b.visiting[cohortID] = true
	defer delete(b.visiting, cohortID)

	return b.cohortPersonQuery(cohort)
}

func (b *filterBuilder) lookupCohort(cohortID int64) (*models.Cohort, error) {
	if b.resolver == nil {
		return nil, models.NewQueryConstructionError("cohort %d cannot be resolved: no definition source", cohortID)
	}
	cohort, err := b.resolver.GetCohort(b.ctx, b.teamID, cohortID)
	if errors.Is(err, models.ErrCohortNotFound) {
		return nil, &models.QueryConstructionError{Reason: fmt.Sprintf("cohort %d", cohortID), Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve cohort %d: %w", cohortID, err)
	}
	if cohort.Deleted {
		return nil, &models.QueryConstructionError{Reason: fmt.Sprintf("cohort %d is deleted", cohortID), Err: models.ErrCohortNotFound}
	}
	return cohort, nil
}

// scalarValue renders a JSON scalar the way json_extract_string returns it.
func scalarValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case json.Number:
		return val.String(), nil
	case nil:
		return "", models.NewQueryConstructionError("missing property value")
	}
	return "", models.NewQueryConstructionError("unsupported property value type %T", v)
}

// listValues accepts a scalar or a list of scalars.
func listValues(v interface{}) ([]string, error) {
	switch val := v.(type) {
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, err := scalarValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, err := scalarValue(v)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

// numericValue accepts numbers and numeric strings.
func numericValue(v interface{}) (float64, error) {
	s, err := scalarValue(v)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &models.QueryConstructionError{Reason: fmt.Sprintf("value %q is not numeric", s), Err: err}
	}
	return f, nil
}
