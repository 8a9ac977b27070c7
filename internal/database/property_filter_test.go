// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/cohortlens/internal/models"
)

func TestComparison_SQL(t *testing.T) {
	tests := []struct {
		name     string
		prop     models.Property
		contains string
		args     int
	}{
		{"exact scalar", models.Property{Key: "plan", Value: "pro"}, "IN (?)", 2},
		{"exact list", models.Property{Key: "plan", Value: []interface{}{"pro", "team", 3.0}}, "IN (?, ?, ?)", 4},
		{"is_not", models.Property{Key: "plan", Value: "pro", Operator: models.OperatorIsNot}, "IS NULL OR", 3},
		{"icontains", models.Property{Key: "name", Value: "Ann", Operator: models.OperatorIContains}, "contains(lower(", 2},
		{"not_icontains", models.Property{Key: "name", Value: "Ann", Operator: models.OperatorNotIContains}, "NOT contains", 3},
		{"regex", models.Property{Key: "email", Value: `@example\.com$`, Operator: models.OperatorRegex}, "regexp_matches", 2},
		{"lte", models.Property{Key: "seats", Value: "10", Operator: models.OperatorLTE}, "AS DOUBLE) <= ?", 2},
		{"is_set", models.Property{Key: "plan", Operator: models.OperatorIsSet}, "IS NOT NULL", 1},
		{"is_not_set", models.Property{Key: "plan", Operator: models.OperatorIsNotSet}, "IS NULL)", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := comparison("e.properties", tt.prop)
			if err != nil {
				t.Fatalf("comparison: %v", err)
			}
			if !strings.Contains(sql, tt.contains) {
				t.Errorf("sql %q does not contain %q", sql, tt.contains)
			}
			if strings.Count(sql, "?") != len(args) || len(args) != tt.args {
				t.Errorf("sql %q has %d placeholders, %d args, want %d", sql, strings.Count(sql, "?"), len(args), tt.args)
			}
			if args[0] != `$."`+tt.prop.Key+`"` {
				t.Errorf("first arg = %v, want json path", args[0])
			}
		})
	}
}

func TestComparison_Errors(t *testing.T) {
	tests := []struct {
		name string
		prop models.Property
	}{
		{"empty key", models.Property{Value: "x"}},
		{"quoted key", models.Property{Key: `a"b`, Value: "x"}},
		{"unknown operator", models.Property{Key: "a", Value: "x", Operator: "between"}},
		{"exact without value", models.Property{Key: "a"}},
		{"empty list", models.Property{Key: "a", Value: []interface{}{}}},
		{"map value", models.Property{Key: "a", Value: map[string]interface{}{"x": 1}}},
		{"bad regex", models.Property{Key: "a", Value: "[", Operator: models.OperatorNotRegex}},
		{"non-numeric", models.Property{Key: "a", Value: "ten", Operator: models.OperatorGTE}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := comparison("e.properties", tt.prop)
			if !models.IsQueryConstructionError(err) {
				t.Errorf("expected QueryConstructionError, got %v", err)
			}
		})
	}
}

func TestCohortPropertyID(t *testing.T) {
	tests := []struct {
		prop    models.Property
		want    int64
		wantErr bool
	}{
		{models.Property{Key: "42", Type: models.PropertyTypeCohort}, 42, false},
		{models.Property{Key: "id", Value: 7.0, Type: models.PropertyTypeCohort}, 7, false},
		{models.Property{Key: "id", Value: "9", Type: models.PropertyTypeCohort}, 9, false},
		{models.Property{Key: "beta", Type: models.PropertyTypeCohort}, 0, true},
		{models.Property{Key: "id", Type: models.PropertyTypeCohort}, 0, true},
	}

	for _, tt := range tests {
		got, err := cohortPropertyID(tt.prop)
		if (err != nil) != tt.wantErr {
			t.Errorf("cohortPropertyID(%+v) error = %v, wantErr %v", tt.prop, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("cohortPropertyID(%+v) = %d, want %d", tt.prop, got, tt.want)
		}
	}
}

// activeOn counts persons classified new on 2024-05-01 under the given
// property group.
func activeOn(t *testing.T, db *DB, props models.PropertyGroup) int64 {
	t.Helper()
	filter := pageviewFilter(models.IntervalDay, day(2024, 5, 1), day(2024, 5, 1))
	filter.Properties = props
	result, err := db.GetLifecycle(context.Background(), 1, filter)
	if err != nil {
		t.Fatalf("GetLifecycle: %v", err)
	}
	return result.Count(day(2024, 5, 1), models.ClassificationNew)
}

func TestPropertyOperators_Evaluate(t *testing.T) {
	db := setupTestDB(t)

	people := []struct {
		id    string
		props map[string]interface{}
		url   string
	}{
		{"ann", map[string]interface{}{"name": "Ann Lee", "email": "ann@example.com", "seats": 3}, "https://app.io/home"},
		{"bob", map[string]interface{}{"name": "Bob", "email": "bob@corp.io", "seats": 25, "plan": "pro"}, "https://app.io/billing"},
		{"cy", map[string]interface{}{"name": "Cy", "plan": "free"}, "https://docs.io/start"},
	}
	for _, p := range people {
		seedPerson(t, db, 1, p.id, day(2024, 5, 1), p.props)
		seedEvent(t, db, 1, "$pageview", p.id, day(2024, 5, 1).Add(time.Hour), map[string]interface{}{"$current_url": p.url})
	}

	person := func(key string, op models.PropertyOperator, value interface{}) models.PropertyGroup {
		return models.AndGroup(models.Property{Key: key, Value: value, Operator: op, Type: models.PropertyTypePerson})
	}

	tests := []struct {
		name  string
		group models.PropertyGroup
		want  int64
	}{
		{"no filter", models.PropertyGroup{}, 3},
		{"exact", person("plan", models.OperatorExact, "pro"), 1},
		{"exact list", person("plan", models.OperatorExact, []interface{}{"pro", "free"}), 2},
		{"is_not includes unset", person("plan", models.OperatorIsNot, "pro"), 2},
		{"icontains", person("name", models.OperatorIContains, "ann"), 1},
		{"not_icontains", person("name", models.OperatorNotIContains, "ann"), 2},
		{"regex", person("email", models.OperatorRegex, `@example\.com$`), 1},
		{"not_regex includes unset", person("email", models.OperatorNotRegex, `@example\.com$`), 2},
		{"gt", person("seats", models.OperatorGT, 3), 1},
		{"gte", person("seats", models.OperatorGTE, 3), 2},
		{"lt", person("seats", models.OperatorLT, "10"), 1},
		{"is_set", person("seats", models.OperatorIsSet, nil), 2},
		{"is_not_set", person("seats", models.OperatorIsNotSet, nil), 1},
		{"event url", models.AndGroup(models.Property{Key: "$current_url", Value: "app.io", Operator: models.OperatorIContains}), 2},
		{"nested", models.PropertyGroup{
			Type: models.PropertyGroupAnd,
			Groups: []models.PropertyGroup{
				{Type: models.PropertyGroupOr, Properties: []models.Property{
					{Key: "plan", Value: "free", Type: models.PropertyTypePerson},
					{Key: "seats", Value: 20, Operator: models.OperatorGT, Type: models.PropertyTypePerson},
				}},
				{Properties: []models.Property{
					{Key: "$current_url", Value: "billing", Operator: models.OperatorIContains},
				}},
			},
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := activeOn(t, db, tt.group); got != tt.want {
				t.Errorf("matched %d persons, want %d", got, tt.want)
			}
		})
	}
}

func TestCohortProperty_Evaluate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	resolver := newFakeResolver()
	db.SetResolver(resolver)

	for _, id := range []string{"ann", "bob", "cy"} {
		plan := "free"
		if id == "bob" {
			plan = "pro"
		}
		seedPerson(t, db, 1, id, day(2024, 5, 1), map[string]interface{}{"plan": plan})
		seedEvent(t, db, 1, "$pageview", id, day(2024, 5, 1), nil)
	}

	resolver.cohorts[1] = &models.Cohort{ID: 1, TeamID: 1, IsStatic: true}
	checkNoError(t, db.InsertStaticCohort(ctx, 1, 1, []string{"ann", "cy"}))

	pro, err := models.PropertiesGroup(models.Property{Key: "plan", Value: "pro"})
	checkNoError(t, err)
	resolver.cohorts[2] = &models.Cohort{ID: 2, TeamID: 1, Groups: []models.Group{pro}}

	// Dynamic cohort whose only group references the static one
	inStatic, err := models.PropertiesGroup(models.Property{Key: "1", Type: models.PropertyTypeCohort})
	checkNoError(t, err)
	resolver.cohorts[3] = &models.Cohort{ID: 3, TeamID: 1, Groups: []models.Group{inStatic}}

	cohort := func(id string, op models.PropertyOperator) models.PropertyGroup {
		return models.AndGroup(models.Property{Key: id, Operator: op, Type: models.PropertyTypeCohort})
	}

	tests := []struct {
		name  string
		group models.PropertyGroup
		want  int64
	}{
		{"static member", cohort("1", ""), 2},
		{"static non-member", cohort("1", models.OperatorIsNot), 1},
		{"dynamic member", cohort("2", models.OperatorExact), 1},
		{"nested dynamic", cohort("3", ""), 2},
		{"id key form", models.AndGroup(models.Property{Key: "id", Value: 2, Type: models.PropertyTypeCohort}), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := activeOn(t, db, tt.group); got != tt.want {
				t.Errorf("matched %d persons, want %d", got, tt.want)
			}
		})
	}

	// Self and mutual references fail instead of recursing
	loopA, err := models.PropertiesGroup(models.Property{Key: "11", Type: models.PropertyTypeCohort})
	checkNoError(t, err)
	loopB, err := models.PropertiesGroup(models.Property{Key: "10", Type: models.PropertyTypeCohort})
	checkNoError(t, err)
	resolver.cohorts[10] = &models.Cohort{ID: 10, TeamID: 1, Groups: []models.Group{loopA}}
	resolver.cohorts[11] = &models.Cohort{ID: 11, TeamID: 1, Groups: []models.Group{loopB}}

	filter := pageviewFilter(models.IntervalDay, day(2024, 5, 1), day(2024, 5, 1))
	filter.Properties = cohort("10", "")
	if _, err := db.GetLifecycle(ctx, 1, filter); !models.IsQueryConstructionError(err) {
		t.Errorf("cyclic cohorts: expected QueryConstructionError, got %v", err)
	}

	resolver.cohorts[12] = &models.Cohort{ID: 12, TeamID: 1, Groups: []models.Group{pro}, Deleted: true}
	filter.Properties = cohort("12", "")
	if _, err := db.GetLifecycle(ctx, 1, filter); !models.IsQueryConstructionError(err) {
		t.Errorf("deleted cohort: expected QueryConstructionError, got %v", err)
	}

	filter.Properties = cohort("2", models.OperatorIContains)
	if _, err := db.GetLifecycle(ctx, 1, filter); !models.IsQueryConstructionError(err) {
		t.Errorf("unsupported cohort operator: expected QueryConstructionError, got %v", err)
	}
}
