// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package query provides SQL query building utilities for the database package.
// It reduces code duplication and provides type-safe query construction.
package query

import (
	"fmt"
	"strings"
	"time"
)

// Connective joins the clauses of a WhereBuilder.
type Connective string

const (
	And Connective = "AND"
	Or  Connective = "OR"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
// Builders nest through AddGroup, which is how AND/OR property trees are
// rendered.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("e.team_id = ?", teamID)
//	wb.AddTimeRange("e.timestamp", from, to)
//	wb.AddIn("e.event", []string{"$pageview", "$autocapture"})
//	whereClause, args := wb.Build()
//	// e.team_id = ? AND e.timestamp >= ? AND e.timestamp < ? AND e.event IN (?, ?)
type WhereBuilder struct {
	connective Connective
	clauses    []string
	args       []interface{}
}

// NewWhereBuilder creates a new AND builder.
func NewWhereBuilder() *WhereBuilder {
	return NewWhereBuilderWith(And)
}

// NewWhereBuilderWith creates a builder using the given connective.
func NewWhereBuilderWith(c Connective) *WhereBuilder {
	if c != Or {
		c = And
	}
	return &WhereBuilder{
		connective: c,
		clauses:    []string{},
		args:       []interface{}{},
	}
}

// AddClause adds a raw condition with its arguments.
//
// Parameters:
//   - clause: SQL condition fragment (e.g., "e.event = ?")
//   - args: Arguments to bind to placeholders in the clause
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddTimeRange adds a half-open [from, to) range on column. Zero times are
// skipped.
func (wb *WhereBuilder) AddTimeRange(column string, from, to time.Time) *WhereBuilder {
	if !from.IsZero() {
		wb.AddClause(column+" >= ?", from)
	}
	if !to.IsZero() {
		wb.AddClause(column+" < ?", to)
	}
	return wb
}

// AddIn adds "column IN (?, ...)". An empty list adds a clause that matches
// nothing, never an empty IN list.
func (wb *WhereBuilder) AddIn(column string, items []string) *WhereBuilder {
	if len(items) == 0 {
		return wb.AddClause("FALSE")
	}
	args := make([]interface{}, len(items))
	for i, item := range items {
		args[i] = item
	}
	return wb.AddClause(fmt.Sprintf("%s IN (%s)", column, Placeholders(len(items))), args...)
}

// AddGroup adds a nested builder as one parenthesized clause. Empty groups
// are skipped.
func (wb *WhereBuilder) AddGroup(sub *WhereBuilder) *WhereBuilder {
	if sub == nil || sub.IsEmpty() {
		return wb
	}
	clause, args := sub.Build()
	return wb.AddClause("("+clause+")", args...)
}

// Build constructs the final clause and returns it with arguments.
// Returns ("TRUE", []) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "TRUE", []interface{}{}
	}
	if len(wb.clauses) == 1 {
		return wb.clauses[0], wb.args
	}
	return strings.Join(wb.clauses, " "+string(wb.connective)+" "), wb.args
}

// BuildWithPrefix returns the clause with "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

// Placeholders returns n comma-separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
