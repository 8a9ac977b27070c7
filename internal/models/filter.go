// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import (
	"strconv"
	"time"
)

// EntityType distinguishes plain event names from action references.
type EntityType string

const (
	EntityTypeEvents  EntityType = "events"
	EntityTypeActions EntityType = "actions"
)

// Entity describes what counts as activity in a lifecycle query.
type Entity struct {
	// Type is "events" or "actions"
	Type EntityType `json:"type" validate:"required,oneof=events actions"`

	// ID is the event name, or the numeric action id for action entities
	ID string `json:"id" validate:"required,max=400"`

	// Name is the display name used in series labels (defaults to ID)
	Name string `json:"name,omitempty" validate:"max=400"`

	// Properties are extra event filters ANDed with the entity predicate
	Properties []Property `json:"properties,omitempty" validate:"dive"`
}

// ActionID parses the entity id as an action id.
func (e Entity) ActionID() (int64, error) {
	if e.Type != EntityTypeActions {
		return 0, NewQueryConstructionError("entity %q is not an action", e.ID)
	}
	id, err := strconv.ParseInt(e.ID, 10, 64)
	if err != nil {
		return 0, &QueryConstructionError{Reason: "invalid action id " + strconv.Quote(e.ID), Err: err}
	}
	return id, nil
}

// DisplayName returns Name, falling back to ID.
func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// PropertyType selects where a property is read from.
type PropertyType string

const (
	PropertyTypeEvent  PropertyType = "event"
	PropertyTypePerson PropertyType = "person"
	PropertyTypeCohort PropertyType = "cohort"
)

// PropertyOperator is a comparison applied to a property value.
type PropertyOperator string

const (
	OperatorExact        PropertyOperator = "exact"
	OperatorIsNot        PropertyOperator = "is_not"
	OperatorIContains    PropertyOperator = "icontains"
	OperatorNotIContains PropertyOperator = "not_icontains"
	OperatorRegex        PropertyOperator = "regex"
	OperatorNotRegex     PropertyOperator = "not_regex"
	OperatorGT           PropertyOperator = "gt"
	OperatorGTE          PropertyOperator = "gte"
	OperatorLT           PropertyOperator = "lt"
	OperatorLTE          PropertyOperator = "lte"
	OperatorIsSet        PropertyOperator = "is_set"
	OperatorIsNotSet     PropertyOperator = "is_not_set"
)

// Property is one atomic comparison.
type Property struct {
	// Key is the property name, or the cohort id for cohort properties
	Key string `json:"key" validate:"required"`

	// Value is a scalar, or a list for exact/is_not (matches any element)
	Value interface{} `json:"value,omitempty"`

	// Operator defaults to exact
	Operator PropertyOperator `json:"operator,omitempty"`

	// Type defaults to event
	Type PropertyType `json:"type,omitempty"`
}

// EffectiveOperator returns the operator with the default applied.
func (p Property) EffectiveOperator() PropertyOperator {
	if p.Operator == "" {
		return OperatorExact
	}
	return p.Operator
}

// EffectiveType returns the property type with the default applied.
func (p Property) EffectiveType() PropertyType {
	if p.Type == "" {
		return PropertyTypeEvent
	}
	return p.Type
}

// PropertyGroupType is the boolean connective of a PropertyGroup.
type PropertyGroupType string

const (
	PropertyGroupAnd PropertyGroupType = "AND"
	PropertyGroupOr  PropertyGroupType = "OR"
)

// PropertyGroup is a recursive AND/OR tree. Properties and nested groups are
// combined with the same connective.
type PropertyGroup struct {
	Type       PropertyGroupType `json:"type,omitempty"`
	Properties []Property        `json:"properties,omitempty"`
	Groups     []PropertyGroup   `json:"groups,omitempty"`
}

// AndGroup builds an AND group over props.
func AndGroup(props ...Property) PropertyGroup {
	return PropertyGroup{Type: PropertyGroupAnd, Properties: props}
}

// IsEmpty reports whether the group constrains nothing.
func (g PropertyGroup) IsEmpty() bool {
	if len(g.Properties) > 0 {
		return false
	}
	for _, sub := range g.Groups {
		if !sub.IsEmpty() {
			return false
		}
	}
	return true
}

// Filter is a complete lifecycle query specification. It is immutable once
// built and may be shared between goroutines.
type Filter struct {
	// Entities holds the measured entity; lifecycle queries use the first one
	Entities []Entity `json:"events" validate:"required,min=1,dive"`

	// DateFrom is the first reported period (truncated to Interval)
	DateFrom time.Time `json:"date_from" validate:"required"`

	// DateTo is the last reported period (truncated to Interval)
	DateTo time.Time `json:"date_to" validate:"required,gtefield=DateFrom"`

	// Interval is the period granularity
	Interval Interval `json:"interval" validate:"required,oneof=day week month"`

	// Properties filters events (and persons) for every entity
	Properties PropertyGroup `json:"properties,omitempty"`
}

// Entity returns the measured entity.
func (f Filter) Entity() (Entity, error) {
	if len(f.Entities) == 0 {
		return Entity{}, NewQueryConstructionError("filter has no entity")
	}
	return f.Entities[0], nil
}

// Periods returns the reported period starts.
func (f Filter) Periods() []time.Time {
	return f.Interval.Periods(f.DateFrom, f.DateTo)
}
