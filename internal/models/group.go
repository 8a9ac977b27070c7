// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// GroupKind identifies which variant a Group holds.
type GroupKind int

const (
	GroupKindProperties GroupKind = iota + 1
	GroupKindAction
	GroupKindEvent
)

func (k GroupKind) String() string {
	switch k {
	case GroupKindProperties:
		return "properties"
	case GroupKindAction:
		return "action"
	case GroupKindEvent:
		return "event"
	}
	return "unknown"
}

// CountOperator compares a person's event count against Window.Count.
type CountOperator string

const (
	CountEq  CountOperator = "eq"
	CountLTE CountOperator = "lte"
	CountGTE CountOperator = "gte"
)

// GroupSpec is the stored and wire form of a Group. Exactly one of
// Properties, ActionID and EventID may be set.
type GroupSpec struct {
	Properties    []Property    `json:"properties,omitempty"`
	ActionID      *int64        `json:"action_id,omitempty"`
	EventID       string        `json:"event_id,omitempty"`
	Days          int           `json:"days,omitempty"`
	Count         *int          `json:"count,omitempty"`
	CountOperator CountOperator `json:"count_operator,omitempty"`
	StartDate     string        `json:"start_date,omitempty"`
	EndDate       string        `json:"end_date,omitempty"`
	Label         string        `json:"label,omitempty"`
}

// Window bounds when, and how often, an action or event must have occurred.
type Window struct {
	// Days limits matching to the last N days (0 = unbounded)
	Days int

	// Count, when set, requires the number of occurrences to satisfy
	// CountOperator against it
	Count         *int
	CountOperator CountOperator

	// Start and End are resolved absolute bounds (nil = unbounded)
	Start *time.Time
	End   *time.Time
}

// Group is one disjunct of a dynamic cohort definition. The zero value is
// not a valid group; build one with NewGroup or the kind-specific helpers.
type Group struct {
	kind GroupKind
	spec GroupSpec
}

// NewGroup validates spec and returns the group it describes.
func NewGroup(spec GroupSpec) (Group, error) {
	kinds := 0
	var kind GroupKind
	if len(spec.Properties) > 0 {
		kinds++
		kind = GroupKindProperties
	}
	if spec.ActionID != nil {
		kinds++
		kind = GroupKindAction
	}
	if spec.EventID != "" {
		kinds++
		kind = GroupKindEvent
	}
	switch kinds {
	case 0:
		return Group{}, NewQueryConstructionError("group must set one of properties, action_id or event_id")
	case 1:
	default:
		return Group{}, NewQueryConstructionError("group sets %d of properties, action_id and event_id; exactly one is allowed", kinds)
	}

	if kind == GroupKindProperties && (spec.Days != 0 || spec.Count != nil || spec.StartDate != "" || spec.EndDate != "") {
		return Group{}, NewQueryConstructionError("property groups do not accept time or count bounds")
	}
	if spec.Days < 0 {
		return Group{}, NewQueryConstructionError("days must not be negative")
	}
	if spec.Count != nil && *spec.Count < 0 {
		return Group{}, NewQueryConstructionError("count must not be negative")
	}
	switch spec.CountOperator {
	case "", CountEq, CountLTE, CountGTE:
	default:
		return Group{}, NewQueryConstructionError("unsupported count operator %q", spec.CountOperator)
	}
	if spec.CountOperator != "" && spec.Count == nil {
		return Group{}, NewQueryConstructionError("count_operator requires count")
	}

	g := Group{kind: kind, spec: spec}
	w, err := g.Window(time.Now())
	if err != nil {
		return Group{}, err
	}
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return Group{}, NewQueryConstructionError("end_date is before start_date")
	}
	return g, nil
}

// PropertiesGroup builds a property-filter group.
func PropertiesGroup(props ...Property) (Group, error) {
	return NewGroup(GroupSpec{Properties: props})
}

// ActionGroup builds an action group bounded to the last days days (0 = any time).
func ActionGroup(actionID int64, days int) (Group, error) {
	return NewGroup(GroupSpec{ActionID: &actionID, Days: days})
}

// EventGroup builds an event group bounded to the last days days (0 = any time).
func EventGroup(event string, days int) (Group, error) {
	return NewGroup(GroupSpec{EventID: event, Days: days})
}

// Kind returns the variant held by g.
func (g Group) Kind() GroupKind { return g.kind }

// Properties returns the property filters of a properties group.
func (g Group) Properties() []Property { return g.spec.Properties }

// ActionID returns the referenced action of an action group.
func (g Group) ActionID() int64 {
	if g.spec.ActionID == nil {
		return 0
	}
	return *g.spec.ActionID
}

// EventName returns the referenced event of an event group.
func (g Group) EventName() string { return g.spec.EventID }

// Label returns the optional display label.
func (g Group) Label() string { return g.spec.Label }

// Spec returns the stored form of g.
func (g Group) Spec() GroupSpec { return g.spec }

// Window resolves the time and count bounds against ref. Relative dates are
// evaluated on every call so stored definitions keep sliding.
func (g Group) Window(ref time.Time) (Window, error) {
	w := Window{Days: g.spec.Days, Count: g.spec.Count, CountOperator: g.spec.CountOperator}
	if w.Count != nil && w.CountOperator == "" {
		w.CountOperator = CountGTE
	}
	if g.spec.StartDate != "" {
		t, err := ParseDateBound(g.spec.StartDate, ref)
		if err != nil {
			return Window{}, err
		}
		w.Start = &t
	}
	if g.spec.EndDate != "" {
		t, err := ParseDateBound(g.spec.EndDate, ref)
		if err != nil {
			return Window{}, err
		}
		w.End = &t
	}
	return w, nil
}

// MarshalJSON encodes the stored form.
func (g Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.spec)
}

// UnmarshalJSON decodes and validates the stored form.
func (g *Group) UnmarshalJSON(data []byte) error {
	var spec GroupSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	parsed, err := NewGroup(spec)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGroups decodes a stored groups list.
func ParseGroups(data []byte) ([]Group, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var groups []Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
