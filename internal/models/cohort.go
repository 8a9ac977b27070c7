// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package models

import "time"

// Cohort is a named, versioned set of persons. Dynamic cohorts are defined
// by Groups (a disjunction); static cohorts are filled by ingestion.
type Cohort struct {
	ID          int64   `json:"id"`
	TeamID      int64   `json:"team_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Groups      []Group `json:"groups"`
	IsStatic    bool    `json:"is_static"`

	// Version is the last successfully completed generation (nil = never)
	Version *int `json:"version"`

	// PendingVersion is the most recently started generation
	PendingVersion *int `json:"pending_version"`

	// Count is the membership size at Version
	Count *int64 `json:"count"`

	IsCalculating        bool       `json:"is_calculating"`
	ErrorsCalculating    int        `json:"errors_calculating"`
	LastCalculation      *time.Time `json:"last_calculation"`
	CalculationStartedAt *time.Time `json:"calculation_started_at,omitempty"`

	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Deleted   bool      `json:"deleted"`
}

// CurrentVersion returns Version or 0 when unset.
func (c *Cohort) CurrentVersion() int {
	if c.Version == nil {
		return 0
	}
	return *c.Version
}

// CohortAnalyticsMetadata summarizes a cohort definition for reporting.
type CohortAnalyticsMetadata struct {
	GroupsCount           int   `json:"groups_count"`
	PropertyGroupsCount   int   `json:"property_groups_count"`
	ActionGroupsCount     int   `json:"action_groups_count"`
	EventGroupsCount      int   `json:"event_groups_count"`
	GroupsWithDays        int   `json:"groups_with_days"`
	GroupsWithCount       int   `json:"groups_with_count"`
	PropertiesTotal       int   `json:"properties_total"`
	IsStatic              bool  `json:"is_static"`
	PersonCountPrecalc    int64 `json:"person_count_precalc"`
	ErrorsCalculating     int   `json:"errors_calculating"`
	CalculatedAtLeastOnce bool  `json:"calculated_at_least_once"`
}

// AnalyticsMetadata reports the shape of the cohort definition.
func (c *Cohort) AnalyticsMetadata() CohortAnalyticsMetadata {
	meta := CohortAnalyticsMetadata{
		GroupsCount:           len(c.Groups),
		IsStatic:              c.IsStatic,
		ErrorsCalculating:     c.ErrorsCalculating,
		CalculatedAtLeastOnce: c.Version != nil,
	}
	if c.Count != nil {
		meta.PersonCountPrecalc = *c.Count
	}
	for _, g := range c.Groups {
		switch g.Kind() {
		case GroupKindProperties:
			meta.PropertyGroupsCount++
			meta.PropertiesTotal += len(g.Properties())
		case GroupKindAction:
			meta.ActionGroupsCount++
		case GroupKindEvent:
			meta.EventGroupsCount++
		}
		if g.spec.Days > 0 {
			meta.GroupsWithDays++
		}
		if g.spec.Count != nil {
			meta.GroupsWithCount++
		}
	}
	return meta
}

// CohortMembership is one membership row. Version ties it to a completed or
// in-flight generation; nil for rows ingested before any calculation.
type CohortMembership struct {
	ID       int64  `json:"id"`
	CohortID int64  `json:"cohort_id"`
	PersonID string `json:"person_id"`
	Version  *int   `json:"version"`
}

// CalculationStatus is the bookkeeping view a watchdog needs.
type CalculationStatus struct {
	CohortID             int64      `json:"cohort_id"`
	TeamID               int64      `json:"team_id"`
	PendingVersion       *int       `json:"pending_version"`
	IsCalculating        bool       `json:"is_calculating"`
	ErrorsCalculating    int        `json:"errors_calculating"`
	CalculationStartedAt *time.Time `json:"calculation_started_at"`
}
