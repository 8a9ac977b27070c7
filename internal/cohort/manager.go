// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package cohort

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomtom215/cohortlens/internal/activity"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/models"
	"github.com/tomtom215/cohortlens/internal/validation"
)

// ItemType is the activity log item type of cohorts.
const ItemType = "Cohort"

// DefinitionStore persists cohort definitions. Implemented by txstore.Store.
type DefinitionStore interface {
	CreateCohort(ctx context.Context, c *models.Cohort) error
	GetCohort(ctx context.Context, teamID, cohortID int64) (*models.Cohort, error)
	UpdateCohort(ctx context.Context, c *models.Cohort) error
}

// Trigger schedules an asynchronous recalculation. The event processor's
// publisher implements it.
type Trigger interface {
	TriggerRecalculation(ctx context.Context, teamID, cohortID int64) error
}

// CreateRequest describes a new cohort.
type CreateRequest struct {
	TeamID      int64          `validate:"required,gt=0"`
	Name        string         `validate:"required,max=400"`
	Description string         `validate:"max=1000"`
	Groups      []models.Group `validate:"-"`
	IsStatic    bool
	CreatedBy   *int64
}

// Manager owns cohort definitions and records every change in the activity
// log.
type Manager struct {
	store    DefinitionStore
	activity *activity.Logger
	trigger  Trigger
}

// NewManager creates a Manager. trigger may be nil, in which case
// definition changes are saved without scheduling a recalculation.
func NewManager(store DefinitionStore, log *activity.Logger, trigger Trigger) *Manager {
	return &Manager{store: store, activity: log, trigger: trigger}
}

// definition is the audited view of a cohort. Calculation bookkeeping is
// not part of it.
type definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Groups      []models.Group `json:"groups"`
	IsStatic    bool           `json:"is_static"`
	Deleted     bool           `json:"deleted"`
}

func definitionOf(c *models.Cohort) definition {
	return definition{
		Name:        c.Name,
		Description: c.Description,
		Groups:      c.Groups,
		IsStatic:    c.IsStatic,
		Deleted:     c.Deleted,
	}
}

// Create validates and stores a new cohort, then schedules its first
// calculation if it is dynamic.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.Cohort, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr.ToQueryConstructionError()
	}
	if !req.IsStatic && len(req.Groups) == 0 {
		return nil, models.NewQueryConstructionError("dynamic cohort requires at least one group")
	}

	c := &models.Cohort{
		TeamID:      req.TeamID,
		Name:        req.Name,
		Description: req.Description,
		Groups:      req.Groups,
		IsStatic:    req.IsStatic,
		CreatedBy:   req.CreatedBy,
	}
	if err := m.store.CreateCohort(ctx, c); err != nil {
		return nil, fmt.Errorf("create cohort: %w", err)
	}

	if err := m.record(ctx, c, req.CreatedBy, activity.ActivityCreated, nil, nil); err != nil {
		return c, err
	}
	return c, m.schedule(ctx, c)
}

// UpdateGroups replaces the whole group list of a dynamic cohort and
// schedules a recalculation.
func (m *Manager) UpdateGroups(ctx context.Context, teamID, cohortID int64, groups []models.Group, userID *int64) (*models.Cohort, error) {
	if len(groups) == 0 {
		return nil, models.NewQueryConstructionError("dynamic cohort requires at least one group")
	}
	return m.update(ctx, teamID, cohortID, userID, func(c *models.Cohort) error {
		if c.IsStatic {
			return &models.QueryConstructionError{Reason: fmt.Sprintf("cohort %d", c.ID), Err: models.ErrStaticCohort}
		}
		c.Groups = groups
		return nil
	})
}

// Rename changes the name and description.
func (m *Manager) Rename(ctx context.Context, teamID, cohortID int64, name, description string, userID *int64) (*models.Cohort, error) {
	if name == "" {
		return nil, models.NewQueryConstructionError("cohort name is required")
	}
	return m.update(ctx, teamID, cohortID, userID, func(c *models.Cohort) error {
		c.Name = name
		c.Description = description
		return nil
	})
}

// SoftDelete marks the cohort deleted. Membership rows are kept.
func (m *Manager) SoftDelete(ctx context.Context, teamID, cohortID int64, userID *int64) error {
	_, err := m.update(ctx, teamID, cohortID, userID, func(c *models.Cohort) error {
		c.Deleted = true
		return nil
	})
	return err
}

func (m *Manager) update(ctx context.Context, teamID, cohortID int64, userID *int64, mutate func(c *models.Cohort) error) (*models.Cohort, error) {
	c, err := m.store.GetCohort(ctx, teamID, cohortID)
	if err != nil {
		return nil, err
	}
	if c.Deleted {
		return nil, fmt.Errorf("cohort %d: %w", cohortID, models.ErrCohortNotFound)
	}

	before := definitionOf(c)
	if err := mutate(c); err != nil {
		return nil, err
	}
	after := definitionOf(c)

	changes := activity.ChangesBetween(ItemType, before, after)
	if len(changes) == 0 {
		return c, nil
	}
	if err := m.store.UpdateCohort(ctx, c); err != nil {
		return nil, err
	}

	verb := activity.ActivityUpdated
	if c.Deleted {
		verb = activity.ActivityDeleted
	}
	if err := m.record(ctx, c, userID, verb, before, after); err != nil {
		return c, err
	}
	for _, ch := range changes {
		if ch.Field == "groups" && !c.Deleted {
			return c, m.schedule(ctx, c)
		}
	}
	return c, nil
}

func (m *Manager) record(ctx context.Context, c *models.Cohort, userID *int64, verb string, before, after interface{}) error {
	if m.activity == nil {
		return nil
	}
	teamID := c.TeamID
	entry := activity.Entry{
		TeamID:   &teamID,
		UserID:   userID,
		ItemType: ItemType,
		ItemID:   strconv.FormatInt(c.ID, 10),
		Activity: verb,
		Detail:   activity.Detail{Name: c.Name},
	}
	if before == nil && after == nil {
		return m.activity.Log(ctx, &entry)
	}
	return m.activity.LogChanges(ctx, entry, before, after)
}

func (m *Manager) schedule(ctx context.Context, c *models.Cohort) error {
	if m.trigger == nil || c.IsStatic {
		return nil
	}
	if err := m.trigger.TriggerRecalculation(ctx, c.TeamID, c.ID); err != nil {
		logging.CtxErr(ctx, err).Int64("cohort_id", c.ID).Msg("Failed to schedule cohort recalculation")
		return fmt.Errorf("schedule recalculation of cohort %d: %w", c.ID, err)
	}
	return nil
}
