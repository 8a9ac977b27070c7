// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

// Package activity records who changed what on cohorts and other items.
//
// Each Entry is scoped to exactly one of a team or an organization and
// carries a Detail listing field-level changes computed by ChangesBetween:
//
//	created  the field was unset before and is set now
//	deleted  the field was set before and is unset now
//	changed  both set, values differ
//
// Entries are loaded newest first, DefaultLoadLimit at a time.
//
// # Storage
//
// Store is implemented by txstore.Store for production and by MemoryStore
// for tests.
//
// # Usage Example
//
//	logger := activity.NewLogger(store)
//	err := logger.LogChanges(ctx, activity.Entry{
//	    TeamID:   &teamID,
//	    UserID:   &userID,
//	    ItemType: "Cohort",
//	    ItemID:   strconv.FormatInt(cohort.ID, 10),
//	    Activity: activity.ActivityUpdated,
//	}, before, after)
package activity
