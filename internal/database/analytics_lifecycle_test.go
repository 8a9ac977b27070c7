// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/cohortlens/internal/models"
)

func pageviewFilter(interval models.Interval, from, to time.Time) models.Filter {
	return models.Filter{
		Entities: []models.Entity{{Type: models.EntityTypeEvents, ID: "$pageview"}},
		DateFrom: from,
		DateTo:   to,
		Interval: interval,
	}
}

type bucket struct {
	period time.Time
	status models.Classification
}

func rowCounts(result *models.LifecycleResult) map[bucket]int64 {
	out := make(map[bucket]int64, len(result.Rows))
	for _, row := range result.Rows {
		out[bucket{row.Period, row.Classification}] = row.Count
	}
	return out
}

func TestGetLifecycle_WeeklyScenario(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seedPerson(t, db, 1, "p1", day(2024, 1, 10), nil)
	seedEvent(t, db, 1, "$pageview", "p1", day(2024, 1, 10).Add(9*time.Hour), nil)
	seedEvent(t, db, 1, "$pageview", "p1", day(2024, 1, 25).Add(15*time.Hour), nil)

	result, err := db.GetLifecycle(ctx, 1, pageviewFilter(models.IntervalWeek, day(2024, 1, 8), day(2024, 1, 29)))
	checkNoError(t, err)

	want := []models.LifecycleRow{
		{Period: day(2024, 1, 8), Classification: models.ClassificationNew, Count: 1, Label: "$pageview - new"},
		{Period: day(2024, 1, 15), Classification: models.ClassificationDormant, Count: 1, Label: "$pageview - dormant"},
		{Period: day(2024, 1, 22), Classification: models.ClassificationResurrecting, Count: 1, Label: "$pageview - resurrecting"},
		{Period: day(2024, 1, 29), Classification: models.ClassificationDormant, Count: 1, Label: "$pageview - dormant"},
	}
	if len(result.Rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(result.Rows), len(want), result.Rows)
	}
	for i, w := range want {
		got := result.Rows[i]
		if !got.Period.Equal(w.Period) || got.Classification != w.Classification || got.Count != w.Count || got.Label != w.Label {
			t.Errorf("row %d = %+v, want %+v", i, got, w)
		}
	}

	if len(result.Series) != len(models.Classifications) {
		t.Fatalf("expected %d series, got %d", len(models.Classifications), len(result.Series))
	}
	dormant := result.Series[3]
	if dormant.Classification != models.ClassificationDormant {
		t.Fatalf("series out of priority order: %v", dormant.Classification)
	}
	if fmt.Sprint(dormant.Data) != "[0 1 0 1]" {
		t.Errorf("dormant data = %v, want [0 1 0 1]", dormant.Data)
	}
	if dormant.Days[0] != "2024-01-08" || dormant.Labels[0] != "8-Jan-2024" {
		t.Errorf("unexpected series keys %q / %q", dormant.Days[0], dormant.Labels[0])
	}
	if dormant.Count != 2 {
		t.Errorf("dormant total = %d, want 2", dormant.Count)
	}
	if result.Metadata.QueryHash == "" || result.Metadata.EntityName != "$pageview" {
		t.Errorf("metadata not populated: %+v", result.Metadata)
	}
}

func TestGetLifecycle_ReturningAndTeamScope(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Created long before the window, active on consecutive days, with two
	// distinct ids that must collapse into one person.
	seedPerson(t, db, 1, "p1", day(2023, 6, 1), nil, "anon-1", "user@example.com")
	seedEvent(t, db, 1, "$pageview", "anon-1", day(2024, 3, 1).Add(time.Hour), nil)
	seedEvent(t, db, 1, "$pageview", "user@example.com", day(2024, 3, 1).Add(2*time.Hour), nil)
	seedEvent(t, db, 1, "$pageview", "user@example.com", day(2024, 3, 2).Add(time.Hour), nil)

	// Same distinct id in another team must not leak in
	seedPerson(t, db, 2, "other", day(2024, 3, 1), nil, "anon-1")
	seedEvent(t, db, 2, "$pageview", "anon-1", day(2024, 3, 2), nil)

	result, err := db.GetLifecycle(ctx, 1, pageviewFilter(models.IntervalDay, day(2024, 3, 1), day(2024, 3, 3)))
	checkNoError(t, err)

	got := rowCounts(result)
	want := map[bucket]int64{
		{day(2024, 3, 1), models.ClassificationResurrecting}: 1,
		{day(2024, 3, 2), models.ClassificationReturning}:    1,
		{day(2024, 3, 3), models.ClassificationDormant}:      1,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s %s = %d, want %d", k.period.Format("2006-01-02"), k.status, got[k], v)
		}
	}
}

// lifecycleOracle classifies activity in Go for cross-checking the SQL.
func lifecycleOracle(interval models.Interval, from, to time.Time, created map[string]time.Time, activity map[string][]time.Time) map[bucket]int64 {
	start, end := interval.QueryWindow(from, to)

	active := make(map[string]map[time.Time]bool)
	for person, stamps := range activity {
		for _, ts := range stamps {
			if ts.Before(start) || !ts.Before(end) {
				continue
			}
			if active[person] == nil {
				active[person] = make(map[time.Time]bool)
			}
			active[person][interval.Truncate(ts)] = true
		}
	}

	out := make(map[bucket]int64)
	for _, p := range interval.Periods(from, to) {
		prev := interval.Add(p, -1)
		for person, periods := range active {
			switch {
			case periods[p] && interval.Truncate(created[person]).Equal(p):
				out[bucket{p, models.ClassificationNew}]++
			case periods[p] && periods[prev]:
				out[bucket{p, models.ClassificationReturning}]++
			case periods[p]:
				out[bucket{p, models.ClassificationResurrecting}]++
			case periods[prev]:
				out[bucket{p, models.ClassificationDormant}]++
			}
		}
	}
	return out
}

func TestGetLifecycle_MatchesOracle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := day(2024, 1, 1)
	created := make(map[string]time.Time)
	activity := make(map[string][]time.Time)

	// Deterministic spread of 12 persons over ~90 days
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("person-%02d", i)
		created[id] = base.AddDate(0, 0, i*7-14)
		seedPerson(t, db, 1, id, created[id], nil)

		var events []models.Event
		for d := 0; d < 90; d++ {
			if (d*(i+3)+i)%(i+5) != 0 {
				continue
			}
			ts := base.AddDate(0, 0, d).Add(time.Duration(i) * time.Hour)
			activity[id] = append(activity[id], ts)
			events = append(events, models.Event{TeamID: 1, Event: "$pageview", DistinctID: id, Timestamp: ts})
		}
		checkNoError(t, db.InsertEvents(ctx, events))
	}

	tests := []struct {
		interval models.Interval
		from, to time.Time
	}{
		{models.IntervalDay, day(2024, 1, 10), day(2024, 1, 31)},
		{models.IntervalWeek, day(2024, 1, 3), day(2024, 3, 20)},
		{models.IntervalMonth, day(2024, 1, 15), day(2024, 3, 2)},
	}

	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			filter := pageviewFilter(tt.interval, tt.from, tt.to)
			result, err := db.GetLifecycle(ctx, 1, filter)
			checkNoError(t, err)

			want := lifecycleOracle(tt.interval, tt.from, tt.to, created, activity)
			got := rowCounts(result)
			if len(got) != len(want) {
				t.Errorf("got %d buckets, want %d", len(got), len(want))
			}
			for k, v := range want {
				if got[k] != v {
					t.Errorf("%s %s = %d, want %d", k.period.Format("2006-01-02"), k.status, got[k], v)
				}
			}

			// Rows are ordered by period then priority
			for i := 1; i < len(result.Rows); i++ {
				a, b := result.Rows[i-1], result.Rows[i]
				if a.Period.After(b.Period) || (a.Period.Equal(b.Period) && a.Classification.Priority() >= b.Classification.Priority()) {
					t.Fatalf("rows out of order at %d: %+v then %+v", i, a, b)
				}
			}

			// Pages across every bucket add up to its count
			for k, v := range want {
				var total int64
				offset := 0
				for {
					page, err := db.GetLifecyclePeople(ctx, 1, filter, k.period, k.status, offset, 2)
					checkNoError(t, err)
					total += int64(len(page.People))
					if page.NextOffset == nil {
						break
					}
					offset = *page.NextOffset
				}
				if total != v {
					t.Errorf("%s %s: paged %d people, count %d", k.period.Format("2006-01-02"), k.status, total, v)
				}
			}
		})
	}
}

func TestGetLifecyclePeople(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		seedPerson(t, db, 1, id, day(2024, 1, 2), map[string]interface{}{"plan": "pro"}, id, id+"-alias")
		seedEvent(t, db, 1, "$pageview", id, day(2024, 1, 2).Add(time.Hour), nil)
	}
	filter := pageviewFilter(models.IntervalDay, day(2024, 1, 2), day(2024, 1, 3))

	page, err := db.GetLifecyclePeople(ctx, 1, filter, day(2024, 1, 2).Add(5*time.Hour), models.ClassificationNew, 0, 0)
	checkNoError(t, err)

	if page.Limit != DefaultLifecyclePageSize {
		t.Errorf("limit = %d, want default %d", page.Limit, DefaultLifecyclePageSize)
	}
	if page.NextOffset != nil {
		t.Errorf("short page should not set NextOffset")
	}
	if len(page.People) != 3 || page.People[0].ID != "a" || page.People[2].ID != "c" {
		t.Fatalf("people not ordered by id: %+v", page.People)
	}
	if got := page.People[0].DistinctIDs; len(got) != 2 || got[0] != "a" || got[1] != "a-alias" {
		t.Errorf("distinct ids = %v", got)
	}
	if page.People[0].Properties["plan"] != "pro" {
		t.Errorf("properties not decoded: %v", page.People[0].Properties)
	}

	first, err := db.GetLifecyclePeople(ctx, 1, filter, day(2024, 1, 2), models.ClassificationNew, 0, 2)
	checkNoError(t, err)
	if first.NextOffset == nil || *first.NextOffset != 2 {
		t.Fatalf("full page should point at offset 2, got %v", first.NextOffset)
	}
	second, err := db.GetLifecyclePeople(ctx, 1, filter, day(2024, 1, 2), models.ClassificationNew, 2, 2)
	checkNoError(t, err)
	if len(second.People) != 1 || second.People[0].ID != "c" {
		t.Errorf("second page = %+v", second.People)
	}

	dormant, err := db.GetLifecyclePeople(ctx, 1, filter, day(2024, 1, 3), models.ClassificationDormant, 0, 10)
	checkNoError(t, err)
	if len(dormant.People) != 3 {
		t.Errorf("expected 3 dormant people on Jan 3, got %d", len(dormant.People))
	}
}

func TestGetLifecycle_PropertyAndActionFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	resolver := newFakeResolver()
	resolver.actions[10] = &models.Action{ID: 10, TeamID: 1, Name: "Signed up", Steps: []models.ActionStep{
		{Event: "$pageview", URL: "/signup", URLMatching: models.URLMatchContains},
		{Event: "signed_up"},
	}}
	db.SetResolver(resolver)

	seedPerson(t, db, 1, "free", day(2024, 1, 1), map[string]interface{}{"plan": "free"})
	seedPerson(t, db, 1, "pro", day(2024, 1, 1), map[string]interface{}{"plan": "pro", "seats": 12})
	seedEvent(t, db, 1, "$pageview", "free", day(2024, 1, 1), map[string]interface{}{"$current_url": "https://x.io/signup?a=1"})
	seedEvent(t, db, 1, "$pageview", "pro", day(2024, 1, 1), map[string]interface{}{"$current_url": "https://x.io/pricing"})
	seedEvent(t, db, 1, "signed_up", "pro", day(2024, 1, 1), nil)

	filter := models.Filter{
		Entities: []models.Entity{{Type: models.EntityTypeActions, ID: "10", Name: "Signed up"}},
		DateFrom: day(2024, 1, 1),
		DateTo:   day(2024, 1, 1),
		Interval: models.IntervalDay,
	}

	result, err := db.GetLifecycle(ctx, 1, filter)
	checkNoError(t, err)
	if n := result.Count(day(2024, 1, 1), models.ClassificationNew); n != 2 {
		t.Errorf("action entity: new = %d, want 2", n)
	}
	if result.Rows[0].Label != "Signed up - new" {
		t.Errorf("label = %q", result.Rows[0].Label)
	}

	filter.Properties = models.AndGroup(models.Property{
		Key: "seats", Value: 10, Operator: models.OperatorGT, Type: models.PropertyTypePerson,
	})
	result, err = db.GetLifecycle(ctx, 1, filter)
	checkNoError(t, err)
	if n := result.Count(day(2024, 1, 1), models.ClassificationNew); n != 1 {
		t.Errorf("person property filter: new = %d, want 1", n)
	}

	filter.Properties = models.PropertyGroup{Type: models.PropertyGroupOr, Properties: []models.Property{
		{Key: "plan", Value: []interface{}{"free"}, Type: models.PropertyTypePerson},
		{Key: "$current_url", Value: "PRICING", Operator: models.OperatorIContains},
	}}
	result, err = db.GetLifecycle(ctx, 1, filter)
	checkNoError(t, err)
	if n := result.Count(day(2024, 1, 1), models.ClassificationNew); n != 2 {
		t.Errorf("OR group: new = %d, want 2", n)
	}
}

func TestGetLifecycle_QueryConstructionErrors(t *testing.T) {
	db := setupTestDB(t)
	db.SetResolver(newFakeResolver())
	ctx := context.Background()

	base := pageviewFilter(models.IntervalWeek, day(2024, 1, 1), day(2024, 2, 1))

	tests := []struct {
		name   string
		mutate func(f *models.Filter)
	}{
		{"unknown action", func(f *models.Filter) {
			f.Entities = []models.Entity{{Type: models.EntityTypeActions, ID: "404"}}
		}},
		{"non-numeric action id", func(f *models.Filter) {
			f.Entities = []models.Entity{{Type: models.EntityTypeActions, ID: "abc"}}
		}},
		{"unsupported operator", func(f *models.Filter) {
			f.Properties = models.AndGroup(models.Property{Key: "plan", Value: "x", Operator: "starts_with"})
		}},
		{"invalid regex", func(f *models.Filter) {
			f.Properties = models.AndGroup(models.Property{Key: "plan", Value: "(", Operator: models.OperatorRegex})
		}},
		{"non-numeric comparison", func(f *models.Filter) {
			f.Properties = models.AndGroup(models.Property{Key: "seats", Value: "many", Operator: models.OperatorGT})
		}},
		{"unknown cohort", func(f *models.Filter) {
			f.Properties = models.AndGroup(models.Property{Key: "77", Type: models.PropertyTypeCohort})
		}},
		{"bad interval", func(f *models.Filter) { f.Interval = "hour" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mutate(&f)
			_, err := db.GetLifecycle(ctx, 1, f)
			if !models.IsQueryConstructionError(err) {
				t.Fatalf("expected QueryConstructionError, got %v", err)
			}
		})
	}

	_, err := db.GetLifecyclePeople(ctx, 1, base, day(2024, 1, 1), "churned", 0, 10)
	if !models.IsQueryConstructionError(err) {
		t.Errorf("unknown classification: expected QueryConstructionError, got %v", err)
	}
}
