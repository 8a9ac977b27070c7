// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cohortlens/internal/activity"
	"github.com/tomtom215/cohortlens/internal/cohort"
	"github.com/tomtom215/cohortlens/internal/models"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`database:
  path: %q
  threads: 2
store:
  driver: sqlite
  dsn: %q
logging:
  level: error
`, filepath.Join(dir, "analytics.duckdb"), filepath.Join(dir, "store.sqlite"))
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("cohortctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestStaticCohortCommands(t *testing.T) {
	cfg := writeTestConfig(t)

	var created models.Cohort
	out := runCommand(t, "--config", cfg, "--team", "1", "cohort", "create", "--name", "Imported", "--static", "--user", "9")
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode created cohort: %v\n%s", err, out)
	}
	if created.ID == 0 || !created.IsStatic {
		t.Fatalf("unexpected cohort %+v", created)
	}
	id := strconv.FormatInt(created.ID, 10)

	var ingested cohort.IngestResult
	out = runCommand(t, "--config", cfg, "--team", "1", "cohort", "ingest", id, "unknown-1", "unknown-2")
	if err := json.Unmarshal([]byte(out), &ingested); err != nil {
		t.Fatalf("decode ingest result: %v\n%s", err, out)
	}
	if ingested.Received != 2 || ingested.Unresolved != 2 || ingested.Inserted != 0 {
		t.Errorf("unexpected ingest result %+v", ingested)
	}

	var entries []activity.Entry
	out = runCommand(t, "--config", cfg, "--team", "1", "activity", id)
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode activity: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Activity != "created" {
		t.Fatalf("expected one created entry, got %+v", entries)
	}
	if entries[0].UserID == nil || *entries[0].UserID != 9 {
		t.Errorf("activity should record the acting user, got %v", entries[0].UserID)
	}

	var cohorts []models.Cohort
	out = runCommand(t, "--config", cfg, "--team", "1", "cohort", "list")
	if err := json.Unmarshal([]byte(out), &cohorts); err != nil {
		t.Fatalf("decode cohorts: %v\n%s", err, out)
	}
	if len(cohorts) != 1 || cohorts[0].Name != "Imported" {
		t.Errorf("unexpected cohorts %+v", cohorts)
	}

	out = runCommand(t, "--config", cfg, "stale", "reset")
	if !strings.Contains(out, "Reset 0 stuck calculation(s)") {
		t.Errorf("unexpected stale reset output %q", out)
	}
}

func TestTriggerRequiresNATS(t *testing.T) {
	cfg := writeTestConfig(t)

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--config", cfg, "--team", "1", "trigger", "recalculate", "3"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "NATS_ENABLED") {
		t.Errorf("expected a NATS requirement error, got %v", err)
	}
}
