// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cohortlens/internal/models"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// readIdentifiers reads one identifier per line, skipping blanks and
// surrounding whitespace. A CSV-style first column is accepted.
func readIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifiers: %w", err)
	}
	return ids, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

type lifecycleFlags struct {
	event    string
	action   string
	name     string
	from     string
	to       string
	interval string
}

// buildFilter turns command flags into a lifecycle filter, resolving
// relative bounds against now.
func buildFilter(f lifecycleFlags, now time.Time) (models.Filter, error) {
	var entity models.Entity
	switch {
	case f.event != "" && f.action != "":
		return models.Filter{}, fmt.Errorf("--event and --action are mutually exclusive")
	case f.event != "":
		entity = models.Entity{Type: models.EntityTypeEvents, ID: f.event}
	case f.action != "":
		if _, err := parseID(f.action); err != nil {
			return models.Filter{}, fmt.Errorf("--action: %w", err)
		}
		entity = models.Entity{Type: models.EntityTypeActions, ID: f.action}
	default:
		return models.Filter{}, fmt.Errorf("please provide --event or --action")
	}
	entity.Name = f.name

	interval, err := models.ParseInterval(f.interval)
	if err != nil {
		return models.Filter{}, err
	}
	from, err := models.ParseDateBound(f.from, now)
	if err != nil {
		return models.Filter{}, fmt.Errorf("--from: %w", err)
	}
	to, err := models.ParseDateBound(f.to, now)
	if err != nil {
		return models.Filter{}, fmt.Errorf("--to: %w", err)
	}

	return models.Filter{
		Entities: []models.Entity{entity},
		DateFrom: from,
		DateTo:   to,
		Interval: interval,
	}, nil
}
