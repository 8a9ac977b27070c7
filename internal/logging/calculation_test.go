// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCalculationLogger_Events(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewCalculationLoggerWithLogger(zerolog.New(&buf))
	ctx := ContextWithMessageID(context.Background(), "m-42")

	l.Started(ctx, 5, 3)
	l.Completed(ctx, 5, 3, 120, true, true, 2*time.Second)
	l.Failed(ctx, 5, 4, errors.New("store gone"), time.Second)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %s", len(lines), buf.String())
	}

	checks := []struct {
		line  string
		wants []string
	}{
		{lines[0], []string{`"event":"cohort_calculation_started"`, `"pending_version":3`, `"message_id":"m-42"`}},
		{lines[1], []string{`"event":"cohort_calculation_completed"`, `"count":120`, `"swapped":true`}},
		{lines[2], []string{`"event":"cohort_calculation_failed"`, `"error":"store gone"`, `"level":"error"`}},
	}
	for _, c := range checks {
		for _, want := range c.wants {
			if !strings.Contains(c.line, want) {
				t.Errorf("expected %s in %s", want, c.line)
			}
		}
	}
}
