// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_WritesThroughZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf)))

	slogger.Warn("service restarted",
		"service", "trigger-router",
		"restarts", 2,
		"backoff", time.Second,
	)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"service":"trigger-router"`, `"restarts":2`, "service restarted"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(zerolog.New(&buf)).
		WithAttrs([]slog.Attr{slog.String("supervisor", "root")}).
		WithGroup("event")
	slog.New(handler).Info("failure", slog.Group("svc", slog.String("name", "watchdog")))

	out := buf.String()
	if !strings.Contains(out, `"event.supervisor":"root"`) {
		t.Errorf("expected grouped attr, got: %s", out)
	}
	if !strings.Contains(out, `"event.svc.name":"watchdog"`) {
		t.Errorf("expected nested group attr, got: %s", out)
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	t.Parallel()

	handler := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled on a warn logger")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled on a warn logger")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
