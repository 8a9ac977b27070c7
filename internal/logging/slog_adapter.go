// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

// SlogHandler implements slog.Handler on zerolog. sutureslog requires an
// *slog.Logger; this keeps supervisor events in the same stream.
type SlogHandler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	prefix string
}

// NewSlogHandler wraps the global logger.
func NewSlogHandler() *SlogHandler {
	return &SlogHandler{logger: Logger()}
}

// NewSlogHandlerWithLogger wraps logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSlogHandlerWithLogger(logger zerolog.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	zl := slogToZerologLevel(level)
	return zl >= h.logger.GetLevel() && zl >= zerolog.GlobalLevel()
}

// Handle writes record as a zerolog event.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface
func (h *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	event := h.logger.WithLevel(slogToZerologLevel(record.Level))
	for _, attr := range h.attrs {
		event = addAttr(event, attr, h.prefix)
	}
	record.Attrs(func(attr slog.Attr) bool {
		event = addAttr(event, attr, h.prefix)
		return true
	})
	event.Msg(record.Message)
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &SlogHandler{logger: h.logger, attrs: merged, prefix: h.prefix}
}

// WithGroup returns a handler that prefixes keys with name.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func addAttr(event *zerolog.Event, attr slog.Attr, prefix string) *zerolog.Event {
	key := prefix + attr.Key
	value := attr.Value.Resolve()

	switch value.Kind() {
	case slog.KindString:
		return event.Str(key, value.String())
	case slog.KindInt64:
		return event.Int64(key, value.Int64())
	case slog.KindUint64:
		return event.Uint64(key, value.Uint64())
	case slog.KindFloat64:
		return event.Float64(key, value.Float64())
	case slog.KindBool:
		return event.Bool(key, value.Bool())
	case slog.KindDuration:
		return event.Dur(key, value.Duration())
	case slog.KindTime:
		return event.Time(key, value.Time())
	case slog.KindGroup:
		for _, ga := range value.Group() {
			event = addAttr(event, ga, key+".")
		}
		return event
	default:
		return event.Interface(key, value.Any())
	}
}

func slogToZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// NewSlogLogger creates an slog.Logger backed by the global zerolog logger.
//
//	supervisorHook := (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook()
func NewSlogLogger() *slog.Logger {
	return slog.New(NewSlogHandler())
}

// NewSlogLoggerWithLevel creates an slog.Logger filtered at level.
func NewSlogLoggerWithLevel(level string) *slog.Logger {
	return slog.New(NewSlogHandlerWithLogger(Logger().Level(parseLevel(strings.TrimSpace(level)))))
}
