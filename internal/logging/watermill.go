// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillAdapter implements watermill.LoggerAdapter on zerolog so router,
// retry and pub/sub logs share the application's format and level.
type WatermillAdapter struct {
	logger zerolog.Logger
}

// NewWatermillAdapter returns an adapter over the global logger.
func NewWatermillAdapter() *WatermillAdapter {
	return &WatermillAdapter{logger: WithComponent("watermill")}
}

// NewWatermillAdapterWithLogger returns an adapter over logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWatermillAdapterWithLogger(logger zerolog.Logger) *WatermillAdapter {
	return &WatermillAdapter{logger: logger}
}

func withFields(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

// Error logs at error level.
func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	withFields(a.logger.Error().Err(err), fields).Msg(msg)
}

// Info logs at info level.
func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(a.logger.Info(), fields).Msg(msg)
}

// Debug logs at debug level.
func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(a.logger.Debug(), fields).Msg(msg)
}

// Trace logs at trace level.
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(a.logger.Trace(), fields).Msg(msg)
}

// With returns an adapter carrying fields on every entry.
func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := a.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &WatermillAdapter{logger: ctx.Logger()}
}

var _ watermill.LoggerAdapter = (*WatermillAdapter)(nil)
