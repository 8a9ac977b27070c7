// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// RouterRunner is satisfied by *eventprocessor.Router.
type RouterRunner interface {
	Run(ctx context.Context) error
}

// RouterService runs the trigger router until the context is canceled.
type RouterService struct {
	router RouterRunner
	name   string
}

// NewRouterService wraps router.
func NewRouterService(router RouterRunner) *RouterService {
	return &RouterService{router: router, name: "trigger-router"}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("trigger router failed: %w", err)
	}
	// A closed watermill router cannot be run again.
	return suture.ErrDoNotRestart
}

func (s *RouterService) String() string {
	return s.name
}
