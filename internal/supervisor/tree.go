// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SupervisorTree manages the hierarchical supervisor structure for Cohortlens.
//
// The tree is organized into three layers:
//   - storage: maintenance over the transactional store (stale calculation watchdog)
//   - messaging: the trigger router that runs recalculations and ingestions
//   - api: the metrics listener
//
// A router crash restarts only the messaging layer; metrics keep being served.
type SupervisorTree struct {
	root      *suture.Supervisor
	storage   *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	logger    *slog.Logger
	config    TreeConfig
}

// NewSupervisorTree creates a new supervisor tree with the given configuration.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	defaults := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = defaults.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Children inherit the EventHook when added to the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("cohortlens", rootSpec)
	storage := suture.New("storage-layer", childSpec)
	messaging := suture.New("messaging-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(storage)
	root.Add(messaging)
	root.Add(api)

	return &SupervisorTree{
		root:      root,
		storage:   storage,
		messaging: messaging,
		api:       api,
		logger:    logger,
		config:    config,
	}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddStorageService adds a service to the storage layer supervisor.
func (t *SupervisorTree) AddStorageService(svc suture.Service) suture.ServiceToken {
	return t.storage.Add(svc)
}

// AddMessagingService adds a service to the messaging layer supervisor.
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService adds a service to the API layer supervisor.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// RemoveMessagingService removes a service added with AddMessagingService.
func (t *SupervisorTree) RemoveMessagingService(token suture.ServiceToken) error {
	return t.messaging.Remove(token)
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the supervisor tree in a background goroutine.
// The returned channel receives the error (or nil) when the supervisor stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that did not stop within the
// shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
