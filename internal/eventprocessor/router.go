// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package eventprocessor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/cohortlens/internal/config"
)

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// Throttle configuration (messages per second, 0 = disabled)
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that still fail after all retries
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     "cohort.poison",
	}
}

// RouterConfigFromNATS maps the router settings of the NATS section.
func RouterConfigFromNATS(cfg *config.NATSConfig) RouterConfig {
	rc := DefaultRouterConfig()
	rc.CloseTimeout = cfg.RouterCloseTimeout
	rc.RetryMaxRetries = cfg.RouterRetryCount
	rc.RetryInitialInterval = cfg.RouterRetryInitialInterval
	rc.RetryMaxInterval = cfg.RouterRetryMaxInterval
	rc.ThrottlePerSecond = cfg.RouterThrottlePerSecond
	rc.PoisonQueueTopic = cfg.RouterPoisonQueueTopic
	return rc
}

// Router wraps the Watermill Router with the trigger middleware stack:
// poison queue, retry with backoff, optional throttle and panic recovery.
type Router struct {
	router  *message.Router
	config  RouterConfig
	logger  watermill.LoggerAdapter
	running atomic.Bool
}

// NewRouter creates a Router. poisonPublisher may be nil to disable the
// poison queue.
func NewRouter(cfg RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Middleware order is outer to inner: the poison queue only sees errors
	// that survived every retry, and retries see recovered panics.
	if poisonPublisher != nil && cfg.PoisonQueueTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	if cfg.ThrottlePerSecond > 0 {
		throttle := middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second)
		wmRouter.AddMiddleware(throttle.Middleware)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	return &Router{router: wmRouter, config: cfg, logger: logger}, nil
}

// Register subscribes the trigger handlers.
func (r *Router) Register(h *Handlers, subscriber message.Subscriber) {
	r.router.AddConsumerHandler("cohort_recalculate", TopicRecalculate, subscriber, h.Recalculate)
	r.router.AddConsumerHandler("cohort_ingest", TopicIngest, subscriber, h.Ingest)
}

// Run starts the router and blocks until ctx is cancelled or Close is
// called.
func (r *Router) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)
	return r.router.Run(ctx)
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close gracefully stops the router.
// Waits for in-flight messages to complete up to CloseTimeout.
func (r *Router) Close() error {
	return r.router.Close()
}

// IsRunning returns whether the router is currently processing messages.
func (r *Router) IsRunning() bool {
	return r.running.Load()
}
