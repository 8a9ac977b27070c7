// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package eventprocessor

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/cohortlens/internal/config"
)

// Transport is a publisher/subscriber pair plus whatever must be shut down
// with them.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	closers []func() error
}

// NewTransport returns a NATS JetStream transport when cfg.Enabled, and an
// in-process gochannel transport otherwise.
func NewTransport(cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if !cfg.Enabled {
		return NewInProcessTransport(logger), nil
	}
	return newNATSTransport(cfg, logger)
}

// NewInProcessTransport returns a gochannel transport. Messages are lost on
// restart.
func NewInProcessTransport(logger watermill.LoggerAdapter) *Transport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
	return &Transport{
		Publisher:  pubSub,
		Subscriber: pubSub,
		closers:    []func() error{pubSub.Close},
	}
}

// Close releases resources in reverse order of acquisition.
func (t *Transport) Close() error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}
