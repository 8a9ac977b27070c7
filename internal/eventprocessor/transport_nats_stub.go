// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

//go:build !nats

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/cohortlens/internal/config"
)

func newNATSTransport(*config.NATSConfig, watermill.LoggerAdapter) (*Transport, error) {
	return nil, fmt.Errorf("NATS transport requires building with -tags nats")
}
