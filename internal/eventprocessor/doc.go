// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

/*
Package eventprocessor is the entry point for the external scheduler that
triggers cohort work.

Commands are published on two topics:

	cohort.recalculate   RecalculateCommand -> cohort.Engine.Recalculate
	cohort.ingest        IngestCommand      -> cohort.Engine.IngestStaticList

Each message produces exactly one engine call. The Watermill router wraps
handlers in, from outer to inner, a poison queue, exponential-backoff retry,
an optional throttle and panic recovery. Handlers ack messages whose failure
is a QueryConstructionError (malformed commands, unresolvable definitions)
and return every other error so it is retried and finally poisoned.

Transports:

  - In-process gochannel (default). Nothing survives a restart.
  - NATS JetStream, built with -tags nats, optionally against an embedded
    server. The stream covers cohort.> so the poison queue is persisted too.

Publisher implements cohort.Trigger so definition changes made through
cohort.Manager schedule recalculations.
*/
package eventprocessor
