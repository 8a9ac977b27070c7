// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package eventprocessor

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/cohortlens/internal/cohort"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/metrics"
	"github.com/tomtom215/cohortlens/internal/models"
)

// Trigger outcomes for the trigger message metric.
const (
	OutcomeProcessed = "processed"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

// Engine is the part of cohort.Engine the handlers drive.
type Engine interface {
	Recalculate(ctx context.Context, cohortID int64) (cohort.Result, error)
	IngestStaticList(ctx context.Context, cohortID int64, identifiers []string, kind models.IdentifierKind) (cohort.IngestResult, error)
}

// Handlers turns trigger messages into engine calls, one call per message.
type Handlers struct {
	engine Engine
}

// NewHandlers creates Handlers for engine.
func NewHandlers(engine Engine) *Handlers {
	return &Handlers{engine: engine}
}

// messageContext carries correlation and message ids from msg into the
// handler's context.
func messageContext(msg *message.Message) context.Context {
	ctx := msg.Context()
	ctx = logging.ContextWithCorrelationID(ctx, correlationID(msg))
	return logging.ContextWithMessageID(ctx, msg.UUID)
}

// settle maps a handler error to the router's ack policy. Query
// construction errors are permanent and acked; anything else is returned
// so the router retries and eventually poisons the message.
func settle(ctx context.Context, topic string, err error) error {
	switch {
	case err == nil:
		metrics.RecordTriggerMessage(topic, OutcomeProcessed)
		return nil
	case models.IsQueryConstructionError(err):
		metrics.RecordTriggerMessage(topic, OutcomeDropped)
		logging.CtxErr(ctx, err).Str("topic", topic).Msg("Dropping trigger that cannot be processed")
		return nil
	default:
		metrics.RecordTriggerMessage(topic, OutcomeFailed)
		return err
	}
}

// Recalculate handles TopicRecalculate.
func (h *Handlers) Recalculate(msg *message.Message) error {
	ctx := messageContext(msg)

	var cmd RecalculateCommand
	if err := decodeCommand(msg, &cmd); err != nil {
		return settle(ctx, TopicRecalculate, err)
	}
	ctx = logging.ContextWithCohort(ctx, cmd.TeamID, cmd.CohortID)

	_, err := h.engine.Recalculate(ctx, cmd.CohortID)
	return settle(ctx, TopicRecalculate, err)
}

// Ingest handles TopicIngest. Ingestion records its own failures on the
// cohort, so only debug-mode and input errors reach the router.
func (h *Handlers) Ingest(msg *message.Message) error {
	ctx := messageContext(msg)

	var cmd IngestCommand
	if err := decodeCommand(msg, &cmd); err != nil {
		return settle(ctx, TopicIngest, err)
	}
	ctx = logging.ContextWithCohort(ctx, cmd.TeamID, cmd.CohortID)

	res, err := h.engine.IngestStaticList(ctx, cmd.CohortID, cmd.Identifiers, cmd.Kind)
	if err == nil && res.Failed {
		logging.Ctx(ctx).Warn().
			Int64("cohort_id", cmd.CohortID).
			Int("inserted", res.Inserted).
			Msg("Static ingestion failed and was recorded on the cohort")
	}
	return settle(ctx, TopicIngest, err)
}
