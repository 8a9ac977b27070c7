// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/models"
)

// Publisher sends trigger commands. It implements cohort.Trigger. The
// underlying publisher is owned and closed by the Transport.
type Publisher struct {
	publisher message.Publisher
}

// NewPublisher wraps a watermill publisher (NATS JetStream or gochannel).
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{publisher: pub}
}

// TriggerRecalculation publishes a RecalculateCommand.
func (p *Publisher) TriggerRecalculation(ctx context.Context, teamID, cohortID int64) error {
	msg, err := EncodeRecalculate(NewRecalculateCommand(teamID, cohortID))
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicRecalculate, msg)
}

// TriggerIngestion publishes an IngestCommand.
func (p *Publisher) TriggerIngestion(ctx context.Context, teamID, cohortID int64, identifiers []string, kind models.IdentifierKind) error {
	msg, err := EncodeIngest(NewIngestCommand(teamID, cohortID, identifiers, kind))
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicIngest, msg)
}

func (p *Publisher) publish(ctx context.Context, topic string, msg *message.Message) error {
	id := logging.CorrelationIDFromContext(ctx)
	if id == "" {
		id = logging.GenerateCorrelationID()
	}
	middleware.SetCorrelationID(id, msg)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	logging.Ctx(ctx).Debug().
		Str("topic", topic).
		Str("message_id", msg.UUID).
		Str("cohort_id", msg.Metadata.Get(MetadataCohortID)).
		Msg("Trigger published")
	return nil
}
