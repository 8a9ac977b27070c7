// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cohortlens/internal/models"
	"github.com/tomtom215/cohortlens/internal/validation"
)

// Trigger topics.
const (
	TopicRecalculate = "cohort.recalculate"
	TopicIngest      = "cohort.ingest"
)

// Message metadata keys.
const (
	MetadataCohortID = "cohort_id"
	MetadataTeamID   = "team_id"
	MetadataCommand  = "command"
)

// RecalculateCommand asks for one recalculation of a dynamic cohort.
type RecalculateCommand struct {
	CommandID   string    `json:"command_id" validate:"required"`
	TeamID      int64     `json:"team_id" validate:"gt=0"`
	CohortID    int64     `json:"cohort_id" validate:"gt=0"`
	RequestedAt time.Time `json:"requested_at"`
}

// IngestCommand asks for a static list to be added to a cohort.
type IngestCommand struct {
	CommandID   string                `json:"command_id" validate:"required"`
	TeamID      int64                 `json:"team_id" validate:"gt=0"`
	CohortID    int64                 `json:"cohort_id" validate:"gt=0"`
	Identifiers []string              `json:"identifiers" validate:"required,min=1"`
	Kind        models.IdentifierKind `json:"kind" validate:"identifier_kind"`
	RequestedAt time.Time             `json:"requested_at"`
}

// NewRecalculateCommand fills in the command id and request time.
func NewRecalculateCommand(teamID, cohortID int64) RecalculateCommand {
	return RecalculateCommand{
		CommandID:   uuid.NewString(),
		TeamID:      teamID,
		CohortID:    cohortID,
		RequestedAt: time.Now().UTC(),
	}
}

// NewIngestCommand fills in the command id and request time.
func NewIngestCommand(teamID, cohortID int64, identifiers []string, kind models.IdentifierKind) IngestCommand {
	return IngestCommand{
		CommandID:   uuid.NewString(),
		TeamID:      teamID,
		CohortID:    cohortID,
		Identifiers: identifiers,
		Kind:        kind,
		RequestedAt: time.Now().UTC(),
	}
}

// encodeCommand validates cmd and wraps it in a message whose UUID is the
// command id.
func encodeCommand(name, commandID string, teamID, cohortID int64, cmd interface{}) (*message.Message, error) {
	if verr := validation.ValidateStruct(cmd); verr != nil {
		return nil, verr.ToQueryConstructionError()
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal %s command: %w", name, err)
	}
	msg := message.NewMessage(commandID, payload)
	msg.Metadata.Set(MetadataCommand, name)
	msg.Metadata.Set(MetadataTeamID, fmt.Sprint(teamID))
	msg.Metadata.Set(MetadataCohortID, fmt.Sprint(cohortID))
	return msg, nil
}

// decodeCommand unmarshals and validates a command. Malformed payloads are
// reported as QueryConstructionError so handlers drop them instead of
// retrying.
func decodeCommand(msg *message.Message, cmd interface{}) error {
	if err := json.Unmarshal(msg.Payload, cmd); err != nil {
		return &models.QueryConstructionError{Reason: "decode message " + msg.UUID, Err: err}
	}
	if verr := validation.ValidateStruct(cmd); verr != nil {
		return verr.ToQueryConstructionError()
	}
	return nil
}

// EncodeRecalculate builds the message for cmd.
func EncodeRecalculate(cmd RecalculateCommand) (*message.Message, error) {
	return encodeCommand("recalculate", cmd.CommandID, cmd.TeamID, cmd.CohortID, cmd)
}

// EncodeIngest builds the message for cmd.
func EncodeIngest(cmd IngestCommand) (*message.Message, error) {
	return encodeCommand("ingest", cmd.CommandID, cmd.TeamID, cmd.CohortID, cmd)
}

// correlationID returns the watermill correlation id of msg, or its UUID.
func correlationID(msg *message.Message) string {
	if id := middleware.MessageCorrelationID(msg); id != "" {
		return id
	}
	return msg.UUID
}
