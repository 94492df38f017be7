// Package relay carries operations and presence updates between the actors
// editing the same workspace.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emrgen/canvas/internal/model"
	"github.com/google/uuid"
)

type Kind string

const (
	KindOperation Kind = "operation"
	KindPresence  Kind = "presence"
)

// Envelope is the unit exchanged on the relay. Payload holds a
// conflict.Operation for operations and a Presence for presence updates.
type Envelope struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	ActorID     string          `json:"actorId"`
	ActorName   string          `json:"actorName"`
	WorkspaceID string          `json:"workspaceId"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Presence is an actor's cursor and selection. Leaving is set when the actor
// closes the workspace.
type Presence struct {
	Cursor    *model.Position `json:"cursor,omitempty"`
	Selection []string        `json:"selection,omitempty"`
	Leaving   bool            `json:"leaving,omitempty"`
}

// NewEnvelope wraps a payload. Envelope ids are time ordered.
func NewEnvelope(kind Kind, workspaceID, actorID, actorName string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:          id.String(),
		Kind:        kind,
		ActorID:     actorID,
		ActorName:   actorName,
		WorkspaceID: workspaceID,
		Payload:     data,
		Timestamp:   time.Now(),
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}

// Relay publishes envelopes and delivers them to every subscriber of the
// same workspace, the publisher included. The subscription channel is
// closed when its context is done.
type Relay interface {
	Publish(ctx context.Context, env *Envelope) error
	Subscribe(ctx context.Context, workspaceID string) (<-chan *Envelope, error)
	Close() error
}

// subscriptionBuffer is the channel capacity of every subscription.
const subscriptionBuffer = 64
