// Package eventbus carries checkout outcomes and catalog changes from the
// worker processes to the realtime gateways.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Subjects published by this service. Ordering is kept per subject only.
const (
	SubjectOrderOutcome     = "orders.outcome"
	SubjectInventoryChanged = "inventory.changed"
	SubjectReviewsChanged   = "reviews.changed"
)

// Subjects lists every subject the gateway relays.
var Subjects = []string{SubjectOrderOutcome, SubjectInventoryChanged, SubjectReviewsChanged}

// Event kinds carried in the envelope.
const (
	KindOrderOutcome     = "OrderOutcome"
	KindInventoryChanged = "InventoryChanged"
	KindReviewsChanged   = "ReviewsChanged"
)

var ErrClosed = errors.New("event bus closed")

// Message is a raw payload received from a subject.
type Message struct {
	Subject string
	Data    []byte
}

// Bus is a fire-and-forget pub/sub channel.
type Bus interface {
	// Publish returns once the bus accepted the payload; delivery is not awaited.
	Publish(ctx context.Context, subject string, payload []byte) error
	// Subscribe streams messages of subject until ctx is done or the bus is closed.
	Subscribe(ctx context.Context, subject string) (<-chan Message, error)
	Close() error
}

// Envelope wraps every event on the wire.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// DecodeEnvelope parses a bus message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing kind")
	}
	return env, nil
}
