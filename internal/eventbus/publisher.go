package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// Publisher encodes domain events into envelopes.
type Publisher struct {
	bus   Bus
	now   func() time.Time
	newID func() string
}

func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus, now: time.Now, newID: uuid.NewString}
}

func (p *Publisher) OrderOutcome(ctx context.Context, outcome model.OrderOutcome) error {
	return p.publish(ctx, SubjectOrderOutcome, KindOrderOutcome, outcome)
}

// InventoryChanged is called after a stock mutation committed.
func (p *Publisher) InventoryChanged(ctx context.Context, event model.InventoryChanged) error {
	return p.publish(ctx, SubjectInventoryChanged, KindInventoryChanged, event)
}

// ReviewsChanged is called after a rating mutation committed.
func (p *Publisher) ReviewsChanged(ctx context.Context, event model.ReviewsChanged) error {
	return p.publish(ctx, SubjectReviewsChanged, KindReviewsChanged, event)
}

func (p *Publisher) publish(ctx context.Context, subject, kind string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	data, err := json.Marshal(Envelope{ID: p.newID(), Kind: kind, OccurredAt: p.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.bus.Publish(ctx, subject, data)
}
