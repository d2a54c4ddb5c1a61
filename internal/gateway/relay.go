package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/eventbus"
)

// Relay forwards bus events into hub rooms.
type Relay struct {
	bus    eventbus.Bus
	hub    *Hub
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(bus eventbus.Bus, hub *Hub, logger *slog.Logger) *Relay {
	return &Relay{bus: bus, hub: hub, logger: logger}
}

// Start subscribes every subject and relays in the background until Stop.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	streams, err := r.subscribe(runCtx)
	if err != nil {
		cancel()
		return err
	}
	r.cancel = cancel
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		if err := r.pump(runCtx, streams); err != nil {
			r.logger.Error("event relay stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop cancels subscriptions and waits for the relay loops.
func (r *Relay) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Relay) subscribe(ctx context.Context) (map[string]<-chan eventbus.Message, error) {
	streams := make(map[string]<-chan eventbus.Message, len(eventbus.Subjects))
	for _, subject := range eventbus.Subjects {
		ch, err := r.bus.Subscribe(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		streams[subject] = ch
	}
	return streams, nil
}

// pump drains each subject on its own goroutine so per-subject order is kept.
func (r *Relay) pump(ctx context.Context, streams map[string]<-chan eventbus.Message) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, ch := range streams {
		ch := ch
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-ch:
					if !ok {
						return nil
					}
					r.Route(msg)
				}
			}
		})
	}
	return g.Wait()
}

// Route emits one bus message into the room its event kind maps to and
// returns the number of clients reached.
func (r *Relay) Route(msg eventbus.Message) int {
	env, err := eventbus.DecodeEnvelope(msg.Data)
	if err != nil {
		r.logger.Warn("skip malformed event", slog.String("subject", msg.Subject), slog.String("error", err.Error()))
		return 0
	}

	var (
		room  string
		frame Frame
	)
	switch env.Kind {
	case eventbus.KindOrderOutcome:
		var outcome model.OrderOutcome
		if err = json.Unmarshal(env.Payload, &outcome); err == nil {
			room, frame = UserRoom(outcome.UserID), orderOutcomeFrame(outcome)
		}
	case eventbus.KindInventoryChanged:
		var change model.InventoryChanged
		if err = json.Unmarshal(env.Payload, &change); err == nil {
			room, frame = InventoryRoom(change.ProductID), inventoryFrame(change)
		}
	case eventbus.KindReviewsChanged:
		var change model.ReviewsChanged
		if err = json.Unmarshal(env.Payload, &change); err == nil {
			room, frame = ReviewsRoom(change.ProductID), reviewFrame(change)
		}
	default:
		r.logger.Warn("skip unknown event kind", slog.String("kind", env.Kind), slog.String("id", env.ID))
		return 0
	}
	if err != nil {
		r.logger.Warn("skip undecodable event", slog.String("kind", env.Kind), slog.String("id", env.ID), slog.String("error", err.Error()))
		return 0
	}
	return r.hub.Emit(room, frame)
}
