package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBus maps subjects to Redis Pub/Sub channels. Redis keeps publish order
// per channel; messages sent while no gateway listens are lost.
type RedisBus struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisBus(client *redis.Client, prefix string, logger *slog.Logger) *RedisBus {
	return &RedisBus{client: client, prefix: prefix, logger: logger}
}

func (b *RedisBus) channel(subject string) string {
	if b.prefix == "" {
		return subject
	}
	return b.prefix + "." + subject
}

func (b *RedisBus) Publish(ctx context.Context, subject string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel(subject), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe returns after Redis confirmed the subscription, so no message
// published afterwards is missed.
func (b *RedisBus) Subscribe(ctx context.Context, subject string) (<-chan Message, error) {
	pubsub := b.client.Subscribe(ctx, b.channel(subject))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", subject, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer pubsub.Close()

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- Message{Subject: subject, Data: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *RedisBus) Close() error {
	if err := b.client.Close(); err != nil {
		b.logger.Warn("close redis client", slog.String("error", err.Error()))
		return err
	}
	return nil
}
