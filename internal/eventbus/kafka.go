package eventbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig tunes the Kafka driver.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	// GroupID must be unique per gateway instance so every gateway sees every event.
	GroupID string
}

// KafkaBus maps each subject to a topic. Messages are keyed by subject so one
// partition carries a subject and its order is kept.
type KafkaBus struct {
	cfg       KafkaConfig
	writer    kafkaWriter
	newReader func(topic string) kafkaReader
	logger    *slog.Logger

	mu      sync.Mutex
	readers map[kafkaReader]struct{}
	closed  bool
}

func NewKafkaBus(cfg KafkaConfig, logger *slog.Logger) *KafkaBus {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	bus := &KafkaBus{cfg: cfg, writer: writer, logger: logger, readers: map[kafkaReader]struct{}{}}
	bus.newReader = func(topic string) kafkaReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			Topic:       topic,
			StartOffset: kafka.LastOffset,
			MinBytes:    1,
			MaxBytes:    1 << 20,
			MaxWait:     250 * time.Millisecond,
		})
	}
	return bus
}

func (b *KafkaBus) topic(subject string) string {
	if b.cfg.TopicPrefix == "" {
		return subject
	}
	return b.cfg.TopicPrefix + "." + subject
}

func (b *KafkaBus) Publish(ctx context.Context, subject string, payload []byte) error {
	msg := kafka.Message{Topic: b.topic(subject), Key: []byte(subject), Value: payload}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", subject, err)
	}
	return nil
}

func (b *KafkaBus) Subscribe(ctx context.Context, subject string) (<-chan Message, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	reader := b.newReader(b.topic(subject))
	b.readers[reader] = struct{}{}
	b.mu.Unlock()

	out := make(chan Message)
	go func() {
		defer close(out)
		defer b.release(reader)

		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, io.EOF) {
					b.logger.Error("kafka read failed", slog.String("subject", subject), slog.String("error", err.Error()))
				}
				return
			}
			select {
			case out <- Message{Subject: subject, Data: msg.Value}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *KafkaBus) release(reader kafkaReader) {
	b.mu.Lock()
	_, ok := b.readers[reader]
	delete(b.readers, reader)
	b.mu.Unlock()
	if ok {
		_ = reader.Close()
	}
}

func (b *KafkaBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	readers := b.readers
	b.readers = map[kafkaReader]struct{}{}
	b.mu.Unlock()

	var errs []error
	for r := range readers {
		errs = append(errs, r.Close())
	}
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}
