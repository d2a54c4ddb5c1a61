package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeKafkaWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeKafkaWriter) Close() error {
	w.closed = true
	return nil
}

type fakeKafkaReader struct {
	topic  string
	msgs   chan kafka.Message
	closed chan struct{}
	once   sync.Once
}

func newFakeKafkaReader(topic string) *fakeKafkaReader {
	return &fakeKafkaReader{topic: topic, msgs: make(chan kafka.Message, 8), closed: make(chan struct{})}
}

func (r *fakeKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-r.closed:
		return kafka.Message{}, io.EOF
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeKafkaReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func newFakeKafkaBus() (*KafkaBus, *fakeKafkaWriter, chan *fakeKafkaReader) {
	writer := &fakeKafkaWriter{}
	readers := make(chan *fakeKafkaReader, 4)
	bus := NewKafkaBus(KafkaConfig{Brokers: []string{"k:9092"}, TopicPrefix: "shop", GroupID: "g"}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	bus.writer = writer
	bus.newReader = func(topic string) kafkaReader {
		r := newFakeKafkaReader(topic)
		readers <- r
		return r
	}
	return bus, writer, readers
}

func TestKafkaBusPublishKeysBySubject(t *testing.T) {
	bus, writer, _ := newFakeKafkaBus()

	require.NoError(t, bus.Publish(context.Background(), SubjectInventoryChanged, []byte("payload")))
	require.Len(t, writer.msgs, 1)
	require.Equal(t, "shop.inventory.changed", writer.msgs[0].Topic)
	require.Equal(t, SubjectInventoryChanged, string(writer.msgs[0].Key))
	require.Equal(t, "payload", string(writer.msgs[0].Value))

	writer.err = errors.New("leader not available")
	require.Error(t, bus.Publish(context.Background(), SubjectInventoryChanged, nil))
}

func TestKafkaBusSubscribe(t *testing.T) {
	bus, _, readers := newFakeKafkaBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, SubjectOrderOutcome)
	require.NoError(t, err)
	reader := <-readers
	require.Equal(t, "shop.orders.outcome", reader.topic)

	reader.msgs <- kafka.Message{Value: []byte("one")}
	reader.msgs <- kafka.Message{Value: []byte("two")}
	require.Equal(t, "one", string(receive(t, ch).Data))
	require.Equal(t, "two", string(receive(t, ch).Data))

	cancel()
	for range ch {
	}
	select {
	case <-reader.closed:
	default:
		t.Fatal("reader was not closed")
	}
}

func TestKafkaBusClose(t *testing.T) {
	bus, writer, readers := newFakeKafkaBus()
	ch, err := bus.Subscribe(context.Background(), SubjectReviewsChanged)
	require.NoError(t, err)
	reader := <-readers

	require.NoError(t, bus.Close())
	require.True(t, writer.closed)
	for range ch {
	}
	<-reader.closed

	_, err = bus.Subscribe(context.Background(), SubjectReviewsChanged)
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, bus.Close())
}
