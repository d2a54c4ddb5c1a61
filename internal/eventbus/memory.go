package eventbus

import (
	"context"
	"sync"
)

const memorySubscriberBuffer = 256

type memorySubscriber struct {
	ch   chan Message
	done <-chan struct{}
}

// MemoryBus delivers in process. Only usable when worker and gateway share a process.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscriber]struct{}
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[string]map[*memorySubscriber]struct{}{}}
}

// Publish hands the payload to every current subscriber in publish order.
// A subscriber whose buffer is full blocks the publisher until ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, subject string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	msg := Message{Subject: subject, Data: append([]byte(nil), payload...)}
	for sub := range b.subs[subject] {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, subject string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	sub := &memorySubscriber{ch: make(chan Message, memorySubscriberBuffer), done: ctx.Done()}
	if b.subs[subject] == nil {
		b.subs[subject] = map[*memorySubscriber]struct{}{}
	}
	b.subs[subject][sub] = struct{}{}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[subject][sub]; ok {
			delete(b.subs[subject], sub)
			close(sub.ch)
		}
	}()
	return sub.ch, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for subject, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.subs, subject)
	}
	return nil
}
