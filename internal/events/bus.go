package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Event describes one cart state change.
type Event struct {
	Topic      string
	Key        string
	OccurredAt time.Time
}

// Handler reacts to emitted events (panel re-render, metrics, etc.).
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers synchronously, in subscription order.
type Bus struct {
	Now func() time.Time

	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// Subscribe registers h and returns a function that removes it again.
func (b *Bus) Subscribe(h Handler) func() {
	if b == nil || h == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.subs {
				if sub.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Len reports the number of active subscribers.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Emit dispatches the event to every subscriber. Handler failures are joined and
// returned; they never stop delivery to the remaining subscribers.
func (b *Bus) Emit(ctx context.Context, topic, key string) (Event, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	ev := Event{Topic: topic, Key: key, OccurredAt: b.now()}
	if b == nil {
		return ev, nil
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	var joined error
	for _, sub := range subs {
		if err := sub.handler(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: %s subscriber: %w", topic, err))
		}
	}
	return ev, joined
}

func (b *Bus) now() time.Time {
	if b != nil && b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
