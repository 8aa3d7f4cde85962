package trader

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/types"
)

// EventBus fans typed lifecycle events out to subscribers (dashboard,
// notifier). Publishing never blocks: a subscriber that falls behind
// loses events rather than stalling the trading loop.
type EventBus struct {
	mu          sync.Mutex
	logger      *zap.Logger
	subscribers []chan *types.Event
	closed      bool
}

// NewEventBus creates an event bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{logger: logger}
}

// Subscribe registers a new subscriber with the given buffer size.
func (b *EventBus) Subscribe(buffer int) <-chan *types.Event {
	if buffer <= 0 {
		buffer = 64
	}

	ch := make(chan *types.Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)

	return ch
}

// Publish delivers an event to every subscriber without blocking.
func (b *EventBus) Publish(event *types.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
			EventsPublishedTotal.WithLabelValues(string(event.Kind), "delivered").Inc()
		default:
			EventsPublishedTotal.WithLabelValues(string(event.Kind), "dropped").Inc()
		}
	}
}

// Close closes all subscriber channels.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
