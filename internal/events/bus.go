package events

import (
	"sync"
	"time"
)

// Bus distributes loop lifecycle events to subscribers.
//
// Publish never blocks: each subscriber receives events through its own
// buffered channel, and events are dropped for a subscriber whose buffer
// is full rather than stalling the publisher. A slow consumer therefore
// never slows the orchestration loop.
type Bus interface {
	// Publish sends an event to all subscribers. No-op after Close.
	Publish(event Event)

	// Subscribe returns a channel receiving published events and a
	// cleanup function that must be called to release the subscription.
	// bufferSize <= 0 uses the default buffer.
	Subscribe(bufferSize int) (<-chan Event, func())

	// Close shuts down the bus and closes all subscriber channels.
	Close()
}

const defaultBufferSize = 64

// DefaultBus implements Bus with per-subscriber buffered channels and
// non-blocking sends.
type DefaultBus struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
	closed      bool
}

// NewBus creates an empty DefaultBus.
func NewBus() *DefaultBus {
	return &DefaultBus{
		subscribers: make(map[int]chan Event),
	}
}

// Publish sends the event to every subscriber without blocking. The
// timestamp is stamped here if the caller left it zero.
func (b *DefaultBus) Publish(event Event) {
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
		default:
			// Buffer full, drop for this subscriber.
		}
	}
}

// Subscribe registers a new subscriber channel.
func (b *DefaultBus) Subscribe(bufferSize int) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Close shuts down the bus. Subsequent Publish calls are no-ops.
func (b *DefaultBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
