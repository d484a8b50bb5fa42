// Package eventbus implements a process-local, non-blocking broadcast
// primitive: subscribe, unsubscribe, and publish to N live subscribers
// without ever letting a slow subscriber stall the publisher.
package eventbus

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferCapacity bounds each subscriber's pending-event buffer.
const subscriberBufferCapacity = 1000

// Bus is a generic, thread-safe broadcast bus. T is typically
// detection.Persisted; tests use simpler payloads.
type Bus[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]*Handle[T]
}

// New constructs an empty Bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subscribers: make(map[string]*Handle[T])}
}

// Handle is a live subscription. Next blocks until an event arrives or the
// handle is closed via Bus.Unsubscribe.
type Handle[T any] struct {
	id     string
	buffer chan T
	once   sync.Once
}

// ID returns the subscriber's unique identifier.
func (h *Handle[T]) ID() string { return h.id }

// Next blocks for the next published event. ok is false once the handle has
// been closed and no buffered events remain.
func (h *Handle[T]) Next() (event T, ok bool) {
	event, ok = <-h.buffer
	return event, ok
}

// close closes the handle's buffer exactly once. It does not remove the
// handle from the bus; Bus.Unsubscribe does that before calling it.
func (h *Handle[T]) close() {
	h.once.Do(func() { close(h.buffer) })
}

// Subscribe allocates a bounded buffer and registers it with the bus.
func (b *Bus[T]) Subscribe() *Handle[T] {
	h := &Handle[T]{
		id:     uuid.NewString(),
		buffer: make(chan T, subscriberBufferCapacity),
	}

	b.mu.Lock()
	b.subscribers[h.id] = h
	b.mu.Unlock()

	return h
}

// Unsubscribe removes the handle from the active set. Further publishes to
// it are no-ops; the consumer observes end-of-stream on its next Next call.
func (b *Bus[T]) Unsubscribe(h *Handle[T]) {
	b.mu.Lock()
	delete(b.subscribers, h.id)
	b.mu.Unlock()
	h.close()
}

// Publish attempts a non-blocking enqueue to every active subscriber. A
// full subscriber buffer drops the event for that subscriber only; Publish
// itself never blocks or returns an error. The read lock is held across the
// sends so that Unsubscribe cannot close a buffer while it is being sent to.
func (b *Bus[T]) Publish(event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, h := range b.subscribers {
		select {
		case h.buffer <- event:
		default:
			// Subscriber buffer full: drop for this subscriber only.
		}
	}
}

// SubscriberCount returns the number of currently active subscribers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
