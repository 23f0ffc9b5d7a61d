// Package events provides the in-process pub/sub bus used to broadcast
// migration control events (emergency rollback, phase changes) to
// out-of-tree listeners without coupling them to the flag store.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Well-known event names.
const (
	// EventEmergencyRollback is broadcast when an emergency rollback is
	// triggered. Delivery is fire-and-forget, at most once per trigger.
	EventEmergencyRollback = "emergency-rollback"

	// EventPhaseChanged is broadcast when the active migration phase changes.
	EventPhaseChanged = "phase-changed"
)

// Event is a broadcast notification. Timestamp marshals as RFC3339.
type Event struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine; a panicking handler is isolated and logged, and
// never prevents delivery to the remaining handlers.
type Handler func(Event)

// Bus is an explicit observer list. Zero subscribers is fine; publishing
// is then a no-op.
type Bus struct {
	logger zerolog.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[int]Handler),
	}
}

// Subscribe registers a handler and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every current subscriber. There is no
// acknowledgement protocol; callers must not assume synchronous
// propagation side effects in handlers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ev, h)
	}
}

func (b *Bus) deliver(ev Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", ev.Name).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	h(ev)
}
