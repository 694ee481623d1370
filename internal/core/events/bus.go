// Package events delivers entity lifecycle notifications to interested
// systems. Delivery is synchronous and happens on the world goroutine, so
// handlers must not block.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type is the closed set of lifecycle notifications.
type Type string

const (
	EntitySpawned    Type = "entity_spawned"
	EntityDestroyed  Type = "entity_destroyed"
	ComponentAdded   Type = "component_added"
	ComponentRemoved Type = "component_removed"
)

// Event describes one lifecycle change. Component is empty for
// entity-level events.
type Event struct {
	Type      Type
	EntityID  string
	Component string
	Timestamp time.Time
}

// Handler consumes one event.
type Handler func(Event)

// Subscription identifies a registered handler so it can be cancelled.
type Subscription struct {
	id        string
	eventType Type
	bus       *Bus
}

// ID returns the subscription id.
func (s *Subscription) ID() string { return s.id }

// Cancel removes the handler. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if handlers, ok := s.bus.handlers[s.eventType]; ok {
		delete(handlers, s.id)
	}
}

// Bus is a thread-safe publish/subscribe hub for lifecycle events.
type Bus struct {
	mu sync.RWMutex
	// handlers: event type -> subscription id -> handler
	handlers map[Type]map[string]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Type]map[string]Handler)}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:        uuid.New().String(),
		eventType: eventType,
		bus:       b,
	}
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][sub.id] = handler
	return sub
}

// Publish delivers the event to every handler registered for its type.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type]))
	for _, h := range b.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
