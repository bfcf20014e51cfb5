package core

import (
	"sync"
	"time"

	"github.com/xonecas/zoea-tower/internal/constants"
)

// Handler reacts to a named event. Handlers run synchronously inside Emit
// and may emit further events.
type Handler func(Event)

// AnyEvent registers a handler for every event name.
const AnyEvent = "*"

type handlerEntry struct {
	id uint64
	fn Handler
}

// EventBus dispatches named events to synchronous handlers and fans them out
// to buffered channel subscribers.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[string][]handlerEntry
	nextID      uint64
	subscribers []chan Event
	bufferSize  int
	now         func() time.Time
}

// NewEventBus creates a new event bus.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize < constants.MinEventBusBufferSize {
		bufferSize = constants.MinEventBusBufferSize
	}
	return &EventBus{
		handlers:   make(map[string][]handlerEntry),
		bufferSize: bufferSize,
		now:        time.Now,
	}
}

// On registers a handler for the named event and returns a function that removes it.
func (b *EventBus) On(name string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], handlerEntry{id: id, fn: fn})

	return func() { b.off(name, id) }
}

func (b *EventBus) off(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[name]
	for i, e := range entries {
		if e.id == id {
			// Copy so that a dispatch holding the old slice is unaffected.
			next := make([]handlerEntry, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			next = append(next, entries[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, name)
			} else {
				b.handlers[name] = next
			}
			return
		}
	}
}

// HandlerCount returns how many handlers are registered for the name.
func (b *EventBus) HandlerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// Emit builds an event with the current timestamp and publishes it.
func (b *EventBus) Emit(name string, data interface{}) {
	b.Publish(Event{Name: name, Data: data, Timestamp: b.now()})
}

// Publish delivers an event. Channel subscribers get it first (non-blocking,
// dropped when a buffer is full), then handlers run in registration order.
// The lock is not held while handlers run, so they may emit or (un)register.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Drop event if buffer is full (non-blocking)
		}
	}
	named := b.handlers[event.Name]
	wildcard := b.handlers[AnyEvent]
	b.mu.RUnlock()

	for _, e := range named {
		e.fn(event)
	}
	for _, e := range wildcard {
		e.fn(event)
	}
}

// Subscribe returns a channel that receives every event.
// The caller is responsible for reading from the channel to avoid drops.
func (b *EventBus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel.
func (b *EventBus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			close(sub)
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Close closes all subscriber channels and drops every handler.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
	b.handlers = make(map[string][]handlerEntry)
}
