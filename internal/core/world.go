package core

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// World state keys shared between components.
const (
	KeyStateCounts   = "agents.state_counts"
	KeyAgentCount    = "agents.count"
	KeyFloorCount    = "floors.count"
	KeySelectedFloor = "selection.floor"
)

// FloorActiveTasksKey returns the gauge key for a floor's active task count.
func FloorActiveTasksKey(floor int) string {
	return fmt.Sprintf("floor.%d.active_tasks", floor)
}

// WorldState is the shared mutable record of gauges and selections.
// Every effective change is re-emitted as a state:changed event.
type WorldState struct {
	mu     sync.RWMutex
	values map[string]interface{}
	bus    *EventBus
}

// NewWorldState creates an empty world state publishing on bus.
func NewWorldState(bus *EventBus) *WorldState {
	return &WorldState{
		values: make(map[string]interface{}),
		bus:    bus,
	}
}

// Get returns the value stored under key.
func (w *WorldState) Get(key string) (interface{}, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.values[key]
	return v, ok
}

// Int returns the value under key as an int, or 0.
func (w *WorldState) Int(key string) int {
	v, _ := w.Get(key)
	n, _ := v.(int)
	return n
}

// Set stores value under key and emits state:changed if it differs from the previous value.
func (w *WorldState) Set(key string, value interface{}) {
	w.Update(key, func(interface{}) interface{} { return value })
}

// Update replaces the value under key with fn(old). The change event is emitted
// after the lock is released so handlers may read or write the store.
func (w *WorldState) Update(key string, fn func(old interface{}) interface{}) {
	w.mu.Lock()
	old, existed := w.values[key]
	next := fn(old)
	if existed && reflect.DeepEqual(old, next) {
		w.mu.Unlock()
		return
	}
	w.values[key] = next
	w.mu.Unlock()

	if w.bus != nil {
		w.bus.Emit(EventStateChanged, StateChangeData{Key: key, OldValue: old, NewValue: next})
	}
}

// Keys returns every stored key in sorted order.
func (w *WorldState) Keys() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]string, 0, len(w.values))
	for k := range w.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
