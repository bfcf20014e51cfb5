package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// scriptedRNG replays fixed values, cycling when exhausted.
type scriptedRNG struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *scriptedRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func (r *scriptedRNG) IntN(n int) int {
	if len(r.ints) == 0 || n <= 0 {
		return 0
	}
	v := r.ints[r.ii%len(r.ints)] % n
	r.ii++
	return v
}

// eventLog records every event published on a bus.
type eventLog struct {
	events []Event
}

func recordEvents(bus *EventBus) *eventLog {
	l := &eventLog{}
	bus.On(AnyEvent, func(e Event) { l.events = append(l.events, e) })
	return l
}

func (l *eventLog) named(name string) []Event {
	var out []Event
	for _, e := range l.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) withSuffix(suffix string) []Event {
	var out []Event
	for _, e := range l.events {
		if strings.HasSuffix(e.Name, suffix) {
			out = append(out, e)
		}
	}
	return out
}

func setupRouterTest(t *testing.T, floor int, roster []RosterEntry) (*Router, *Engine, *EventBus, *Timers, *eventLog) {
	t.Helper()

	bus := NewEventBus(100)
	t.Cleanup(bus.Close)

	engine := NewEngine(roster, DefaultBehaviorTable(), NewRNG(1), 1)
	world := NewWorldState(bus)
	timers := NewTimers()
	events := recordEvents(bus)

	r := NewRouter(floor, "", engine, bus, world, timers, NewRNG(2), DefaultRouterOptions())
	r.Attach()
	t.Cleanup(r.Detach)

	return r, engine, bus, timers, events
}

func mustSetState(t *testing.T, e *Engine, id string, s AgentState) {
	t.Helper()
	if err := e.SetState(id, s); err != nil {
		t.Fatalf("SetState(%s, %s) error: %v", id, s, err)
	}
}

// captureLogs redirects the global logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}
