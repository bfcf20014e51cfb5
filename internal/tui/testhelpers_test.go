package tui

import (
	"regexp"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/xonecas/zoea-tower/internal/config"
	"github.com/xonecas/zoea-tower/internal/core"
)

// Test constants for consistent terminal dimensions
const (
	TestTerminalWidth  = 120
	TestTerminalHeight = 40
)

// setupColorTest forces TrueColor output so styling is observable.
// Returns a cleanup function that should be deferred.
func setupColorTest(t *testing.T) func() {
	t.Helper()
	lipgloss.SetColorProfile(termenv.TrueColor)
	return func() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripANSI removes all ANSI escape codes from a string.
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// testRoster staffs the growth floor and the security enterprise; every
// other floor is empty.
func testRoster() []core.RosterEntry {
	return []core.RosterEntry{
		{ID: "m1", Floor: 1, Division: core.DivisionMarketing, Title: "Brand Strategist"},
		{ID: "p1", Floor: 1, Division: core.DivisionProduction, Title: "Software Engineer"},
		{ID: "s1", Floor: 5, Division: core.DivisionSecurity, Title: "Security Analyst"},
	}
}

type submitted struct {
	floor int
	task  core.Task
}

type testHarness struct {
	sim       *core.Simulation
	bus       *core.EventBus
	submitted []submitted
}

func setupTestModel(t *testing.T) (Model, *testHarness, func()) {
	t.Helper()

	bus := core.NewEventBus(100)
	eventCh := bus.Subscribe()
	sim := core.NewSimulation(config.DefaultConfig(), bus, testRoster(), core.NewRNG(42))

	h := &testHarness{sim: sim, bus: bus}
	model := New(sim, eventCh, func(floor int, task core.Task) {
		h.submitted = append(h.submitted, submitted{floor, task})
	})
	model.width = 80
	model.height = 24

	cleanup := func() {
		sim.Close()
		bus.Close()
	}
	return model, h, cleanup
}
