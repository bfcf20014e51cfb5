package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xonecas/zoea-tower/internal/config"
)

func newTestSimulation(t *testing.T, roster []RosterEntry) (*Simulation, *eventLog) {
	t.Helper()

	cfg := config.DefaultConfig()
	bus := NewEventBus(100)
	t.Cleanup(bus.Close)
	events := recordEvents(bus)

	sim := NewSimulation(cfg, bus, roster, NewRNG(42))
	t.Cleanup(sim.Close)
	return sim, events
}

func TestSimulationSubmitUnknownFloor(t *testing.T) {
	sim, events := newTestSimulation(t, []RosterEntry{{ID: "s1", Floor: 5, Division: DivisionSecurity}})

	_, err := sim.Submit(42, TaskRequest{ID: "t-1", Title: "Patch vulnerability", Priority: "P2"})
	if !errors.Is(err, ErrUnknownFloor) {
		t.Errorf("expected ErrUnknownFloor, got %v", err)
	}
	if n := len(events.named(EventTaskDelegated)); n != 0 {
		t.Errorf("expected no delegation, got %d", n)
	}
	if err := sim.Cancel(42, "t-1"); !errors.Is(err, ErrUnknownFloor) {
		t.Errorf("expected ErrUnknownFloor from Cancel, got %v", err)
	}
}

func TestSimulationStepCompletesTask(t *testing.T) {
	sim, events := newTestSimulation(t, []RosterEntry{{ID: "s1", Floor: 5, Division: DivisionSecurity}})

	task, err := sim.Submit(5, TaskRequest{ID: "t-1", Title: "Patch vulnerability", Priority: "P2", Source: "user"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if task.Divisions[0] != DivisionSecurity {
		t.Errorf("expected security task, got %v", task.Divisions)
	}

	snap := sim.Snapshot()
	if got := len(snap.Floors[5].ActiveTasks); got != 1 {
		t.Fatalf("expected 1 active task on floor 5, got %d", got)
	}

	for i := 0; i < 60; i++ {
		sim.Step(100 * time.Millisecond)
		if v, _ := sim.Agent("s1"); v.State != StateWorking && len(events.named(EventTaskCompleted)) == 0 {
			t.Fatalf("expected assigned agent to stay working, got %s at step %d", v.State, i)
		}
	}

	if n := len(events.named(EventTaskCompleted)); n != 1 {
		t.Fatalf("expected 1 completed event, got %d", n)
	}
	if got := len(sim.Snapshot().Floors[5].ActiveTasks); got != 0 {
		t.Errorf("expected no active tasks, got %d", got)
	}
	if sim.Elapsed() != 6*time.Second {
		t.Errorf("expected elapsed=6s, got %s", sim.Elapsed())
	}
}

func TestSimulationCancel(t *testing.T) {
	sim, events := newTestSimulation(t, []RosterEntry{{ID: "s1", Floor: 5, Division: DivisionSecurity}})

	sim.Submit(5, TaskRequest{ID: "t-1", Title: "Patch vulnerability", Priority: "P2"})
	if err := sim.Cancel(5, "t-1"); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	failed := events.named(EventTaskFailed)
	if len(failed) != 1 || failed[0].Data.(FailedData).Reason != ReasonCancelled {
		t.Errorf("expected one cancelled failure, got %+v", failed)
	}
	if err := sim.Cancel(5, "t-1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestSimulationSwarmEndToEnd(t *testing.T) {
	roster := []RosterEntry{
		{ID: "m1", Floor: 1, Division: DivisionMarketing},
		{ID: "p1", Floor: 1, Division: DivisionProduction},
		{ID: "r1", Floor: 7, Division: DivisionResearch},
		{ID: "s1", Floor: 5, Division: DivisionSecurity},
	}
	sim, events := newTestSimulation(t, roster)
	mustSetState(t, sim.engine, "r1", StateIdle)
	mustSetState(t, sim.engine, "s1", StateIdle)

	_, err := sim.Submit(1, TaskRequest{ID: "t-1", Title: "Cross-division security, legal and research push", Priority: "P1"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if n := len(events.withSuffix(":swarm-request")); n != 3 {
		t.Errorf("expected 3 swarm requests, got %d", n)
	}
	if n := len(events.withSuffix(":swarm-response")); n != 2 {
		t.Errorf("expected 2 swarm responses, got %d", n)
	}
	if n := len(events.named(EventTaskSwarmed)); n != 3 {
		t.Errorf("expected 3 swarmed events, got %d", n)
	}

	// Swarm runs take at least the per-division time for three divisions
	// plus the coordination overhead.
	for i := 0; i < 200; i++ {
		sim.Step(100 * time.Millisecond)
	}
	completed := events.named(EventTaskCompleted)
	if len(completed) != 1 {
		t.Fatalf("expected 1 completed event, got %d", len(completed))
	}
	if c := completed[0].Data.(CompletedData); len(c.Agents) != 2 {
		t.Errorf("expected the two home agents credited, got %v", c.Agents)
	}
}

func TestSimulationWorldGauges(t *testing.T) {
	roster := []RosterEntry{
		{ID: "m1", Floor: 1, Division: DivisionMarketing},
		{ID: "s1", Floor: 5, Division: DivisionSecurity},
		{ID: "x", Floor: NoFloor, Division: DivisionLegal},
	}
	sim, _ := newTestSimulation(t, roster)
	w := sim.World()

	if got := w.Int(KeyAgentCount); got != 3 {
		t.Errorf("expected agent count 3, got %d", got)
	}
	if got := w.Int(KeyFloorCount); got != 9 {
		t.Errorf("expected 9 floors, got %d", got)
	}

	counts, ok := w.Get(KeyStateCounts)
	if !ok {
		t.Fatal("expected state counts gauge")
	}
	total := 0
	for _, n := range counts.(map[string]int) {
		total += n
	}
	if total != 3 {
		t.Errorf("expected state counts to sum to 3, got %d", total)
	}

	sim.Submit(5, TaskRequest{ID: "t-1", Title: "Patch vulnerability", Priority: "P2"})
	if got := w.Int(FloorActiveTasksKey(5)); got != 1 {
		t.Errorf("expected floor 5 gauge=1, got %d", got)
	}
}

func TestSimulationSnapshot(t *testing.T) {
	roster := []RosterEntry{
		{ID: "m1", Floor: 1, Division: DivisionMarketing},
		{ID: "p1", Floor: 1, Division: DivisionProduction},
	}
	sim, _ := newTestSimulation(t, roster)

	snap := sim.Snapshot()
	if snap.Agents != 2 {
		t.Errorf("expected 2 agents, got %d", snap.Agents)
	}
	if len(snap.Floors) != 9 {
		t.Fatalf("expected 9 floors, got %d", len(snap.Floors))
	}
	for i, f := range snap.Floors {
		if f.Index != i {
			t.Errorf("expected floors in index order, got %d at %d", f.Index, i)
		}
	}
	if f := snap.Floors[1]; f.Name != "Growth" || f.Agents != 2 || f.ManagerID != "floor-1-manager" {
		t.Errorf("unexpected floor 1 snapshot: %+v", f)
	}
}

func TestSimulationRun(t *testing.T) {
	sim, _ := newTestSimulation(t, []RosterEntry{{ID: "s1", Floor: 5, Division: DivisionSecurity}})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sim.Elapsed() <= 0 {
		t.Error("expected simulated time to advance")
	}
	if sim.Elapsed() > 300*time.Millisecond+sim.maxDelta {
		t.Errorf("expected elapsed bounded by wall time, got %s", sim.Elapsed())
	}
}
