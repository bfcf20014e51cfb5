package core

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func testRoster() []RosterEntry {
	return []RosterEntry{
		{ID: "m1", Floor: 1, Division: DivisionMarketing, Title: "Brand Lead"},
		{ID: "p1", Floor: 1, Division: DivisionProduction, Title: "Engineer"},
		{ID: "s1", Floor: 2, Division: DivisionSecurity, Title: "Analyst"},
		{ID: "nofloor", Floor: NoFloor, Division: DivisionSecurity, Title: "Contractor"},
		{ID: "nodiv", Floor: 2, Title: "Intern"},
	}
}

func TestEngineInitialization(t *testing.T) {
	table := DefaultBehaviorTable()
	e := NewEngine(testRoster(), table, NewRNG(3), 1)

	if e.Count() != 5 {
		t.Fatalf("expected 5 agents, got %d", e.Count())
	}
	for _, a := range e.Agents() {
		if a.State != StateWorking && a.State != StateIdle {
			t.Errorf("agent %s: expected initial working or idle, got %s", a.ID, a.State)
		}
		r := table.Durations[a.State]
		if a.Duration < r.Min || a.Duration > r.Max {
			t.Errorf("agent %s: duration %.2f outside %s range", a.ID, a.Duration, a.State)
		}
		if a.Elapsed != 0 {
			t.Errorf("agent %s: expected elapsed=0, got %.2f", a.ID, a.Elapsed)
		}
	}
}

func TestEngineInitialStatesAreMixed(t *testing.T) {
	var roster []RosterEntry
	for i := 0; i < 200; i++ {
		roster = append(roster, RosterEntry{ID: string(rune('A'+i%26)) + string(rune('a'+i/26)), Floor: 1, Division: DivisionTesting})
	}
	e := NewEngine(roster, DefaultBehaviorTable(), NewRNG(5), 1)

	counts := e.StateCounts()
	if counts[StateWorking] < 60 || counts[StateIdle] < 60 {
		t.Errorf("expected roughly even working/idle split, got %v", counts)
	}
}

func TestEngineQueries(t *testing.T) {
	e := NewEngine(testRoster(), DefaultBehaviorTable(), NewRNG(3), 1)

	floor2 := e.AgentsOnFloor(2)
	if len(floor2) != 2 || floor2[0].ID != "s1" || floor2[1].ID != "nodiv" {
		t.Errorf("expected floor 2 = [s1 nodiv], got %+v", floor2)
	}

	sec := e.AgentsInDivision(DivisionSecurity)
	if len(sec) != 2 {
		t.Errorf("expected 2 security agents (incl. floorless), got %d", len(sec))
	}

	if got := e.AgentsInDivision(""); len(got) != 0 {
		t.Errorf("expected agents without division excluded, got %d", len(got))
	}

	for _, f := range []int{0, 1, 2} {
		for _, a := range e.AgentsOnFloor(f) {
			if a.ID == "nofloor" {
				t.Error("expected floorless agent excluded from floor queries")
			}
		}
	}

	a, ok := e.Agent("p1")
	if !ok || a.Division != DivisionProduction || a.Title != "Engineer" {
		t.Errorf("unexpected agent p1: %+v ok=%v", a, ok)
	}
	if _, ok := e.Agent("ghost"); ok {
		t.Error("expected unknown agent lookup to fail")
	}
}

func TestEngineTransitionsWhenTimerExpires(t *testing.T) {
	table := BehaviorTable{
		Durations: map[AgentState]DurationRange{
			StateWorking: {Min: 1, Max: 1},
			StateIdle:    {Min: 1, Max: 1},
			StateMeeting: {Min: 5, Max: 5},
		},
		Transitions: map[AgentState][]Transition{
			StateWorking: {{StateMeeting, 1}},
			StateIdle:    {{StateMeeting, 1}},
		},
	}
	e := NewEngine([]RosterEntry{{ID: "a", Floor: 1, Division: DivisionLegal}}, table, NewRNG(1), 1)

	e.Update(0.5)
	a, _ := e.Agent("a")
	if a.State == StateMeeting {
		t.Fatal("expected no transition before duration")
	}
	if a.Elapsed != 0.5 {
		t.Errorf("expected elapsed=0.5, got %v", a.Elapsed)
	}

	e.Update(0.5)
	a, _ = e.Agent("a")
	if a.State != StateMeeting {
		t.Fatalf("expected meeting after duration, got %s", a.State)
	}
	if a.Elapsed != 0 || a.Duration != 5 {
		t.Errorf("expected fresh meeting timer, got elapsed=%v duration=%v", a.Elapsed, a.Duration)
	}
}

func TestEngineMovementInterpolates(t *testing.T) {
	table := DefaultBehaviorTable()
	e := NewEngine([]RosterEntry{{ID: "a", Floor: 1, Division: DivisionMarketing}}, table, NewRNG(1), 1)

	start, _ := e.Agent("a")
	dest := Vec3{X: start.Position.X + 2, Y: start.Position.Y, Z: start.Position.Z}
	if err := e.MoveTo("a", dest); err != nil {
		t.Fatalf("MoveTo() error: %v", err)
	}

	e.Update(1)
	a, _ := e.Agent("a")
	if a.State != StateMoving {
		t.Fatalf("expected still moving halfway, got %s", a.State)
	}
	if math.Abs(a.Position.X-(start.Position.X+1)) > 1e-9 {
		t.Errorf("expected x advanced by 1, got %v", a.Position.X-start.Position.X)
	}
	if a.Elapsed != 0 {
		t.Errorf("expected timer suspended while moving, got elapsed=%v", a.Elapsed)
	}

	e.Update(1.5)
	a, _ = e.Agent("a")
	if a.Position != dest {
		t.Errorf("expected to arrive at %+v, got %+v", dest, a.Position)
	}
	if a.State == StateMoving {
		t.Error("expected a new state drawn from the moving row on arrival")
	}
}

func TestEngineMovingTransitionPicksDestinationOnFloor(t *testing.T) {
	table := BehaviorTable{
		Durations: map[AgentState]DurationRange{
			StateWorking: {Min: 1, Max: 1},
			StateIdle:    {Min: 1, Max: 1},
		},
		Transitions: map[AgentState][]Transition{
			StateWorking: {{StateMoving, 1}},
			StateIdle:    {{StateMoving, 1}},
			StateMoving:  {{StateIdle, 1}},
		},
	}
	e := NewEngine([]RosterEntry{{ID: "a", Floor: 3, Division: DivisionResearch}}, table, NewRNG(11), 0.001)

	e.Update(1)
	a, _ := e.Agent("a")
	if a.State != StateMoving {
		t.Fatalf("expected moving, got %s", a.State)
	}
	if a.Target.Y != a.Position.Y {
		t.Errorf("expected destination on the same floor, got target y=%v position y=%v", a.Target.Y, a.Position.Y)
	}
}

func TestEngineAssignPinsAgent(t *testing.T) {
	e := NewEngine(testRoster(), DefaultBehaviorTable(), NewRNG(3), 1)

	if err := e.Assign("m1", "task-a"); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := e.Assign("m1", "task-b"); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}

	e.Update(10000)
	a, _ := e.Agent("m1")
	if a.State != StateWorking {
		t.Fatalf("expected pinned agent to stay working, got %s", a.State)
	}

	e.Release("m1", "task-a")
	a, _ = e.Agent("m1")
	if a.State != StateWorking {
		t.Errorf("expected agent still working while task-b is live, got %s", a.State)
	}

	e.Release("m1", "task-b")
	a, _ = e.Agent("m1")
	if a.State != StateIdle {
		t.Errorf("expected idle after last release, got %s", a.State)
	}
	if len(a.Tasks) != 0 {
		t.Errorf("expected no tasks, got %v", a.Tasks)
	}
}

func TestEngineSetState(t *testing.T) {
	e := NewEngine(testRoster(), DefaultBehaviorTable(), NewRNG(3), 1)

	if err := e.SetState("p1", StateNetworking); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	a, _ := e.Agent("p1")
	if a.State != StateNetworking {
		t.Errorf("expected networking, got %s", a.State)
	}

	if err := e.SetState("ghost", StateIdle); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}
	if err := e.SetState("p1", AgentState("asleep")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestEngineDuplicateRosterIDsIgnored(t *testing.T) {
	roster := []RosterEntry{
		{ID: "x", Floor: 1, Division: DivisionLegal},
		{ID: "x", Floor: 2, Division: DivisionTesting},
	}
	e := NewEngine(roster, DefaultBehaviorTable(), NewRNG(3), 1)

	if e.Count() != 1 {
		t.Errorf("expected duplicate dropped, got %d agents", e.Count())
	}
	a, _ := e.Agent("x")
	if a.Floor != 1 {
		t.Errorf("expected first entry kept, got floor %d", a.Floor)
	}
}

func TestEngineTickTransitionsConverge(t *testing.T) {
	var roster []RosterEntry
	for i := 0; i < 200; i++ {
		roster = append(roster, RosterEntry{
			ID:       fmt.Sprintf("a%d", i),
			Floor:    1 + i%5,
			Division: WorkDivisions[i%len(WorkDivisions)],
		})
	}
	table := DefaultBehaviorTable()
	e := NewEngine(roster, table, NewRNG(2024), 20)

	const delta = 0.5 // shorter than any state duration: at most one transition per update
	counts := make(map[AgentState]map[AgentState]int)
	before := e.Agents()
	for tick := 0; tick < 2000; tick++ {
		e.Update(delta)
		after := e.Agents()
		for i, prev := range before {
			next := after[i]
			var changed bool
			if prev.State == StateMoving {
				changed = next.State != StateMoving
			} else {
				changed = next.Elapsed < prev.Elapsed+delta/2
			}
			if !changed {
				continue
			}
			if counts[prev.State] == nil {
				counts[prev.State] = make(map[AgentState]int)
			}
			counts[prev.State][next.State]++
		}
		before = after
	}

	for _, from := range AllStates {
		total := 0
		for _, n := range counts[from] {
			total += n
		}
		if total < 1000 {
			t.Errorf("%s: expected at least 1000 observed transitions, got %d", from, total)
			continue
		}
		for state, p := range table.Probabilities(from) {
			got := float64(counts[from][state]) / float64(total)
			if math.Abs(got-p) > 0.03 {
				t.Errorf("%s -> %s: expected p=%.3f, got %.3f over %d transitions", from, state, p, got, total)
			}
		}
	}
}
