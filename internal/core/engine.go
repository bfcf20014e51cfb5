package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/xonecas/zoea-tower/internal/constants"
)

// NoFloor marks a roster entry without a home floor.
const NoFloor = -1

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrInvalidState  = errors.New("invalid agent state")
)

// RosterEntry defines one agent as supplied by the roster loader.
// Floor is NoFloor and Division is empty when the source omitted them.
type RosterEntry struct {
	ID       string
	Floor    int
	Division Division
	Title    string
}

// AgentView is a read-only snapshot of an agent.
type AgentView struct {
	ID       string
	Title    string
	Floor    int
	Division Division
	State    AgentState
	Elapsed  float64
	Duration float64
	Position Vec3
	Target   Vec3
	Tasks    []string
}

type agent struct {
	id       string
	title    string
	floor    int
	division Division

	state    AgentState
	elapsed  float64
	duration float64

	position Vec3
	target   Vec3

	// tasks holds the ids of live assignments; while non-empty the agent is
	// pinned to working and its timer does not run.
	tasks []string
}

func (a *agent) view() AgentView {
	return AgentView{
		ID:       a.id,
		Title:    a.title,
		Floor:    a.floor,
		Division: a.division,
		State:    a.state,
		Elapsed:  a.elapsed,
		Duration: a.duration,
		Position: a.position,
		Target:   a.target,
		Tasks:    append([]string(nil), a.tasks...),
	}
}

// Engine owns the agent population and advances its state machine.
// It is not safe for concurrent use; the simulation serializes access.
type Engine struct {
	table BehaviorTable
	rng   RNG
	speed float64

	agents  []*agent
	byID    map[string]*agent
	byFloor map[int][]*agent
}

// NewEngine creates an engine for the roster. Each agent starts working or
// idle with equal probability and a duration sampled from that state's range.
func NewEngine(roster []RosterEntry, table BehaviorTable, rng RNG, speed float64) *Engine {
	if speed <= 0 {
		speed = 1
	}
	e := &Engine{
		table:   table,
		rng:     rng,
		speed:   speed,
		byID:    make(map[string]*agent, len(roster)),
		byFloor: make(map[int][]*agent),
	}

	for _, r := range roster {
		if _, dup := e.byID[r.ID]; dup {
			continue
		}
		a := &agent{
			id:       r.ID,
			title:    r.Title,
			floor:    r.Floor,
			division: r.Division,
		}
		a.state = StateWorking
		if rng.IntN(2) == 1 {
			a.state = StateIdle
		}
		a.duration = table.SampleDuration(a.state, rng)
		a.position = e.zonePoint(a.floor, a.division)
		a.target = a.position

		e.agents = append(e.agents, a)
		e.byID[a.id] = a
		if a.floor != NoFloor {
			e.byFloor[a.floor] = append(e.byFloor[a.floor], a)
		}
	}

	return e
}

// Table returns the behavior table in use.
func (e *Engine) Table() BehaviorTable { return e.table }

// Update advances every agent by delta seconds.
func (e *Engine) Update(delta float64) {
	if delta <= 0 {
		return
	}
	for _, a := range e.agents {
		if a.state == StateMoving {
			e.advance(a, delta)
			continue
		}
		if len(a.tasks) > 0 {
			continue
		}
		a.elapsed += delta
		if a.elapsed >= a.duration {
			e.transition(a, e.table.Next(a.state, e.rng))
		}
	}
}

func (e *Engine) transition(a *agent, next AgentState) {
	if next == StateMoving {
		e.beginMove(a, e.randomDestination(a.floor))
		return
	}
	e.enter(a, next)
}

func (e *Engine) enter(a *agent, state AgentState) {
	a.state = state
	a.elapsed = 0
	a.duration = e.table.SampleDuration(state, e.rng)
	a.target = a.position
}

func (e *Engine) beginMove(a *agent, dest Vec3) {
	a.state = StateMoving
	a.elapsed = 0
	a.duration = 0
	a.target = dest
}

// advance interpolates a moving agent toward its target at the engine's
// speed. On arrival the next state is drawn from the moving row.
func (e *Engine) advance(a *agent, delta float64) {
	dx := a.target.X - a.position.X
	dy := a.target.Y - a.position.Y
	dz := a.target.Z - a.position.Z
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	step := e.speed * delta

	if dist <= step || dist < constants.ArrivalEpsilon {
		a.position = a.target
		e.transition(a, e.table.Next(StateMoving, e.rng))
		return
	}

	f := step / dist
	a.position.X += dx * f
	a.position.Y += dy * f
	a.position.Z += dz * f
}

// zonePoint returns the center of a division's zone on a floor. Agents
// without a floor are parked at ground level; unknown divisions use the
// management zone.
func (e *Engine) zonePoint(floor int, div Division) Vec3 {
	idx := len(WorkDivisions)
	for i, d := range AllDivisions {
		if d == div {
			idx = i
			break
		}
	}
	y := 0.0
	if floor != NoFloor {
		y = float64(floor) * constants.FloorHeight
	}
	return Vec3{X: float64(idx) * constants.ZoneSpacing, Y: y}
}

// randomDestination picks a division zone on the floor with some jitter.
func (e *Engine) randomDestination(floor int) Vec3 {
	div := AllDivisions[e.rng.IntN(len(AllDivisions))]
	p := e.zonePoint(floor, div)
	p.X += (e.rng.Float64()*2 - 1) * constants.ZoneJitter
	p.Z += (e.rng.Float64()*2 - 1) * constants.ZoneJitter
	return p
}

// SetState forces an agent into state, resampling its duration and
// cancelling any movement. Use MoveTo or MoveToZone to start moving.
func (e *Engine) SetState(id string, state AgentState) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	if !isKnownState(state) {
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	if state == StateMoving {
		e.beginMove(a, e.randomDestination(a.floor))
		return nil
	}
	e.enter(a, state)
	return nil
}

// MoveTo sends an agent moving toward dest.
func (e *Engine) MoveTo(id string, dest Vec3) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	e.beginMove(a, dest)
	return nil
}

// MoveToZone sends an agent moving toward a division zone on its own floor.
func (e *Engine) MoveToZone(id string, div Division) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	e.beginMove(a, e.zonePoint(a.floor, div))
	return nil
}

// Assign pins an agent to working for the given task.
func (e *Engine) Assign(id, taskID string) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	if !containsString(a.tasks, taskID) {
		a.tasks = append(a.tasks, taskID)
	}
	if a.state != StateWorking {
		e.enter(a, StateWorking)
	}
	return nil
}

// Release unpins an agent from a task. The agent returns to idle once it
// holds no other assignment.
func (e *Engine) Release(id, taskID string) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	for i, t := range a.tasks {
		if t == taskID {
			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
			break
		}
	}
	if len(a.tasks) == 0 {
		e.enter(a, StateIdle)
	}
	return nil
}

// Agent returns the agent with the given id.
func (e *Engine) Agent(id string) (AgentView, bool) {
	a, ok := e.byID[id]
	if !ok {
		return AgentView{}, false
	}
	return a.view(), true
}

// Agents returns every agent in roster order.
func (e *Engine) Agents() []AgentView {
	out := make([]AgentView, 0, len(e.agents))
	for _, a := range e.agents {
		out = append(out, a.view())
	}
	return out
}

// AgentsOnFloor returns the agents whose home floor is floor, in roster order.
func (e *Engine) AgentsOnFloor(floor int) []AgentView {
	list := e.byFloor[floor]
	out := make([]AgentView, 0, len(list))
	for _, a := range list {
		out = append(out, a.view())
	}
	return out
}

// AgentsInDivision returns the agents tagged with div, in roster order.
func (e *Engine) AgentsInDivision(div Division) []AgentView {
	var out []AgentView
	if div == "" {
		return out
	}
	for _, a := range e.agents {
		if a.division == div {
			out = append(out, a.view())
		}
	}
	return out
}

// Count returns the population size.
func (e *Engine) Count() int { return len(e.agents) }

// StateCounts returns how many agents are in each state.
func (e *Engine) StateCounts() map[AgentState]int {
	counts := make(map[AgentState]int, len(AllStates))
	for _, s := range AllStates {
		counts[s] = 0
	}
	for _, a := range e.agents {
		counts[a.state]++
	}
	return counts
}

// FloorStateCounts returns how many agents of a floor are in each state.
func (e *Engine) FloorStateCounts(floor int) map[AgentState]int {
	counts := make(map[AgentState]int, len(AllStates))
	for _, s := range AllStates {
		counts[s] = 0
	}
	for _, a := range e.byFloor[floor] {
		counts[a.state]++
	}
	return counts
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
