package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xonecas/zoea-tower/internal/config"
	"github.com/xonecas/zoea-tower/internal/constants"
)

var (
	ErrUnknownFloor   = errors.New("unknown floor")
	ErrAlreadyRunning = errors.New("simulation already running")
)

// FloorSnapshot is a point-in-time view of one floor.
type FloorSnapshot struct {
	Index       int
	Name        string
	ManagerID   string
	Agents      int
	States      map[AgentState]int
	ActiveTasks []Assignment
}

// Snapshot is a point-in-time view of the whole tower.
type Snapshot struct {
	Elapsed time.Duration
	Agents  int
	States  map[AgentState]int
	Floors  []FloorSnapshot
}

// Simulation owns the clock and serializes every mutation of the engine and
// routers: ticks, task submissions and snapshots all take the same lock.
type Simulation struct {
	mu sync.Mutex

	bus     *EventBus
	world   *WorldState
	engine  *Engine
	timers  *Timers
	routers map[int]*Router
	floors  []config.FloorConfig

	tickInterval time.Duration
	maxDelta     time.Duration
	running      bool
}

// NewSimulation builds the engine and one attached router per configured floor.
func NewSimulation(cfg *config.Config, bus *EventBus, roster []RosterEntry, rng RNG) *Simulation {
	table := DefaultBehaviorTable().WithOverrides(cfg.Behavior)
	world := NewWorldState(bus)
	timers := NewTimers()
	engine := NewEngine(roster, table, rng, cfg.Simulation.MoveSpeed)
	opts := RouterOptionsFromConfig(cfg)

	tick := cfg.Simulation.TickInterval()
	if tick <= 0 {
		tick = constants.DefaultTickInterval
	}
	maxDelta := cfg.Simulation.MaxDelta()
	if maxDelta <= 0 {
		maxDelta = constants.DefaultMaxDelta
	}

	s := &Simulation{
		bus:          bus,
		world:        world,
		engine:       engine,
		timers:       timers,
		routers:      make(map[int]*Router),
		floors:       append([]config.FloorConfig(nil), cfg.Building.Floors...),
		tickInterval: tick,
		maxDelta:     maxDelta,
	}
	sort.Slice(s.floors, func(i, j int) bool { return s.floors[i].Index < s.floors[j].Index })

	for _, f := range s.floors {
		r := NewRouter(f.Index, f.Name, engine, bus, world, timers, rng, opts)
		r.Attach()
		s.routers[f.Index] = r
		world.Set(FloorActiveTasksKey(f.Index), 0)
	}

	world.Set(KeyAgentCount, engine.Count())
	world.Set(KeyFloorCount, len(s.floors))
	s.publishCounts()

	return s
}

// Bus returns the event bus.
func (s *Simulation) Bus() *EventBus { return s.bus }

// World returns the shared world state.
func (s *Simulation) World() *WorldState { return s.world }

// Floors returns the configured floors in index order.
func (s *Simulation) Floors() []config.FloorConfig {
	return append([]config.FloorConfig(nil), s.floors...)
}

// Step advances the simulation by delta: agents first, then task timers.
func (s *Simulation) Step(delta time.Duration) {
	if delta <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Update(delta.Seconds())
	s.timers.Advance(delta)
	s.publishCounts()
}

func (s *Simulation) publishCounts() {
	counts := s.engine.StateCounts()
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	s.world.Set(KeyStateCounts, out)
}

// Run ticks the simulation with the real elapsed time between ticks, capped
// at the configured maximum delta, until ctx is cancelled.
func (s *Simulation) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Info().Dur("tick", s.tickInterval).Int("agents", s.engine.Count()).Int("floors", len(s.floors)).Msg("Simulation started")

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info().Dur("elapsed", s.Elapsed()).Msg("Simulation stopped")
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if delta > s.maxDelta {
				delta = s.maxDelta
			}
			s.Step(delta)
		}
	}
}

// Elapsed returns the simulated time advanced so far.
func (s *Simulation) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers.Now()
}

// Submit hands a task to the router of a floor.
func (s *Simulation) Submit(floor int, req TaskRequest) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.routers[floor]
	if !ok {
		return Task{}, fmt.Errorf("%w: %d", ErrUnknownFloor, floor)
	}
	return r.ReceiveTask(req.ID, req.Title, req.Description, req.Priority, req.Source)
}

// Cancel cancels an active task on a floor.
func (s *Simulation) Cancel(floor int, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.routers[floor]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFloor, floor)
	}
	return r.CancelTask(taskID)
}

// Agent returns a snapshot of one agent.
func (s *Simulation) Agent(id string) (AgentView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Agent(id)
}

// AgentsOnFloor returns a snapshot of a floor's agents.
func (s *Simulation) AgentsOnFloor(floor int) []AgentView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AgentsOnFloor(floor)
}

// Snapshot returns a consistent view of every floor.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Elapsed: s.timers.Now(),
		Agents:  s.engine.Count(),
		States:  s.engine.StateCounts(),
	}
	for _, f := range s.floors {
		r := s.routers[f.Index]
		fs := FloorSnapshot{
			Index:     f.Index,
			Name:      f.Name,
			ManagerID: r.ManagerID(),
			Agents:    len(s.engine.AgentsOnFloor(f.Index)),
			States:    s.engine.FloorStateCounts(f.Index),
		}
		ids := make([]string, 0, len(r.active))
		for id := range r.active {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			a, _ := r.Assignment(id)
			fs.ActiveTasks = append(fs.ActiveTasks, a)
		}
		snap.Floors = append(snap.Floors, fs)
	}
	return snap
}

// Close detaches every router from the bus.
func (s *Simulation) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routers {
		r.Detach()
	}
}
