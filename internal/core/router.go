package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xonecas/zoea-tower/internal/config"
	"github.com/xonecas/zoea-tower/internal/constants"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskActive   = errors.New("task already active")
)

// ReasonCancelled is the task:failed reason for a cancelled task.
const ReasonCancelled = "cancelled"

// RouterOptions tunes delegation timing and reinforcement.
type RouterOptions struct {
	// Specialties maps a division to the enterprise floor that reinforces swarms.
	Specialties      map[Division]int
	ProgressSteps    int
	SingleTask       time.Duration
	MultiPerDivision time.Duration
	MultiJitter      time.Duration
	SwarmOverhead    time.Duration
	// ReinforcementsPerDivision caps agents donated per needed division.
	ReinforcementsPerDivision int
}

// DefaultRouterOptions returns the options derived from the default config.
func DefaultRouterOptions() RouterOptions {
	return RouterOptionsFromConfig(config.DefaultConfig())
}

// RouterOptionsFromConfig derives router options from configuration.
func RouterOptionsFromConfig(cfg *config.Config) RouterOptions {
	sim := cfg.Simulation
	specialties := make(map[Division]int, len(cfg.Building.Specialties))
	for div, floor := range cfg.Building.Specialties {
		specialties[Division(div)] = floor
	}
	return RouterOptions{
		Specialties:               specialties,
		ProgressSteps:             sim.ProgressSteps,
		SingleTask:                time.Duration(sim.SingleTaskMS) * time.Millisecond,
		MultiPerDivision:          time.Duration(sim.MultiPerDivisionMS) * time.Millisecond,
		MultiJitter:               time.Duration(sim.MultiJitterMS) * time.Millisecond,
		SwarmOverhead:             time.Duration(sim.SwarmOverheadMS) * time.Millisecond,
		ReinforcementsPerDivision: sim.ReinforcementsPerDivision,
	}
}

func (o RouterOptions) normalized() RouterOptions {
	if o.ProgressSteps <= 0 {
		o.ProgressSteps = constants.ProgressSteps
	}
	if o.SingleTask <= 0 {
		o.SingleTask = time.Second
	}
	if o.MultiPerDivision <= 0 {
		o.MultiPerDivision = time.Second
	}
	if o.MultiJitter < 0 {
		o.MultiJitter = 0
	}
	// Keeps swarm runs strictly longer than any multi run.
	if o.SwarmOverhead <= 0 {
		o.SwarmOverhead = time.Millisecond
	}
	if o.ReinforcementsPerDivision <= 0 {
		o.ReinforcementsPerDivision = 1
	}
	if o.Specialties == nil {
		o.Specialties = map[Division]int{}
	}
	return o
}

// SubAssignment is one division's share of a multi-division task.
type SubAssignment struct {
	Index    int
	Division Division
	AgentID  string
}

// Assignment is the live record linking a task to the agents executing it.
type Assignment struct {
	Task      Task
	Strategy  Strategy
	Agents    []string
	Divisions []Division
	Subtasks  []SubAssignment
	StartedAt time.Duration
	Duration  time.Duration

	timer TimerID
}

// RouterSummary describes a router for dashboards.
type RouterSummary struct {
	Floor       int
	Name        string
	ManagerID   string
	Agents      int
	ActiveTasks int
}

// Router classifies and delegates tasks for one floor.
// It is not safe for concurrent use; the simulation serializes access.
type Router struct {
	floor     int
	name      string
	managerID string

	engine *Engine
	bus    *EventBus
	world  *WorldState
	timers *Timers
	rng    RNG
	opts   RouterOptions

	active map[string]*Assignment
	offs   []func()
}

// NewRouter creates the router of a floor. Call Attach to start answering
// swarm traffic addressed to the floor.
func NewRouter(floor int, name string, engine *Engine, bus *EventBus, world *WorldState, timers *Timers, rng RNG, opts RouterOptions) *Router {
	if name == "" {
		name = FloorChannel(floor)
	}
	return &Router{
		floor:     floor,
		name:      name,
		managerID: FloorChannel(floor) + "-" + constants.ManagerSuffix,
		engine:    engine,
		bus:       bus,
		world:     world,
		timers:    timers,
		rng:       rng,
		opts:      opts.normalized(),
		active:    make(map[string]*Assignment),
	}
}

// Attach subscribes the router to its floor's swarm request and response events.
func (r *Router) Attach() {
	r.offs = append(r.offs,
		r.bus.On(SwarmRequestEvent(r.floor), func(e Event) {
			if req, ok := e.Data.(SwarmRequestData); ok {
				r.HandleSwarmRequest(req)
			}
		}),
		r.bus.On(SwarmResponseEvent(r.floor), func(e Event) {
			if resp, ok := e.Data.(SwarmResponseData); ok {
				r.HandleSwarmResponse(resp.TaskID, resp.Agents, resp.FromFloor)
			}
		}),
	)
}

// Detach removes the router's bus handlers.
func (r *Router) Detach() {
	for _, off := range r.offs {
		off()
	}
	r.offs = nil
}

// Floor returns the managed floor index.
func (r *Router) Floor() int { return r.floor }

// ManagerID returns the router's identity used in events.
func (r *Router) ManagerID() string { return r.managerID }

// ActiveTaskCount returns the number of live assignments.
func (r *Router) ActiveTaskCount() int { return len(r.active) }

// Summary returns the router's identity and load.
func (r *Router) Summary() RouterSummary {
	return RouterSummary{
		Floor:       r.floor,
		Name:        r.name,
		ManagerID:   r.managerID,
		Agents:      len(r.engine.AgentsOnFloor(r.floor)),
		ActiveTasks: len(r.active),
	}
}

// Assignment returns a copy of the live assignment for a task.
func (r *Router) Assignment(taskID string) (Assignment, bool) {
	a, ok := r.active[taskID]
	if !ok {
		return Assignment{}, false
	}
	out := *a
	out.Agents = append([]string(nil), a.Agents...)
	out.Divisions = append([]Division(nil), a.Divisions...)
	out.Subtasks = append([]SubAssignment(nil), a.Subtasks...)
	return out, true
}

// ReceiveTask analyzes a task and delegates it with the strategy its
// complexity and division count call for. The analyzed task is returned
// whether or not delegation succeeded; failures are reported as task:failed.
// A swarm skips its own floor when sending swarm requests, so a swarm started
// on a specialty floor emits one request fewer than it has specialty floors.
func (r *Router) ReceiveTask(taskID, title, description string, priority Priority, sourceID string) (Task, error) {
	task := Analyze(TaskRequest{
		ID:          taskID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Source:      sourceID,
	})
	if _, dup := r.active[taskID]; dup {
		return task, fmt.Errorf("%w: %s", ErrTaskActive, taskID)
	}

	r.bus.Emit(EventTaskDelegated, DelegatedData{
		TaskID:   taskID,
		FromID:   sourceID,
		ToID:     r.managerID,
		Floor:    r.floor,
		Division: DivisionManagement,
	})

	strategy := ChooseStrategy(task)
	log.Debug().
		Str("task", taskID).
		Int("floor", r.floor).
		Str("strategy", string(strategy)).
		Str("complexity", string(task.Complexity)).
		Interface("divisions", task.Divisions).
		Msg("Routing task")

	if len(r.engine.AgentsOnFloor(r.floor)) == 0 {
		r.fail(taskID, fmt.Sprintf("no agents available on %s", r.name))
		return task, nil
	}

	switch strategy {
	case StrategySwarm:
		r.delegateSwarm(task)
	case StrategyMulti:
		r.delegateMulti(task)
	default:
		r.delegateSingle(task)
	}
	return task, nil
}

// delegateSingle prefers an idle agent of the division, then any agent of
// the division, then a random agent of the floor.
func (r *Router) delegateSingle(task Task) {
	floorAgents := r.engine.AgentsOnFloor(r.floor)
	div := task.Divisions[0]

	var chosen, fallback *AgentView
	for i := range floorAgents {
		a := &floorAgents[i]
		if a.Division != div {
			continue
		}
		if a.State == StateIdle {
			chosen = a
			break
		}
		if fallback == nil {
			fallback = a
		}
	}
	if chosen == nil {
		chosen = fallback
	}
	if chosen == nil {
		chosen = &floorAgents[r.rng.IntN(len(floorAgents))]
	}

	r.assign(chosen.ID, task.ID)
	a := &Assignment{
		Task:      task,
		Strategy:  StrategySingle,
		Agents:    []string{chosen.ID},
		Divisions: []Division{div},
		Subtasks:  []SubAssignment{{Index: 0, Division: div, AgentID: chosen.ID}},
	}
	r.start(a, r.opts.SingleTask)
}

// delegateMulti takes the first agent of each division on the floor, with
// no idle preference. Divisions without agents are skipped; when none is
// staffed a random floor agent takes the task.
func (r *Router) delegateMulti(task Task) {
	floorAgents := r.engine.AgentsOnFloor(r.floor)

	a := &Assignment{
		Task:      task,
		Strategy:  StrategyMulti,
		Divisions: append([]Division(nil), task.Divisions...),
	}
	for i, div := range task.Divisions {
		for _, ag := range floorAgents {
			if ag.Division != div || containsString(a.Agents, ag.ID) {
				continue
			}
			a.Subtasks = append(a.Subtasks, SubAssignment{Index: i, Division: div, AgentID: ag.ID})
			a.Agents = append(a.Agents, ag.ID)
			break
		}
	}

	// No division is staffed here: hand the whole task to a random floor agent.
	if len(a.Agents) == 0 {
		ag := floorAgents[r.rng.IntN(len(floorAgents))]
		a.Subtasks = []SubAssignment{{Index: 0, Division: task.Divisions[0], AgentID: ag.ID}}
		a.Agents = []string{ag.ID}
	}

	for _, id := range a.Agents {
		r.assign(id, task.ID)
	}

	total := r.opts.MultiPerDivision*time.Duration(len(task.Divisions)) + r.jitter()
	r.start(a, total)
}

// delegateSwarm engages every agent of the floor and asks each distinct
// specialty floor of the task's divisions for reinforcements.
func (r *Router) delegateSwarm(task Task) {
	floorAgents := r.engine.AgentsOnFloor(r.floor)

	a := &Assignment{
		Task:      task,
		Strategy:  StrategySwarm,
		Divisions: append([]Division(nil), task.Divisions...),
	}
	for _, ag := range floorAgents {
		r.assign(ag.ID, task.ID)
		a.Agents = append(a.Agents, ag.ID)
	}

	n := len(task.Divisions)
	if n < MaxTaskDivisions {
		n = MaxTaskDivisions
	}
	total := r.opts.MultiPerDivision*time.Duration(n) + r.opts.MultiJitter + r.opts.SwarmOverhead
	r.start(a, total)

	for _, floor := range r.reinforcementFloors(task.Divisions) {
		r.bus.Emit(SwarmRequestEvent(floor), SwarmRequestData{
			TaskID:          task.ID,
			RequestingFloor: r.floor,
			NeededDivisions: append([]Division(nil), task.Divisions...),
			Priority:        task.Priority,
		})
	}

	r.bus.Emit(EventTaskSwarmed, SwarmedData{
		TaskID:      task.ID,
		Coordinator: r.managerID,
		Agents:      append([]string(nil), a.Agents...),
		Floor:       r.floor,
		Divisions:   append([]Division(nil), task.Divisions...),
	})
}

// reinforcementFloors maps divisions to specialty floors, deduplicated, in
// division order. The router's own floor is never asked.
func (r *Router) reinforcementFloors(divs []Division) []int {
	var floors []int
	seen := make(map[int]bool)
	for _, d := range divs {
		f, ok := r.opts.Specialties[d]
		if !ok || f == r.floor || seen[f] {
			continue
		}
		seen[f] = true
		floors = append(floors, f)
	}
	return floors
}

func (r *Router) jitter() time.Duration {
	if r.opts.MultiJitter <= 0 {
		return 0
	}
	return time.Duration(r.rng.Float64() * float64(r.opts.MultiJitter))
}

// start records the assignment and schedules its progress steps.
func (r *Router) start(a *Assignment, total time.Duration) {
	steps := r.opts.ProgressSteps
	interval := total / time.Duration(steps)
	if interval <= 0 {
		interval = time.Millisecond
	}

	a.StartedAt = r.timers.Now()
	a.Duration = interval * time.Duration(steps)
	r.active[a.Task.ID] = a
	r.publishActive()

	taskID := a.Task.ID
	step := 0
	a.timer = r.timers.Every(interval, func() {
		step++
		r.progress(taskID, step, steps)
	})
}

func (r *Router) progress(taskID string, step, steps int) {
	a, ok := r.active[taskID]
	if !ok {
		return
	}
	pct := step * 100 / steps
	if step >= steps {
		pct = 100
	}

	agent := ""
	if len(a.Agents) > 0 {
		agent = a.Agents[0]
	}
	r.bus.Emit(EventTaskProgress, ProgressData{
		TaskID:   taskID,
		Floor:    r.floor,
		Progress: pct,
		Agent:    agent,
		Message:  progressMessage(a.Strategy, pct),
	})

	if step >= steps {
		r.complete(taskID)
	}
}

// complete releases the agents of a task and reports it done. The
// assignment is removed before any event goes out so handlers observe a
// consistent active set.
func (r *Router) complete(taskID string) {
	a, ok := r.finish(taskID)
	if !ok {
		return
	}

	agent := ""
	if len(a.Agents) > 0 {
		agent = a.Agents[0]
	}
	r.bus.Emit(EventTaskCompleted, CompletedData{
		TaskID: taskID,
		Floor:  r.floor,
		Agent:  agent,
		Agents: a.Agents,
		Result: fmt.Sprintf("%q completed by %d agent(s) via %s delegation", a.Task.Title, len(a.Agents), a.Strategy),
	})
}

// CancelTask stops a task's progress, releases its agents and reports it
// as failed with ReasonCancelled.
func (r *Router) CancelTask(taskID string) error {
	if _, ok := r.finish(taskID); !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	r.bus.Emit(EventTaskFailed, FailedData{TaskID: taskID, Floor: r.floor, Reason: ReasonCancelled})
	return nil
}

func (r *Router) finish(taskID string) (*Assignment, bool) {
	a, ok := r.active[taskID]
	if !ok {
		return nil, false
	}
	r.timers.Cancel(a.timer)
	delete(r.active, taskID)
	for _, id := range a.Agents {
		if err := r.engine.Release(id, taskID); err != nil {
			log.Warn().Err(err).Str("task", taskID).Msg("Failed to release agent")
		}
	}
	r.publishActive()
	return a, true
}

func (r *Router) assign(id, taskID string) {
	if err := r.engine.Assign(id, taskID); err != nil {
		log.Warn().Err(err).Str("task", taskID).Str("agent", id).Msg("Failed to assign agent")
	}
}

func (r *Router) fail(taskID, reason string) {
	log.Warn().Str("task", taskID).Int("floor", r.floor).Str("reason", reason).Msg("Task failed")
	r.bus.Emit(EventTaskFailed, FailedData{TaskID: taskID, Floor: r.floor, Reason: reason})
}

func (r *Router) publishActive() {
	if r.world != nil {
		r.world.Set(FloorActiveTasksKey(r.floor), len(r.active))
	}
}

// HandleSwarmRequest donates idle agents of the needed divisions to a
// swarming floor, falling back to any idle agent of this floor. Donors head
// to the meeting zone and the requester is told who is coming.
func (r *Router) HandleSwarmRequest(req SwarmRequestData) {
	if req.RequestingFloor == r.floor {
		return
	}
	limit := r.opts.ReinforcementsPerDivision
	floorAgents := r.engine.AgentsOnFloor(r.floor)

	var donors []string
	for _, div := range req.NeededDivisions {
		n := 0
		for _, a := range floorAgents {
			if n >= limit {
				break
			}
			if a.Division == div && a.State == StateIdle && !containsString(donors, a.ID) {
				donors = append(donors, a.ID)
				n++
			}
		}
	}
	if len(donors) == 0 {
		for _, a := range floorAgents {
			if len(donors) >= limit {
				break
			}
			if a.State == StateIdle {
				donors = append(donors, a.ID)
			}
		}
	}

	if len(donors) == 0 {
		log.Debug().Str("task", req.TaskID).Int("floor", r.floor).Msg("No idle agents to reinforce swarm")
		return
	}

	for _, id := range donors {
		if err := r.engine.MoveToZone(id, DivisionMeeting); err != nil {
			log.Warn().Err(err).Str("task", req.TaskID).Str("agent", id).Msg("Failed to send reinforcement")
		}
	}

	r.bus.Emit(SwarmResponseEvent(req.RequestingFloor), SwarmResponseData{
		TaskID:    req.TaskID,
		Agents:    donors,
		FromFloor: r.floor,
	})
}

// HandleSwarmResponse credits a reinforcement floor's contribution. The
// task's own progress is not affected by reinforcements arriving.
func (r *Router) HandleSwarmResponse(taskID string, agents []string, fromFloor int) {
	var divs []Division
	if a, ok := r.active[taskID]; ok {
		divs = append(divs, a.Divisions...)
	}
	r.bus.Emit(EventTaskSwarmed, SwarmedData{
		TaskID:      taskID,
		Coordinator: r.managerID,
		Agents:      append([]string(nil), agents...),
		Floor:       fromFloor,
		Divisions:   divs,
	})
}

func progressMessage(s Strategy, pct int) string {
	switch {
	case pct >= 100:
		return "Task complete"
	case pct >= 80:
		return "Finalizing deliverables"
	case pct >= 50:
		if s == StrategySingle {
			return "Work in progress"
		}
		return "Divisions syncing results"
	case pct >= 20:
		if s == StrategySwarm {
			return "Swarm coordinating across floors"
		}
		return "Work in progress"
	default:
		return "Analyzing requirements"
	}
}
