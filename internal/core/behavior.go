package core

import (
	"github.com/xonecas/zoea-tower/internal/config"
)

// DurationRange is the range, in seconds, a state's duration is sampled from.
type DurationRange struct {
	Min float64
	Max float64
}

// Transition is one weighted outgoing edge of the state machine.
type Transition struct {
	State  AgentState
	Weight float64
}

// BehaviorTable holds per-state durations and transition weights.
// Weights are relative; they need not sum to 1.
type BehaviorTable struct {
	Durations   map[AgentState]DurationRange
	Transitions map[AgentState][]Transition
}

// DefaultBehaviorTable returns the built-in behavior table.
func DefaultBehaviorTable() BehaviorTable {
	return BehaviorTable{
		Durations: map[AgentState]DurationRange{
			StateWorking:    {Min: 8, Max: 20},
			StateIdle:       {Min: 3, Max: 8},
			StateMeeting:    {Min: 6, Max: 15},
			StateNetworking: {Min: 4, Max: 10},
			StateMoving:     {Min: 2, Max: 6},
		},
		Transitions: map[AgentState][]Transition{
			StateWorking: {
				{StateWorking, 0.40},
				{StateIdle, 0.25},
				{StateMeeting, 0.10},
				{StateNetworking, 0.10},
				{StateMoving, 0.15},
			},
			StateIdle: {
				{StateWorking, 0.45},
				{StateIdle, 0.10},
				{StateMeeting, 0.10},
				{StateNetworking, 0.15},
				{StateMoving, 0.20},
			},
			StateMeeting: {
				{StateWorking, 0.50},
				{StateIdle, 0.20},
				{StateNetworking, 0.10},
				{StateMoving, 0.20},
			},
			StateNetworking: {
				{StateWorking, 0.40},
				{StateIdle, 0.20},
				{StateMeeting, 0.10},
				{StateMoving, 0.30},
			},
			StateMoving: {
				{StateWorking, 0.50},
				{StateIdle, 0.20},
				{StateMeeting, 0.15},
				{StateNetworking, 0.15},
			},
		},
	}
}

// WithOverrides returns a copy of the table with configured states merged in.
// Unknown state names are ignored; non-positive weights remove the edge.
func (t BehaviorTable) WithOverrides(overrides map[string]config.StateConfig) BehaviorTable {
	out := BehaviorTable{
		Durations:   make(map[AgentState]DurationRange, len(t.Durations)),
		Transitions: make(map[AgentState][]Transition, len(t.Transitions)),
	}
	for s, d := range t.Durations {
		out.Durations[s] = d
	}
	for s, row := range t.Transitions {
		out.Transitions[s] = append([]Transition(nil), row...)
	}

	for name, sc := range overrides {
		state := AgentState(name)
		if !isKnownState(state) {
			continue
		}

		d := out.Durations[state]
		if sc.MinSeconds > 0 {
			d.Min = sc.MinSeconds
		}
		if sc.MaxSeconds > 0 {
			d.Max = sc.MaxSeconds
		}
		if d.Max < d.Min {
			d.Max = d.Min
		}
		out.Durations[state] = d

		if len(sc.Weights) == 0 {
			continue
		}
		weights := make(map[AgentState]float64)
		for _, tr := range out.Transitions[state] {
			weights[tr.State] = tr.Weight
		}
		for next, w := range sc.Weights {
			if isKnownState(AgentState(next)) {
				weights[AgentState(next)] = w
			}
		}
		// Rebuild in canonical order so the walk is deterministic.
		row := make([]Transition, 0, len(weights))
		for _, s := range AllStates {
			if w, ok := weights[s]; ok && w > 0 {
				row = append(row, Transition{State: s, Weight: w})
			}
		}
		out.Transitions[state] = row
	}

	return out
}

// SampleDuration draws a duration in seconds for state, uniformly from its range.
func (t BehaviorTable) SampleDuration(state AgentState, rng RNG) float64 {
	d, ok := t.Durations[state]
	if !ok {
		d = t.Durations[StateIdle]
	}
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + rng.Float64()*(d.Max-d.Min)
}

// Next draws the state that follows current. Rows missing from the table fall
// back to the idle row. A draw that walks off the end of the row because of
// floating error picks the last entry.
func (t BehaviorTable) Next(current AgentState, rng RNG) AgentState {
	row, ok := t.Transitions[current]
	if !ok {
		row = t.Transitions[StateIdle]
	}
	if len(row) == 0 {
		return StateIdle
	}

	var total float64
	for _, tr := range row {
		total += tr.Weight
	}

	r := rng.Float64() * total
	for _, tr := range row {
		r -= tr.Weight
		if r <= 0 {
			return tr.State
		}
	}
	return row[len(row)-1].State
}

// Probabilities returns the normalized outgoing distribution of a state.
func (t BehaviorTable) Probabilities(state AgentState) map[AgentState]float64 {
	row := t.Transitions[state]
	var total float64
	for _, tr := range row {
		total += tr.Weight
	}
	out := make(map[AgentState]float64, len(row))
	if total <= 0 {
		return out
	}
	for _, tr := range row {
		out[tr.State] += tr.Weight / total
	}
	return out
}

func isKnownState(s AgentState) bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}
