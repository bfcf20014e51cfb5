package core

import (
	"sort"
	"time"
)

// TimerID identifies a scheduled timer.
type TimerID uint64

type timer struct {
	remain   time.Duration
	period   time.Duration
	callback func()
}

// Timers is a timer facility driven by simulated time. It is advanced by the
// simulation clock, so callbacks run on the simulation goroutine and need no
// locking. Intervals are measured in elapsed time, not in frames.
type Timers struct {
	now    time.Duration
	nextID TimerID
	timers map[TimerID]*timer
	tocall []TimerID
}

// NewTimers creates an empty timer facility.
func NewTimers() *Timers {
	return &Timers{timers: make(map[TimerID]*timer)}
}

// Now returns the total simulated time advanced so far.
func (t *Timers) Now() time.Duration { return t.now }

// Len returns the number of live timers.
func (t *Timers) Len() int { return len(t.timers) }

// After schedules a one-shot callback after d of simulated time.
// Panics if d is not positive.
func (t *Timers) After(d time.Duration, callback func()) TimerID {
	if d <= 0 {
		panic("invalid timer duration")
	}
	return t.add(&timer{remain: d, callback: callback})
}

// Every schedules a callback every d of simulated time until cancelled.
// Panics if d is not positive.
func (t *Timers) Every(d time.Duration, callback func()) TimerID {
	if d <= 0 {
		panic("invalid timer duration")
	}
	return t.add(&timer{remain: d, period: d, callback: callback})
}

func (t *Timers) add(tm *timer) TimerID {
	t.nextID++
	t.timers[t.nextID] = tm
	return t.nextID
}

// Cancel removes a timer, returning true only if it was still live.
func (t *Timers) Cancel(id TimerID) bool {
	if _, ok := t.timers[id]; !ok {
		return false
	}
	delete(t.timers, id)
	return true
}

// Advance moves simulated time forward and fires every timer whose time has
// come, oldest timer first. A periodic timer fires once per elapsed period.
//
// Callbacks run in one batch after all expirations are collected, so a
// callback may cancel its own timer or another; a timer cancelled by an
// earlier callback in the batch does not fire again.
func (t *Timers) Advance(delta time.Duration) {
	if delta <= 0 {
		return
	}
	t.now += delta

	ids := make([]TimerID, 0, len(t.timers))
	for id := range t.timers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	t.tocall = t.tocall[:0]
	for _, id := range ids {
		tm := t.timers[id]
		tm.remain -= delta
		for tm.remain <= 0 {
			t.tocall = append(t.tocall, id)
			if tm.period == 0 {
				break
			}
			tm.remain += tm.period
		}
	}

	// Callbacks may schedule new timers, which reuse t.tocall on a nested
	// Advance; copy the batch first.
	batch := append([]TimerID(nil), t.tocall...)
	for _, id := range batch {
		tm, ok := t.timers[id]
		if !ok {
			continue
		}
		if tm.period == 0 {
			delete(t.timers, id)
		}
		tm.callback()
	}
}
