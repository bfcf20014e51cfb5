package store

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/xonecas/zoea-tower/internal/core"
)

// Recorder persists task lifecycle events from the bus. It reads from a bus
// subscription so the simulation never waits on the database.
type Recorder struct {
	store *Store
}

// NewRecorder creates a recorder writing to s.
func NewRecorder(s *Store) *Recorder {
	return &Recorder{store: s}
}

// Consume records events from a bus subscription until ctx is cancelled or
// the channel is closed.
func (r *Recorder) Consume(ctx context.Context, events <-chan core.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := r.Record(e); err != nil {
				log.Warn().Err(err).Str("event", e.Name).Msg("Failed to record event")
			}
		}
	}
}

// Record persists a single event. Events that are not about a task are ignored.
func (r *Recorder) Record(e core.Event) error {
	taskID, floor, ok := taskOf(e)
	if !ok {
		return nil
	}

	if e.Name == core.EventTaskDelegated {
		if err := r.store.EnsureTask(taskID, floor); err != nil {
			return err
		}
	}
	if _, err := r.store.AddTaskEvent(taskID, e.Name, floor, e.Data); err != nil {
		return err
	}

	switch data := e.Data.(type) {
	case core.ProgressData:
		return r.store.UpdateTaskProgress(taskID, data.Progress)
	case core.CompletedData:
		return r.store.FinishTask(taskID, TaskStatusCompleted, data.Result)
	case core.FailedData:
		return r.store.FinishTask(taskID, TaskStatusFailed, data.Reason)
	}
	return nil
}

// RecordSubmission stores the request and classification of a submitted task.
func (r *Recorder) RecordSubmission(floor int, t core.Task) error {
	divs := make([]string, len(t.Divisions))
	for i, d := range t.Divisions {
		divs[i] = string(d)
	}
	return r.store.SaveTaskDetails(Task{
		ID:         t.ID,
		Floor:      floor,
		Title:      t.Title,
		Priority:   string(t.Priority),
		Source:     t.Source,
		Complexity: string(t.Complexity),
		Divisions:  divs,
	})
}

func taskOf(e core.Event) (string, int, bool) {
	switch data := e.Data.(type) {
	case core.DelegatedData:
		return data.TaskID, data.Floor, true
	case core.ProgressData:
		return data.TaskID, data.Floor, true
	case core.CompletedData:
		return data.TaskID, data.Floor, true
	case core.FailedData:
		return data.TaskID, data.Floor, true
	case core.SwarmedData:
		return data.TaskID, data.Floor, true
	case core.SwarmRequestData:
		return data.TaskID, data.RequestingFloor, true
	case core.SwarmResponseData:
		return data.TaskID, data.FromFloor, true
	}
	return "", 0, false
}
