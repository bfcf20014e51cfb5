package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TaskStatus is the lifecycle stage of a recorded task.
type TaskStatus string

const (
	TaskStatusDelegated TaskStatus = "delegated"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is a recorded task and its latest status.
type Task struct {
	ID         string
	Floor      int
	Title      string
	Priority   string
	Source     string
	Complexity string
	Divisions  []string
	Status     TaskStatus
	Progress   int
	Detail     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaskEvent is one bus event recorded against a task.
type TaskEvent struct {
	ID        string
	TaskID    string
	Name      string
	Floor     int
	Payload   string
	CreatedAt time.Time
}

// EnsureTask creates a task row in the delegated state if it does not exist.
func (s *Store) EnsureTask(id string, floor int) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, floor, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, floor, TaskStatusDelegated, now, now)
	if err != nil {
		return fmt.Errorf("ensure task: %w", err)
	}
	return nil
}

// SaveTaskDetails stores the request and classification of a task without
// touching its status.
func (s *Store) SaveTaskDetails(t Task) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, floor, title, priority, source, complexity, divisions, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			priority = excluded.priority,
			source = excluded.source,
			complexity = excluded.complexity,
			divisions = excluded.divisions,
			updated_at = excluded.updated_at
	`, t.ID, t.Floor, t.Title, t.Priority, t.Source, t.Complexity, strings.Join(t.Divisions, ","), TaskStatusDelegated, now, now)
	if err != nil {
		return fmt.Errorf("save task details: %w", err)
	}
	return nil
}

// UpdateTaskProgress records a progress percentage. Finished tasks are left alone.
func (s *Store) UpdateTaskProgress(id string, progress int) error {
	_, err := s.db.Exec(`
		UPDATE tasks SET status = ?, progress = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, TaskStatusRunning, progress, time.Now().UTC(), id, TaskStatusDelegated, TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("update task progress: %w", err)
	}
	return nil
}

// FinishTask marks a task completed or failed with a result or reason.
func (s *Store) FinishTask(id string, status TaskStatus, detail string) error {
	progress := 0
	if status == TaskStatusCompleted {
		progress = 100
	}
	result, err := s.db.Exec(`
		UPDATE tasks SET status = ?, detail = ?, progress = MAX(progress, ?), updated_at = ?
		WHERE id = ?
	`, status, detail, progress, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`
		SELECT id, floor, title, priority, source, complexity, divisions, status, progress, detail, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	return scanTask(row)
}

// ListTasks returns the most recently created tasks first.
func (s *Store) ListTasks(limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, floor, title, priority, source, complexity, divisions, status, progress, detail, created_at, updated_at
		FROM tasks ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CountTasksByStatus returns how many tasks are in each status.
func (s *Store) CountTasksByStatus() (map[TaskStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[TaskStatus]int)
	for rows.Next() {
		var status TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan task count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// AddTaskEvent records a bus event against a task. The payload is stored as JSON.
func (s *Store) AddTaskEvent(taskID, name string, floor int, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	id := ulid.Make().String()
	_, err = s.db.Exec(`
		INSERT INTO task_events (id, task_id, name, floor, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, taskID, name, floor, string(data), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert task event: %w", err)
	}
	return id, nil
}

// ListTaskEvents returns the events of a task in the order they were recorded.
func (s *Store) ListTaskEvents(taskID string) ([]*TaskEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, task_id, name, floor, payload, created_at
		FROM task_events WHERE task_id = ? ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query task events: %w", err)
	}
	defer rows.Close()

	var events []*TaskEvent
	for rows.Next() {
		var e TaskEvent
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Name, &e.Floor, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*Task, error) {
	var t Task
	var divisions string
	err := row.Scan(&t.ID, &t.Floor, &t.Title, &t.Priority, &t.Source, &t.Complexity, &divisions,
		&t.Status, &t.Progress, &t.Detail, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if divisions != "" {
		t.Divisions = strings.Split(divisions, ",")
	}
	return &t, nil
}
