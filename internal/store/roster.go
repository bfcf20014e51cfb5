package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RosterAgent is a persisted roster entry. Floor is nil when the agent has
// no home floor.
type RosterAgent struct {
	ID       string
	Floor    *int
	Division string
	Title    string
}

// SaveRoster replaces the stored roster with agents, keeping their order.
func (s *Store) SaveRoster(agents []RosterAgent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin roster tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM roster`); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}

	now := time.Now().UTC()
	for i, a := range agents {
		var floor sql.NullInt64
		if a.Floor != nil {
			floor = sql.NullInt64{Int64: int64(*a.Floor), Valid: true}
		}
		_, err := tx.Exec(`
			INSERT INTO roster (id, position, floor, division, title, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.ID, i, floor, a.Division, a.Title, now)
		if err != nil {
			return fmt.Errorf("insert roster agent %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// ListRoster returns the stored roster in saved order.
func (s *Store) ListRoster() ([]RosterAgent, error) {
	rows, err := s.db.Query(`
		SELECT id, floor, division, title
		FROM roster ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var agents []RosterAgent
	for rows.Next() {
		var a RosterAgent
		var floor sql.NullInt64
		if err := rows.Scan(&a.ID, &floor, &a.Division, &a.Title); err != nil {
			return nil, fmt.Errorf("scan roster agent: %w", err)
		}
		if floor.Valid {
			f := int(floor.Int64)
			a.Floor = &f
		}
		agents = append(agents, a)
	}

	return agents, rows.Err()
}

// CountRoster returns the number of stored roster entries.
func (s *Store) CountRoster() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM roster`).Scan(&count)
	return count, err
}
