package cache

import (
	"database/sql"
	"fmt"

	"questacademy/internal/database"
)

// Store is a local SQLite mirror of wallet counters. Writes land here first
// so the application keeps working when the remote store is unreachable; a
// dirty flag marks counters that still need to be pushed upstream.
type Store struct {
	db *database.DB
}

// Open creates or opens the local cache database at the given path
func Open(path string) (*Store, error) {
	db, err := database.Initialize(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS cached_counters (
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			value INTEGER NOT NULL DEFAULT 0,
			dirty INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, name)
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// DirtyCounter is a locally written counter value awaiting upload
type DirtyCounter struct {
	UserID int64
	Name   string
	Value  int64
}

// SetCounter raises a cached counter to at least value and marks it dirty.
// Cached counters never decrease; a stale write cannot undo progress.
func (s *Store) SetCounter(userID int64, name string, value int64) error {
	query := `
		INSERT INTO cached_counters (user_id, name, value, dirty)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (user_id, name) DO UPDATE SET
			value = MAX(cached_counters.value, excluded.value),
			dirty = 1,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.Exec(query, userID, name, value)
	return err
}

// MergeCounter raises a cached counter to at least value without marking it
// dirty. Used when pulling remote values down.
func (s *Store) MergeCounter(userID int64, name string, value int64) error {
	query := `
		INSERT INTO cached_counters (user_id, name, value, dirty)
		VALUES (?, ?, ?, 0)
		ON CONFLICT (user_id, name) DO UPDATE SET
			value = MAX(cached_counters.value, excluded.value),
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.Exec(query, userID, name, value)
	return err
}

// GetCounter returns the cached value for a counter, zero if absent
func (s *Store) GetCounter(userID int64, name string) (int64, error) {
	query := "SELECT value FROM cached_counters WHERE user_id = ? AND name = ?"
	var value int64
	err := s.db.QueryRow(query, userID, name).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// DirtyCounters returns all counters with unsynced local writes
func (s *Store) DirtyCounters() ([]DirtyCounter, error) {
	query := `
		SELECT user_id, name, value FROM cached_counters
		WHERE dirty = 1
		ORDER BY user_id, name
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dirty []DirtyCounter
	for rows.Next() {
		var d DirtyCounter
		if err := rows.Scan(&d.UserID, &d.Name, &d.Value); err != nil {
			return nil, err
		}
		dirty = append(dirty, d)
	}

	return dirty, rows.Err()
}

// Users returns the IDs of all users with cached counters
func (s *Store) Users() ([]int64, error) {
	rows, err := s.db.Query("SELECT DISTINCT user_id FROM cached_counters ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}

	return users, rows.Err()
}

// MarkClean clears the dirty flag after a successful push, but only if the
// value has not moved on since the push was read
func (s *Store) MarkClean(userID int64, name string, pushedValue int64) error {
	query := `
		UPDATE cached_counters SET dirty = 0
		WHERE user_id = ? AND name = ? AND value <= ?
	`
	_, err := s.db.Exec(query, userID, name, pushedValue)
	return err
}
