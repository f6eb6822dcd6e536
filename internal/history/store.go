package history

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNilDatabase is returned by queries on a Store without a database
var ErrNilDatabase = errors.New("history database is not open")

// Store records and queries playback events
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	db, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("history database opened", "path", path)
	return &Store{db: db}, nil
}

// NewStore wraps an already open database that has the history schema
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection
func (s *Store) DB() *sql.DB { return s.db }

// Record inserts event and returns its id. A zero timestamp means now.
func (s *Store) Record(event Event) (int64, error) {
	if s.db == nil {
		return 0, ErrNilDatabase
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	completed := 0
	if event.Completed {
		completed = 1
	}

	result, err := s.db.Exec(`
		INSERT INTO play_events (timestamp, kind, path, backend, format, frames, duration_ms, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Timestamp.Unix(),
		string(event.Kind),
		event.Path,
		event.Backend,
		event.Format,
		max(event.Frames, 0),
		max(event.Duration.Milliseconds(), 0),
		completed)
	if err != nil {
		return 0, fmt.Errorf("failed to insert play event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read play event id: %w", err)
	}

	slog.Debug("play event recorded", "id", id, "kind", event.Kind, "path", event.Path)
	return id, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
