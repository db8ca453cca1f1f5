/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements both persistence interfaces of the tracker using SQLite:

  persist.Snapshotter:  Whole-state snapshot blob (local cache)
  persist.RemoteStore:  One row per habit, owned by a user (remote table)

  The same Store type can serve either role. In a typical deployment the
  local snapshot lives in one database file and the remote table in
  another (see cmd/zenhabit/serve.go).

KEY TABLES:
  snapshots:  key -> serialized State. Writes replace the row completely.
  habits:     id, owner_id, position, name, category, data (JSON matrix).

ORDERING:
  Habit rows carry a position assigned on insert (max + 1 per owner), so
  ListHabits returns the owner's habits in insertion (display) order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In-memory databases are pinned to a
  single connection so every query sees the same database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/zenhabit.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - persist/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/persist"
)

// SnapshotKey names the single snapshot row.
const SnapshotKey = "zenhabit_persistence_v1"

var (
	// ErrHabitNotFound is returned when updating or deleting a missing row.
	ErrHabitNotFound = errors.New("remote habit not found")

	// ErrDuplicateHabit is returned when inserting an id that already exists.
	ErrDuplicateHabit = errors.New("remote habit already exists")
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ persist.Snapshotter = (*Store)(nil)
	_ persist.RemoteStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Whole-state snapshots (local cache)
	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Remote habit rows, one per habit and owner. Default habits share
	-- ids across owners.
	CREATE TABLE IF NOT EXISTS habits (
		id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (owner_id, id)
	);

	-- Owner listing in display order (hot path on load)
	CREATE INDEX IF NOT EXISTS idx_habits_owner_position
		ON habits(owner_id, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOTS (persist.Snapshotter interface)
// =============================================================================

// ReadSnapshot returns the stored snapshot or persist.ErrNoSnapshot.
func (s *Store) ReadSnapshot(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM snapshots WHERE key = ?", SnapshotKey,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, persist.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// WriteSnapshot replaces the stored snapshot.
func (s *Store) WriteSnapshot(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO snapshots (key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, SnapshotKey, string(data), now())
	return err
}

// DeleteSnapshot removes the stored snapshot, if any.
func (s *Store) DeleteSnapshot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", SnapshotKey)
	return err
}

// =============================================================================
// REMOTE HABITS (persist.RemoteStore interface)
// =============================================================================

// InsertHabit adds a row at the end of the owner's list.
func (s *Store) InsertHabit(ctx context.Context, owner string, h habit.Habit) error {
	data, err := json.Marshal(h.Data)
	if err != nil {
		return fmt.Errorf("failed to encode habit data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	query := `
		INSERT INTO habits (id, owner_id, position, name, category, data, created_at, updated_at)
		VALUES (?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM habits WHERE owner_id = ?),
			?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		h.ID, owner, owner, h.Name, string(h.Category), string(data), ts, ts,
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateHabit, h.ID)
	}
	return err
}

// UpdateHabit replaces name, category and data of an existing row.
func (s *Store) UpdateHabit(ctx context.Context, owner string, h habit.Habit) error {
	data, err := json.Marshal(h.Data)
	if err != nil {
		return fmt.Errorf("failed to encode habit data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE habits SET name = ?, category = ?, data = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		h.Name, string(h.Category), string(data), now(), h.ID, owner,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, h.ID)
}

// DeleteHabit removes a row.
func (s *Store) DeleteHabit(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM habits WHERE id = ? AND owner_id = ?", id, owner,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// ListHabits returns the owner's habits in insertion order.
func (s *Store) ListHabits(ctx context.Context, owner string) ([]habit.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, data FROM habits
		WHERE owner_id = ?
		ORDER BY position`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []habit.Habit
	for rows.Next() {
		var h habit.Habit
		var category, data string
		if err := rows.Scan(&h.ID, &h.Name, &category, &data); err != nil {
			return nil, err
		}
		h.Category = habit.Category(category)
		if err := json.Unmarshal([]byte(data), &h.Data); err != nil {
			return nil, fmt.Errorf("failed to decode habit %s data: %w", h.ID, err)
		}
		h.Data = h.Data.Normalize()
		h.Origin = habit.OriginRemote
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"snapshots", "habits"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrHabitNotFound, id)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
