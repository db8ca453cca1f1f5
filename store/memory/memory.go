// Package memory provides in-memory Snapshotter and RemoteStore
// implementations for tests and local development.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/persist"
)

// ErrNotFound is returned when updating or deleting a missing row.
var ErrNotFound = errors.New("remote habit not found")

// ErrDuplicate is returned when inserting an existing row.
var ErrDuplicate = errors.New("remote habit already exists")

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	snapshot []byte
	writes   int
	rows     map[string][]habit.Habit

	writeErr  error
	remoteErr error
}

var (
	_ persist.Snapshotter = (*Memory)(nil)
	_ persist.RemoteStore = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{rows: make(map[string][]habit.Habit)}
}

// FailWrites makes every snapshot write return err (nil to recover).
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// FailRemote makes every remote call return err (nil to recover).
func (m *Memory) FailRemote(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remoteErr = err
}

// Writes is the number of successful snapshot writes.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func (m *Memory) ReadSnapshot(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil, persist.ErrNoSnapshot
	}
	return append([]byte(nil), m.snapshot...), nil
}

func (m *Memory) WriteSnapshot(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.snapshot = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *Memory) DeleteSnapshot(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = nil
	return nil
}

// =============================================================================
// REMOTE ROWS
// =============================================================================

func (m *Memory) InsertHabit(_ context.Context, owner string, h habit.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.remoteErr != nil {
		return m.remoteErr
	}
	if indexOf(m.rows[owner], h.ID) >= 0 {
		return ErrDuplicate
	}
	m.rows[owner] = append(m.rows[owner], h.Clone())
	return nil
}

func (m *Memory) UpdateHabit(_ context.Context, owner string, h habit.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.remoteErr != nil {
		return m.remoteErr
	}
	i := indexOf(m.rows[owner], h.ID)
	if i < 0 {
		return ErrNotFound
	}
	m.rows[owner][i] = h.Clone()
	return nil
}

func (m *Memory) DeleteHabit(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.remoteErr != nil {
		return m.remoteErr
	}
	rows := m.rows[owner]
	i := indexOf(rows, id)
	if i < 0 {
		return ErrNotFound
	}
	m.rows[owner] = append(rows[:i:i], rows[i+1:]...)
	return nil
}

func (m *Memory) ListHabits(_ context.Context, owner string) ([]habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.remoteErr != nil {
		return nil, m.remoteErr
	}
	out := make([]habit.Habit, len(m.rows[owner]))
	for i, h := range m.rows[owner] {
		out[i] = h.Clone()
	}
	return out, nil
}

func indexOf(rows []habit.Habit, id string) int {
	for i, h := range rows {
		if h.ID == id {
			return i
		}
	}
	return -1
}
