/*
store.go - Persistence interfaces for snapshots and remote habit rows

KEY INTERFACES:
  Snapshotter:  Whole-state blob storage. Every write replaces the previous
                snapshot completely; there is no merge.
  RemoteStore:  One row per habit, keyed by (owner, id). Used only when a
                remote backend is configured and an owner is signed in.

IMPLEMENTATIONS:
  - persist/file.go:        Snapshotter on a local JSON file
  - store/sqlite/sqlite.go: Snapshotter + RemoteStore on SQLite
  - store/memory/memory.go: Snapshotter + RemoteStore in memory (tests/dev)
*/
package persist

import (
	"context"

	"github.com/warp/zenhabit/habit"
)

// Snapshotter stores the serialized State.
type Snapshotter interface {
	// ReadSnapshot returns ErrNoSnapshot when nothing has been written.
	ReadSnapshot(ctx context.Context) ([]byte, error)

	// WriteSnapshot overwrites any prior snapshot.
	WriteSnapshot(ctx context.Context, data []byte) error

	// DeleteSnapshot removes the snapshot. Deleting nothing is not an error.
	DeleteSnapshot(ctx context.Context) error
}

// RemoteStore mirrors habits as individual rows owned by a user.
type RemoteStore interface {
	InsertHabit(ctx context.Context, owner string, h habit.Habit) error
	UpdateHabit(ctx context.Context, owner string, h habit.Habit) error
	DeleteHabit(ctx context.Context, owner, id string) error

	// ListHabits returns the owner's habits in insertion order.
	ListHabits(ctx context.Context, owner string) ([]habit.Habit, error)
}

// RemoteOp is a single-habit remote operation.
type RemoteOp string

const (
	OpInsert RemoteOp = "insert"
	OpUpdate RemoteOp = "update"
	OpDelete RemoteOp = "delete"
)
