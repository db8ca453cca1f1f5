package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/persist"
	"github.com/warp/zenhabit/store/sqlite"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleHabit(id, name string) habit.Habit {
	h := habit.Habit{ID: id, Name: name, Category: habit.CategoryMind, Data: habit.NewMatrix(), Origin: habit.OriginLocal}
	h.Data[3][14] = true
	return h
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func TestSnapshot_ReadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ReadSnapshot(context.Background())
	assert.ErrorIs(t, err, persist.ErrNoSnapshot)
}

func TestSnapshot_WriteOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteSnapshot(ctx, []byte(`{"habits":[]}`)))
	require.NoError(t, store.WriteSnapshot(ctx, []byte(`{"habits":[],"year":2027}`)))

	data, err := store.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"habits":[],"year":2027}`, string(data))

	require.NoError(t, store.DeleteSnapshot(ctx))
	_, err = store.ReadSnapshot(ctx)
	assert.ErrorIs(t, err, persist.ErrNoSnapshot)
}

func TestSnapshot_FileDatabaseSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zenhabit.db")

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.WriteSnapshot(ctx, []byte(`{"habits":[]}`)))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"habits":[]}`, string(data))
}

// =============================================================================
// REMOTE HABITS
// =============================================================================

func TestHabits_InsertListInOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.InsertHabit(ctx, "alice", sampleHabit("b", "Second added first")))
	require.NoError(t, store.InsertHabit(ctx, "alice", sampleHabit("a", "Added second")))
	require.NoError(t, store.InsertHabit(ctx, "bob", sampleHabit("c", "Bob's")))

	habits, err := store.ListHabits(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, "b", habits[0].ID)
	assert.Equal(t, "a", habits[1].ID)
	assert.True(t, habits[0].Data[3][14])
	assert.True(t, habits[0].Data.WellFormed())
	assert.Equal(t, habit.OriginRemote, habits[0].Origin)
}

func TestHabits_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.InsertHabit(ctx, "alice", sampleHabit("a", "x")))
	err := store.InsertHabit(ctx, "alice", sampleHabit("a", "x"))
	assert.ErrorIs(t, err, sqlite.ErrDuplicateHabit)
}

func TestHabits_SameIDForDifferentOwners(t *testing.T) {
	// GIVEN: two accounts that both start from the default habit "1"
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.InsertHabit(ctx, "alice", sampleHabit("1", "Read 20 Pages")))

	// WHEN
	err := store.InsertHabit(ctx, "bob", sampleHabit("1", "Read 20 Pages"))

	// THEN: each owner gets a row and updates stay scoped
	require.NoError(t, err)
	h := sampleHabit("1", "Read 30 Pages")
	require.NoError(t, store.UpdateHabit(ctx, "bob", h))

	alice, err := store.ListHabits(ctx, "alice")
	require.NoError(t, err)
	bob, err := store.ListHabits(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	require.Len(t, bob, 1)
	assert.Equal(t, "Read 20 Pages", alice[0].Name)
	assert.Equal(t, "Read 30 Pages", bob[0].Name)

	require.NoError(t, store.DeleteHabit(ctx, "alice", "1"))
	bob, err = store.ListHabits(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob, 1)
}

func TestHabits_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	h := sampleHabit("a", "Meditate")
	require.NoError(t, store.InsertHabit(ctx, "alice", h))

	// WHEN: the habit is renamed and another day is ticked
	h.Name = "Meditate 20m"
	h.Data[0][0] = true
	require.NoError(t, store.UpdateHabit(ctx, "alice", h))

	habits, err := store.ListHabits(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, "Meditate 20m", habits[0].Name)
	assert.True(t, habits[0].Data[0][0])

	// Another owner can't touch it
	assert.ErrorIs(t, store.UpdateHabit(ctx, "bob", h), sqlite.ErrHabitNotFound)
	assert.ErrorIs(t, store.DeleteHabit(ctx, "bob", "a"), sqlite.ErrHabitNotFound)

	require.NoError(t, store.DeleteHabit(ctx, "alice", "a"))
	habits, err = store.ListHabits(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, habits)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.WriteSnapshot(ctx, []byte(`{}`)))
	require.NoError(t, store.InsertHabit(ctx, "alice", sampleHabit("a", "x")))

	require.NoError(t, store.Reset(ctx))

	_, err := store.ReadSnapshot(ctx)
	assert.ErrorIs(t, err, persist.ErrNoSnapshot)
	habits, _ := store.ListHabits(ctx, "alice")
	assert.Empty(t, habits)
}

// =============================================================================
// ADAPTER INTEGRATION
// =============================================================================

func TestAdapter_RoundTripThroughSQLite(t *testing.T) {
	// GIVEN: an adapter using SQLite for both snapshot and remote rows
	ctx := context.Background()
	store := newTestStore(t)
	a := persist.NewAdapter(persist.Options{
		Snapshots: store,
		Remote:    store,
		Debounce:  time.Hour,
		Year:      2026,
		Logger:    zaptest.NewLogger(t),
	})
	defer a.Close(ctx)

	s := habit.DefaultState(2026, 0)
	s, _ = habit.ToggleDay(s, "2", 6, 6)
	s, err := habit.SetReflection(s, 6, habit.FieldImprovements, "earlier nights")
	require.NoError(t, err)

	// WHEN: the state is saved and loaded back
	a.Save(s)
	require.NoError(t, a.Flush(ctx))
	loaded := a.Load(ctx, "")

	// THEN
	assert.Equal(t, s, loaded)

	// AND: once alice has remote rows they win on load
	require.NoError(t, a.Push(ctx, persist.OpInsert, "alice", sampleHabit("r1", "Remote habit")))
	remote := a.Load(ctx, "alice")
	require.Len(t, remote.Habits, 1)
	assert.Equal(t, "Remote habit", remote.Habits[0].Name)
	assert.Equal(t, s.Reflections, remote.Reflections)
}
