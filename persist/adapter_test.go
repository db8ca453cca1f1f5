package persist_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/persist"
	"github.com/warp/zenhabit/store/memory"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var march10 = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func newAdapter(t *testing.T, mem *memory.Memory, remote bool, debounce time.Duration) *persist.Adapter {
	t.Helper()
	opts := persist.Options{
		Snapshots: mem,
		Debounce:  debounce,
		Year:      2026,
		Now:       func() time.Time { return march10 },
		Logger:    zaptest.NewLogger(t),
	}
	if remote {
		opts.Remote = mem
	}
	a := persist.NewAdapter(opts)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func storedState(t *testing.T, mem *memory.Memory) habit.State {
	t.Helper()
	data, err := mem.ReadSnapshot(context.Background())
	require.NoError(t, err)
	s, err := persist.Decode(data, 2026)
	require.NoError(t, err)
	return s
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_MissingSnapshotYieldsDefault(t *testing.T) {
	mem := memory.New()
	a := newAdapter(t, mem, false, time.Millisecond)

	s := a.Load(context.Background(), "")

	assert.Len(t, s.Habits, 15)
	assert.Equal(t, 2, s.CurrentMonth, "defaults open on the current month")
	assert.Equal(t, 2026, s.Year)
}

func TestLoad_CorruptSnapshotYieldsDefault(t *testing.T) {
	mem := memory.New()
	require.NoError(t, mem.WriteSnapshot(context.Background(), []byte("{not json")))
	a := newAdapter(t, mem, false, time.Millisecond)

	s := a.Load(context.Background(), "")
	assert.Equal(t, a.DefaultState(), s)
}

func TestLoad_StoredSnapshot(t *testing.T) {
	mem := memory.New()
	want := sampleState(t)
	data, err := persist.Encode(want)
	require.NoError(t, err)
	require.NoError(t, mem.WriteSnapshot(context.Background(), data))

	a := newAdapter(t, mem, false, time.Millisecond)
	assert.Equal(t, want, a.Load(context.Background(), ""))
}

func TestLoad_RemoteRowsReplaceHabits(t *testing.T) {
	// GIVEN: a local snapshot and one remote row for "alice"
	ctx := context.Background()
	mem := memory.New()
	local := sampleState(t)
	data, _ := persist.Encode(local)
	require.NoError(t, mem.WriteSnapshot(ctx, data))

	row := habit.Habit{ID: "r-1", Name: "Swim", Category: habit.CategoryHealth, Data: habit.NewMatrix()}
	require.NoError(t, mem.InsertHabit(ctx, "alice", row))

	a := newAdapter(t, mem, true, time.Millisecond)

	// WHEN
	s := a.Load(ctx, "alice")

	// THEN: habits come from the remote table, reflections stay local
	require.Len(t, s.Habits, 1)
	assert.Equal(t, "Swim", s.Habits[0].Name)
	assert.Equal(t, habit.OriginRemote, s.Habits[0].Origin)
	assert.Equal(t, local.Reflections, s.Reflections)

	// Nobody signed in: local snapshot only
	assert.Len(t, a.Load(ctx, "").Habits, len(local.Habits))
}

func TestLoad_RemoteFailureKeepsLocal(t *testing.T) {
	mem := memory.New()
	mem.FailRemote(errors.New("network down"))
	a := newAdapter(t, mem, true, time.Millisecond)

	s := a.Load(context.Background(), "alice")
	assert.Len(t, s.Habits, 15)
}

// =============================================================================
// SAVE
// =============================================================================

func TestSave_DebouncesBursts(t *testing.T) {
	// GIVEN: a 200ms debounce
	mem := memory.New()
	a := newAdapter(t, mem, false, 200*time.Millisecond)
	s := habit.DefaultState(2026, 0)

	// WHEN: ten toggles arrive in a burst
	for d := 0; d < 10; d++ {
		s, _ = habit.ToggleDay(s, "1", 0, d)
		a.Save(s)
	}
	assert.Equal(t, persist.StatusSaving, a.Status().State)

	// THEN: exactly one write happens and it holds the final state
	require.Eventually(t, func() bool { return mem.Writes() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, s, storedState(t, mem))
	require.Eventually(t, func() bool { return a.Status().State == persist.StatusSaved }, time.Second, 5*time.Millisecond)
	assert.Equal(t, march10, a.Status().LastSavedAt)
}

func TestFlush_WritesPendingImmediately(t *testing.T) {
	mem := memory.New()
	a := newAdapter(t, mem, false, time.Hour)
	s := sampleState(t)

	a.Save(s)
	require.NoError(t, a.Flush(context.Background()))

	assert.Equal(t, 1, mem.Writes())
	assert.Equal(t, s, storedState(t, mem))

	require.NoError(t, a.Flush(context.Background()), "nothing pending")
	assert.Equal(t, 1, mem.Writes())
}

func TestClose_FlushesLastState(t *testing.T) {
	mem := memory.New()
	a := persist.NewAdapter(persist.Options{Snapshots: mem, Debounce: time.Hour, Logger: zaptest.NewLogger(t)})
	s := sampleState(t)

	a.Save(s)
	require.NoError(t, a.Close(context.Background()))

	assert.Equal(t, s, storedState(t, mem))

	a.Save(habit.DefaultState(2026, 0))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, mem.Writes(), "saves after Close only stay pending")
}

func TestSave_WriteFailureIsReported(t *testing.T) {
	mem := memory.New()
	mem.FailWrites(errors.New("quota exceeded"))
	a := newAdapter(t, mem, false, time.Hour)

	a.Save(habit.DefaultState(2026, 0))
	err := a.Flush(context.Background())

	assert.ErrorIs(t, err, persist.ErrPersistence)
	st := a.Status()
	assert.Equal(t, persist.StatusError, st.State)
	assert.Contains(t, st.LastError, "quota exceeded")

	// Recovery on the next write
	mem.FailWrites(nil)
	a.Save(habit.DefaultState(2026, 1))
	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, persist.StatusSaved, a.Status().State)
	assert.Empty(t, a.Status().LastError)
}

func TestReset_DeletesSnapshotAndPending(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	a := newAdapter(t, mem, false, time.Hour)

	require.NoError(t, a.Write(ctx, sampleState(t)))
	a.Save(habit.DefaultState(2026, 0))
	require.Equal(t, persist.StatusSaving, a.Status().State)

	require.NoError(t, a.Reset(ctx))
	assert.Equal(t, persist.StatusSaved, a.Status().State, "nothing is left to save")
	require.NoError(t, a.Flush(ctx))

	_, err := mem.ReadSnapshot(ctx)
	assert.ErrorIs(t, err, persist.ErrNoSnapshot)
}

func TestReset_ClearsWriteError(t *testing.T) {
	// GIVEN: a failed write
	ctx := context.Background()
	mem := memory.New()
	a := newAdapter(t, mem, false, time.Hour)
	mem.FailWrites(errors.New("disk full"))
	a.Save(sampleState(t))
	require.Error(t, a.Flush(ctx))
	require.Equal(t, persist.StatusError, a.Status().State)

	// WHEN
	require.NoError(t, a.Reset(ctx))

	// THEN
	status := a.Status()
	assert.Equal(t, persist.StatusSaved, status.State)
	assert.Empty(t, status.LastError)
}

// =============================================================================
// REMOTE
// =============================================================================

func TestPush_DisabledOrSignedOut(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	h := habit.Habit{ID: "x", Name: "x", Category: habit.CategoryMind, Data: habit.NewMatrix()}

	off := newAdapter(t, mem, false, time.Millisecond)
	require.NoError(t, off.Push(ctx, persist.OpInsert, "alice", h))

	on := newAdapter(t, mem, true, time.Millisecond)
	require.NoError(t, on.Push(ctx, persist.OpInsert, "", h))

	rows, _ := mem.ListHabits(ctx, "alice")
	assert.Empty(t, rows)
}

func TestPush_Operations(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	a := newAdapter(t, mem, true, time.Millisecond)
	h := habit.Habit{ID: "x", Name: "Stretch", Category: habit.CategoryHealth, Data: habit.NewMatrix()}

	require.NoError(t, a.Push(ctx, persist.OpInsert, "alice", h))
	h.Name = "Yoga"
	require.NoError(t, a.Push(ctx, persist.OpUpdate, "alice", h))

	rows, _ := mem.ListHabits(ctx, "alice")
	require.Len(t, rows, 1)
	assert.Equal(t, "Yoga", rows[0].Name)

	require.NoError(t, a.Push(ctx, persist.OpDelete, "alice", h))
	rows, _ = mem.ListHabits(ctx, "alice")
	assert.Empty(t, rows)
}

func TestPush_FailureIsPersistenceError(t *testing.T) {
	mem := memory.New()
	mem.FailRemote(errors.New("503"))
	a := newAdapter(t, mem, true, time.Millisecond)

	err := a.Push(context.Background(), persist.OpUpdate, "alice", habit.Habit{ID: "x"})

	var perr *persist.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "remote update", perr.Op)
}

// =============================================================================
// FILE SNAPSHOTTER
// =============================================================================

func TestFileSnapshotter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "zenhabit.json")
	f, err := persist.NewFileSnapshotter(path)
	require.NoError(t, err)

	_, err = f.ReadSnapshot(ctx)
	assert.ErrorIs(t, err, persist.ErrNoSnapshot)

	require.NoError(t, f.WriteSnapshot(ctx, []byte(`{"habits":[]}`)))
	require.NoError(t, f.WriteSnapshot(ctx, []byte(`{"habits":[1]}`)))
	data, err := f.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"habits":[1]}`, string(data), "writes overwrite completely")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, f.DeleteSnapshot(ctx))
	require.NoError(t, f.DeleteSnapshot(ctx))
	_, err = f.ReadSnapshot(ctx)
	assert.ErrorIs(t, err, persist.ErrNoSnapshot)
}

// =============================================================================
// DEBOUNCER
// =============================================================================

func TestDebouncer_LastTriggerWins(t *testing.T) {
	calls := make(chan struct{}, 10)
	d := persist.NewDebouncer(50*time.Millisecond, func() { calls <- struct{}{} })
	defer d.Close()

	for i := 0; i < 5; i++ {
		d.Trigger()
	}

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never ran")
	}
	select {
	case <-calls:
		t.Fatal("burst produced more than one call")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_CloseCancelsPending(t *testing.T) {
	ran := make(chan struct{}, 1)
	d := persist.NewDebouncer(time.Hour, func() { ran <- struct{}{} })

	d.Trigger()
	d.Close()
	d.Trigger()

	select {
	case <-ran:
		t.Fatal("cancelled call ran")
	default:
	}
}
