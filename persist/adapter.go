/*
adapter.go - Durable round-trip of State

PURPOSE:
  Mirrors the in-memory State to a Snapshotter and, optionally, pushes
  individual habit operations to a RemoteStore. The adapter never owns the
  State: it receives copies through Save and hands one back from Load.

WRITE PATH:
  Save(state) records state as pending and (re)starts the debounce timer.
  When the timer fires, the latest pending state is encoded and written.
  Writes are serialized and always take the newest pending state, so the
  last Save before the user stops is the one that ends up stored.

  Flush writes the pending state immediately (shutdown, CLI). Close
  flushes and stops the timer goroutine.

FAILURES:
  Snapshot and remote failures become PersistenceError values that are
  logged, counted and reflected in Status. They never undo the in-memory
  mutation and never reach the HTTP layer.

LOAD:
  Load reads the snapshot once at startup. A missing or unreadable
  snapshot yields the default State. When a remote store is configured
  and an owner is signed in, non-empty remote rows replace the habits.
*/
package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultDebounce coalesces rapid toggles.
	DefaultDebounce = 500 * time.Millisecond

	writeTimeout = 10 * time.Second
)

// SyncState is the coarse "synced" indicator.
type SyncState string

const (
	StatusSaved  SyncState = "saved"
	StatusSaving SyncState = "saving"
	StatusError  SyncState = "error"
)

// Status reports the outcome of the most recent write.
type Status struct {
	State       SyncState
	LastError   string
	LastSavedAt time.Time
}

// Options configures an Adapter.
type Options struct {
	Snapshots Snapshotter
	Remote    RemoteStore // nil disables remote mode
	Debounce  time.Duration
	Year      int
	Now       func() time.Time
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Adapter synchronizes State with durable storage.
type Adapter struct {
	snapshots Snapshotter
	remote    RemoteStore
	year      int
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics
	debouncer *Debouncer

	writeMu sync.Mutex // serializes snapshot writes

	mu      sync.Mutex
	pending *habit.State
	status  Status
}

// NewAdapter creates an adapter. Snapshots is required.
func NewAdapter(opts Options) *Adapter {
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Year == 0 {
		opts.Year = habit.DefaultYear
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	a := &Adapter{
		snapshots: opts.Snapshots,
		remote:    opts.Remote,
		year:      opts.Year,
		now:       opts.Now,
		logger:    opts.Logger.Named("persist"),
		metrics:   opts.Metrics,
		status:    Status{State: StatusSaved},
	}
	a.debouncer = NewDebouncer(opts.Debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		_ = a.writePending(ctx)
	})
	return a
}

// Year is the tracked year used for defaults and legacy payloads.
func (a *Adapter) Year() int {
	return a.year
}

// DefaultState is the state used when nothing could be loaded.
func (a *Adapter) DefaultState() habit.State {
	return habit.DefaultState(a.year, habit.TodayMonth(a.year, a.now()))
}

// =============================================================================
// LOAD
// =============================================================================

// Load hydrates the State. It never fails: problems are logged and the
// default State is used instead.
func (a *Adapter) Load(ctx context.Context, owner string) habit.State {
	s := a.loadSnapshot(ctx)
	return a.Reconcile(ctx, s, owner)
}

func (a *Adapter) loadSnapshot(ctx context.Context) habit.State {
	data, err := a.snapshots.ReadSnapshot(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		a.logger.Info("no snapshot stored, starting from defaults")
		return a.DefaultState()
	}
	if err != nil {
		a.logger.Error("failed to read snapshot, starting from defaults",
			zap.Error(&PersistenceError{Op: "read", Err: err}))
		return a.DefaultState()
	}

	s, err := Decode(data, a.year)
	if err != nil {
		a.logger.Error("failed to parse snapshot, starting from defaults", zap.Error(err))
		return a.DefaultState()
	}
	return s
}

// Reconcile replaces the habits of s with the owner's remote rows when
// remote mode is active and the remote table is not empty.
func (a *Adapter) Reconcile(ctx context.Context, s habit.State, owner string) habit.State {
	if !a.RemoteEnabled() || owner == "" {
		return s
	}
	rows, err := a.ListRemote(ctx, owner)
	if err != nil || len(rows) == 0 {
		return s
	}
	a.logger.Info("hydrated habits from remote", zap.String("owner", owner), zap.Int("habits", len(rows)))
	return habit.ReplaceHabits(s, rows)
}

// =============================================================================
// SAVE
// =============================================================================

// Save schedules a debounced write of s, superseding any pending write.
func (a *Adapter) Save(s habit.State) {
	a.mu.Lock()
	a.pending = &s
	a.status.State = StatusSaving
	a.mu.Unlock()

	a.debouncer.Trigger()
}

// Flush writes the pending state now, if there is one.
func (a *Adapter) Flush(ctx context.Context) error {
	a.debouncer.Cancel()
	return a.writePending(ctx)
}

// Close flushes and stops the debounce timer.
func (a *Adapter) Close(ctx context.Context) error {
	a.debouncer.Close()
	return a.writePending(ctx)
}

// Write stores s immediately, bypassing the debounce.
func (a *Adapter) Write(ctx context.Context, s habit.State) error {
	a.mu.Lock()
	a.pending = &s
	a.mu.Unlock()
	return a.Flush(ctx)
}

// Status returns the current sync status.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Reset discards the pending write and deletes the stored snapshot.
func (a *Adapter) Reset(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.debouncer.Cancel()
	a.mu.Lock()
	a.pending = nil
	a.status.State = StatusSaved
	a.status.LastError = ""
	a.mu.Unlock()

	if err := a.snapshots.DeleteSnapshot(ctx); err != nil {
		perr := &PersistenceError{Op: "delete", Err: err}
		a.logger.Error("failed to delete snapshot", zap.Error(perr))
		return perr
	}
	return nil
}

func (a *Adapter) writePending(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	s := a.pending
	a.pending = nil
	a.mu.Unlock()
	if s == nil {
		return nil
	}

	start := time.Now()
	err := a.write(ctx, *s)
	a.metrics.SnapshotWrite(time.Since(start), err)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.status.LastError = err.Error()
		if a.pending == nil {
			a.status.State = StatusError
		}
		a.logger.Error("snapshot write failed", zap.Error(err))
		return err
	}
	a.status.LastError = ""
	a.status.LastSavedAt = a.now()
	if a.pending == nil {
		a.status.State = StatusSaved
	}
	return nil
}

func (a *Adapter) write(ctx context.Context, s habit.State) error {
	data, err := Encode(s)
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}
	if err := a.snapshots.WriteSnapshot(ctx, data); err != nil {
		return &PersistenceError{Op: "write", Err: err}
	}
	return nil
}

// =============================================================================
// REMOTE
// =============================================================================

// RemoteEnabled reports whether a remote store is configured.
func (a *Adapter) RemoteEnabled() bool {
	return a.remote != nil
}

// ListRemote returns the owner's remote rows, all marked remote. It returns
// nothing when remote mode is off or nobody is signed in.
func (a *Adapter) ListRemote(ctx context.Context, owner string) ([]habit.Habit, error) {
	if !a.RemoteEnabled() || owner == "" {
		return nil, nil
	}
	rows, err := a.remote.ListHabits(ctx, owner)
	a.metrics.RemoteOp("list", err)
	if err != nil {
		perr := &PersistenceError{Op: "remote list", Err: err}
		a.logger.Warn("failed to list remote habits", zap.String("owner", owner), zap.Error(perr))
		return nil, perr
	}
	for i := range rows {
		rows[i].Origin = habit.OriginRemote
	}
	return rows, nil
}

// Push applies one habit operation to the remote table. It is a no-op when
// remote mode is off or nobody is signed in. Failures are logged and
// returned so the caller can keep the habit marked local.
func (a *Adapter) Push(ctx context.Context, op RemoteOp, owner string, h habit.Habit) error {
	if !a.RemoteEnabled() || owner == "" {
		return nil
	}

	var err error
	switch op {
	case OpInsert:
		err = a.remote.InsertHabit(ctx, owner, h)
	case OpUpdate:
		err = a.remote.UpdateHabit(ctx, owner, h)
	case OpDelete:
		err = a.remote.DeleteHabit(ctx, owner, h.ID)
	default:
		err = errors.New("unknown remote operation " + string(op))
	}
	a.metrics.RemoteOp(string(op), err)

	if err != nil {
		perr := &PersistenceError{Op: "remote " + string(op), Err: err}
		a.logger.Warn("remote sync failed",
			zap.String("habit_id", h.ID),
			zap.String("owner", owner),
			zap.Error(perr))
		return perr
	}
	return nil
}
