/*
session.go - The tracker's single mutable State

PURPOSE:
  Session owns the current habit.State. Every operation applies a pure
  reducer from package habit, swaps the result in, schedules a debounced
  snapshot write and, for habit operations, queues a remote push.

REMOTE SYNC:
  Pushes run on one worker goroutine in FIFO order. The worker resolves the
  operation against the CURRENT state when it runs, not when it was queued:

    - update/toggle of a local-origin habit becomes an insert
    - insert of a habit that is already remote becomes an update
    - insert/update of a habit that no longer exists is skipped
    - a successful insert flips the habit to remote origin (MarkRemote)

  Deleting a local-origin habit issues no remote call. If a habit is deleted
  while its insert is in flight, the fresh row is deleted right after.

  Import rebuilds the owner's rows: every existing row is deleted and the
  imported habits are inserted in display order.

  Remote failures are logged by the adapter and never undo the local
  mutation; the habit simply stays local and is retried on its next change.
  Mutations never wait on the worker: when the queue is full the push is
  dropped and counted, with the same retry-on-next-change outcome.

SEE ALSO:
  - habit/reducers.go: The state transitions
  - persist/adapter.go: Debounced snapshot writes and remote pushes
*/
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/metrics"
	"github.com/warp/zenhabit/persist"
	"go.uber.org/zap"
)

const (
	queueSize     = 256
	remoteTimeout = 15 * time.Second
)

// ErrClosed is returned by Sync after Close.
var ErrClosed = errors.New("session closed")

// errQueueFull is recorded for pushes dropped because the worker is behind.
var errQueueFull = errors.New("remote push queue full")

// opReplace rebuilds all of an owner's rows from the current habits.
const opReplace persist.RemoteOp = "replace"

// Options configures a Session.
type Options struct {
	Adapter *persist.Adapter
	Owner   string // signed-in owner at startup, optional
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type job struct {
	op      persist.RemoteOp
	owner   string
	habit   habit.Habit   // full habit only for deletes, the id otherwise
	barrier chan struct{} // Sync marker
}

// Session is safe for concurrent use.
type Session struct {
	adapter *persist.Adapter
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	state habit.State
	owner string

	queue     chan job
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New loads the state through the adapter and starts the push worker.
func New(ctx context.Context, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		adapter: opts.Adapter,
		now:     opts.Now,
		logger:  opts.Logger.Named("session"),
		metrics: opts.Metrics,
		owner:   opts.Owner,
		queue:   make(chan job, queueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.state = opts.Adapter.Load(ctx, opts.Owner)
	s.metrics.SetHabits(len(s.state.Habits))

	go s.work()
	return s
}

// State returns the current state. Callers must treat it as read-only.
func (s *Session) State() habit.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Year is the tracked year.
func (s *Session) Year() int {
	return s.State().Year
}

// Status reports the snapshot sync indicator.
func (s *Session) Status() persist.Status {
	return s.adapter.Status()
}

// commit swaps in next and schedules the save. Caller holds s.mu.
func (s *Session) commit(op string, next habit.State) {
	s.state = next
	s.adapter.Save(next)
	s.metrics.Mutation(op)
	s.metrics.SetHabits(len(next.Habits))
}

// =============================================================================
// HABITS
// =============================================================================

// Toggle flips one day of a habit and returns the updated habit.
func (s *Session) Toggle(id string, month, day int) (habit.Habit, error) {
	s.mu.Lock()
	next, ok := habit.ToggleDay(s.state, id, month, day)
	if !ok {
		_, exists := s.state.Habit(id)
		s.mu.Unlock()
		if !exists {
			return habit.Habit{}, habit.ErrHabitNotFound
		}
		return habit.Habit{}, habit.ErrInvalidCoordinate
	}
	s.commit("toggle", next)
	h, _ := next.Habit(id)
	owner := s.owner
	s.mu.Unlock()

	s.enqueue(job{op: persist.OpUpdate, owner: owner, habit: habit.Habit{ID: id}})
	return h, nil
}

// AddHabit appends a habit with a fresh id.
func (s *Session) AddHabit(name string, category habit.Category) (habit.Habit, error) {
	s.mu.Lock()
	next, h, err := habit.AddHabit(s.state, name, category)
	if err != nil {
		s.mu.Unlock()
		return habit.Habit{}, err
	}
	s.commit("add_habit", next)
	owner := s.owner
	s.mu.Unlock()

	s.logger.Debug("habit added", zap.String("habit_id", h.ID), zap.String("name", h.Name))
	s.enqueue(job{op: persist.OpInsert, owner: owner, habit: habit.Habit{ID: h.ID}})
	return h, nil
}

// UpdateHabit renames and/or recategorizes a habit.
func (s *Session) UpdateHabit(id, name string, category habit.Category) (habit.Habit, error) {
	s.mu.Lock()
	next, ok, err := habit.UpdateHabit(s.state, id, name, category)
	if err != nil {
		s.mu.Unlock()
		return habit.Habit{}, err
	}
	if !ok {
		s.mu.Unlock()
		return habit.Habit{}, habit.ErrHabitNotFound
	}
	s.commit("update_habit", next)
	h, _ := next.Habit(id)
	owner := s.owner
	s.mu.Unlock()

	s.enqueue(job{op: persist.OpUpdate, owner: owner, habit: habit.Habit{ID: id}})
	return h, nil
}

// RemoveHabit deletes a habit.
func (s *Session) RemoveHabit(id string) error {
	s.mu.Lock()
	next, removed, ok := habit.RemoveHabit(s.state, id)
	if !ok {
		s.mu.Unlock()
		return habit.ErrHabitNotFound
	}
	s.commit("remove_habit", next)
	owner := s.owner
	s.mu.Unlock()

	s.logger.Debug("habit removed", zap.String("habit_id", id), zap.String("origin", string(removed.Origin)))
	if removed.Origin == habit.OriginRemote {
		s.enqueue(job{op: persist.OpDelete, owner: owner, habit: removed})
	}
	return nil
}

// =============================================================================
// REFLECTIONS
// =============================================================================

// Reflection returns the reflection for month (empty when unset).
func (s *Session) Reflection(month int) (habit.Reflection, error) {
	if !habit.ValidMonth(month) {
		return habit.Reflection{}, &habit.ValidationError{Field: "month", Message: "must be 0-11"}
	}
	return habit.GetReflection(s.State(), month), nil
}

// SetReflection upserts one field of a month's reflection.
func (s *Session) SetReflection(month int, field habit.ReflectionField, value string) (habit.Reflection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := habit.SetReflection(s.state, month, field, value)
	if err != nil {
		return habit.Reflection{}, err
	}
	s.commit("set_reflection", next)
	return habit.GetReflection(next, month), nil
}

// =============================================================================
// MONTH NAVIGATION
// =============================================================================

// SetMonth moves the viewed month (clamped) and returns it.
func (s *Session) SetMonth(month int) int {
	return s.navigate(func(st habit.State) habit.State { return habit.SetMonth(st, month) })
}

// StepMonth moves the viewed month by delta (clamped) and returns it.
func (s *Session) StepMonth(delta int) int {
	return s.navigate(func(st habit.State) habit.State { return habit.StepMonth(st, delta) })
}

// GoToToday jumps to the real current month, or January outside the
// tracked year.
func (s *Session) GoToToday() int {
	now := s.now()
	return s.navigate(func(st habit.State) habit.State { return habit.Today(st, now) })
}

func (s *Session) navigate(fn func(habit.State) habit.State) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.state)
	if next.CurrentMonth != s.state.CurrentMonth {
		s.commit("navigate", next)
	}
	return next.CurrentMonth
}

// =============================================================================
// IMPORT / EXPORT / RESET
// =============================================================================

// Export serializes the current state as indented JSON.
func (s *Session) Export() ([]byte, error) {
	return persist.Encode(s.State())
}

// Import replaces the whole state with a previously exported payload. A
// malformed payload returns a *persist.FormatError and changes nothing.
//
// In remote mode the imported habits start out local, since the origins in
// a backup say nothing about this owner's rows. When signed in, the rows
// are then rebuilt from them.
func (s *Session) Import(data []byte) (habit.State, error) {
	next, err := persist.Decode(data, s.adapter.Year())
	if err != nil {
		s.logger.Warn("import rejected", zap.Error(err))
		return habit.State{}, err
	}
	if s.adapter.RemoteEnabled() {
		for i := range next.Habits {
			next.Habits[i].Origin = habit.OriginLocal
		}
	}

	s.mu.Lock()
	s.commit("import", next)
	owner := s.owner
	s.mu.Unlock()

	s.logger.Info("state imported", zap.Int("habits", len(next.Habits)))
	s.enqueue(job{op: opReplace, owner: owner})
	return next, nil
}

// Reset deletes the stored snapshot and starts over from the defaults,
// reconciled with the remote table when signed in.
func (s *Session) Reset(ctx context.Context) (habit.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Reset(ctx); err != nil {
		return habit.State{}, err
	}
	next := s.adapter.Reconcile(ctx, s.adapter.DefaultState(), s.owner)
	s.state = next
	s.metrics.Mutation("reset")
	s.metrics.SetHabits(len(next.Habits))
	s.logger.Info("state reset")
	return next, nil
}

// =============================================================================
// AUTH SESSION
// =============================================================================

// Owner is the signed-in owner id, empty when signed out.
func (s *Session) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// SignIn records owner and hydrates habits from the remote table.
func (s *Session) SignIn(ctx context.Context, owner string) (habit.State, error) {
	if owner == "" {
		return habit.State{}, &habit.ValidationError{Field: "owner", Message: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
	next := s.adapter.Reconcile(ctx, s.state, owner)
	s.commit("sign_in", next)
	s.logger.Info("signed in", zap.String("owner", owner), zap.Bool("remote", s.adapter.RemoteEnabled()))
	return next, nil
}

// SignOut clears the owner. The local state is kept.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = ""
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Sync blocks until every push queued before the call has run.
func (s *Session) Sync(ctx context.Context) error {
	barrier := make(chan struct{})
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}
	select {
	case s.queue <- job{barrier: barrier}:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-barrier:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush writes the pending snapshot now.
func (s *Session) Flush(ctx context.Context) error {
	return s.adapter.Flush(ctx)
}

// Close drains queued pushes, stops the worker and flushes the snapshot.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.quit) })

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.adapter.Close(ctx)
}

// =============================================================================
// PUSH WORKER
// =============================================================================

// enqueue never blocks. A dropped push leaves the habit as it is locally
// and the next change to it pushes again.
func (s *Session) enqueue(j job) {
	if !s.adapter.RemoteEnabled() || j.owner == "" {
		return
	}
	select {
	case <-s.quit:
		return
	default:
	}
	select {
	case s.queue <- j:
	default:
		s.metrics.RemoteOp(string(j.op), errQueueFull)
		s.logger.Warn("remote push dropped",
			zap.String("op", string(j.op)),
			zap.String("habit_id", j.habit.ID),
			zap.Error(errQueueFull))
	}
}

// work runs queued jobs until Close, then drains what is left.
func (s *Session) work() {
	defer close(s.done)
	for {
		select {
		case j := <-s.queue:
			s.run(j)
		case <-s.quit:
			for {
				select {
				case j := <-s.queue:
					s.run(j)
				default:
					return
				}
			}
		}
	}
}

func (s *Session) run(j job) {
	switch {
	case j.barrier != nil:
		close(j.barrier)
	case j.op == opReplace:
		s.replace(j.owner)
	default:
		s.push(j)
	}
}

// replace deletes every row of owner and inserts the current habits in
// display order.
func (s *Session) replace(owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	rows, err := s.adapter.ListRemote(ctx, owner)
	if err == nil {
		for _, r := range rows {
			_ = s.adapter.Push(ctx, persist.OpDelete, owner, r)
		}
	}
	cancel()
	if err != nil {
		return
	}

	for _, h := range s.State().Habits {
		s.push(job{op: persist.OpInsert, owner: owner, habit: habit.Habit{ID: h.ID}})
	}
}

func (s *Session) push(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	if j.op == persist.OpDelete {
		_ = s.adapter.Push(ctx, persist.OpDelete, j.owner, j.habit)
		return
	}

	current, ok := s.current(j.habit.ID)
	if !ok {
		return
	}
	op := persist.OpUpdate
	if current.Origin == habit.OriginLocal {
		op = persist.OpInsert
	}
	if err := s.adapter.Push(ctx, op, j.owner, current); err != nil || op != persist.OpInsert {
		return
	}

	s.mu.Lock()
	if _, exists := s.state.Habit(current.ID); !exists {
		s.mu.Unlock()
		_ = s.adapter.Push(ctx, persist.OpDelete, j.owner, current)
		return
	}
	s.commit("mark_remote", habit.MarkRemote(s.state, current.ID))
	s.mu.Unlock()
}

func (s *Session) current(id string) (habit.Habit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Habit(id)
}
