/*
reducers.go - State transitions for the Habit Record Store

PURPOSE:
  Every mutation of State is a pure function: it takes a State and returns
  a new one. The input is never written to. This keeps toggles involutive
  and snapshots trivially comparable in tests.

SHARING:
  Returned states share unchanged habits and matrix rows with their input.
  A State must therefore never be mutated in place; callers that need a
  private copy use State.Clone().

NO-OPS:
  Operations addressing an unknown habit id return the input state and
  false. They are not errors: the caller decides whether to log.

SEE ALSO:
  - types.go: State, Habit, Matrix
  - session/session.go: Applies reducers and schedules persistence
*/
package habit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID generates habit ids. Replaced in tests that need stable ids.
var NewID = uuid.NewString

func withHabits(s State, habits []Habit) State {
	s.Habits = habits
	return s
}

func copyHabits(s State) []Habit {
	return append(make([]Habit, 0, len(s.Habits)+1), s.Habits...)
}

func validateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &ValidationError{Field: "name", Message: "must not be empty"}
	}
	return trimmed, nil
}

func validateCategory(c Category) error {
	if !c.IsValid() {
		return &ValidationError{Field: "category", Message: "must be one of Health, Mind, Career, Personal"}
	}
	return nil
}

// ToggleDay flips the cell (month, day) of the habit with the given id.
// Returns false, and the input state, when the habit or cell doesn't exist.
func ToggleDay(s State, habitID string, month, day int) (State, bool) {
	i := s.Find(habitID)
	if i < 0 || !ValidDay(month, day) {
		return s, false
	}

	h := s.Habits[i]
	data := h.Data
	if !data.WellFormed() {
		data = data.Normalize()
	} else {
		data = append(Matrix(nil), data...)
	}
	row := append([]bool(nil), data[month]...)
	row[day] = !row[day]
	data[month] = row
	h.Data = data

	habits := copyHabits(s)
	habits[i] = h
	return withHabits(s, habits), true
}

// AddHabit appends a new habit with a fresh id and an all-false matrix.
func AddHabit(s State, name string, category Category) (State, Habit, error) {
	trimmed, err := validateName(name)
	if err != nil {
		return s, Habit{}, err
	}
	if err := validateCategory(category); err != nil {
		return s, Habit{}, err
	}

	h := Habit{
		ID:       NewID(),
		Name:     trimmed,
		Category: category,
		Data:     NewMatrix(),
		Origin:   OriginLocal,
	}
	habits := append(copyHabits(s), h)
	return withHabits(s, habits), h, nil
}

// UpdateHabit replaces name and category in place; the matrix is untouched.
func UpdateHabit(s State, id, name string, category Category) (State, bool, error) {
	trimmed, err := validateName(name)
	if err != nil {
		return s, false, err
	}
	if err := validateCategory(category); err != nil {
		return s, false, err
	}

	i := s.Find(id)
	if i < 0 {
		return s, false, nil
	}
	habits := copyHabits(s)
	habits[i].Name = trimmed
	habits[i].Category = category
	return withHabits(s, habits), true, nil
}

// RemoveHabit drops the habit with the given id and returns it. Other
// habits keep their ids and relative order.
func RemoveHabit(s State, id string) (State, Habit, bool) {
	i := s.Find(id)
	if i < 0 {
		return s, Habit{}, false
	}
	removed := s.Habits[i]
	habits := make([]Habit, 0, len(s.Habits)-1)
	habits = append(habits, s.Habits[:i]...)
	habits = append(habits, s.Habits[i+1:]...)
	return withHabits(s, habits), removed, true
}

// MarkRemote records that the habit now has a remote row.
func MarkRemote(s State, id string) State {
	i := s.Find(id)
	if i < 0 || s.Habits[i].Origin == OriginRemote {
		return s
	}
	habits := copyHabits(s)
	habits[i].Origin = OriginRemote
	return withHabits(s, habits)
}

// ReplaceHabits swaps the whole habit list, e.g. after hydrating from the
// remote table. Matrices are normalized.
func ReplaceHabits(s State, habits []Habit) State {
	out := make([]Habit, len(habits))
	for i, h := range habits {
		h.Data = h.Data.Normalize()
		out[i] = h
	}
	return withHabits(s, out)
}

// =============================================================================
// MONTH NAVIGATION
// =============================================================================

// SetMonth moves the viewed month, clamped to [0,11].
func SetMonth(s State, month int) State {
	s.CurrentMonth = ClampMonth(month)
	return s
}

// StepMonth moves the viewed month by delta, clamped to [0,11].
func StepMonth(s State, delta int) State {
	return SetMonth(s, s.CurrentMonth+delta)
}

// TodayMonth is the month to show for "today": the real month when now
// falls in the tracked year, January otherwise.
func TodayMonth(year int, now time.Time) int {
	if now.Year() == year {
		return int(now.Month()) - 1
	}
	return 0
}

// Today moves the viewed month to TodayMonth.
func Today(s State, now time.Time) State {
	return SetMonth(s, TodayMonth(s.Year, now))
}
