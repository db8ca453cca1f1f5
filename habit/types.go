/*
types.go - Core domain types for the habit tracker

PURPOSE:
  Defines the data model shared by every other package: habits, their
  year-shaped completion matrix, monthly reflections and the aggregate
  State that is persisted as a snapshot.

KEY CONCEPTS:
  Category:  One of four fixed life-area tags (Health, Mind, Career, Personal)
  Matrix:    12 rows of booleans, row m has DaysInMonth[m] entries
  Origin:    Whether a habit is already backed by a remote row
  State:     The aggregate unit (habits, reflections, current month, year)

CALENDAR:
  The tracker uses a fixed non-leap 12-month calendar. February always has
  28 days, regardless of the configured year.

ORIGIN:
  Habits created locally start as OriginLocal. Once the remote table has a
  row for them they become OriginRemote. The origin is carried explicitly;
  it is never inferred from the id except when decoding legacy snapshots
  that predate the field (see persist/codec.go).

SEE ALSO:
  - reducers.go: State transitions
  - reflection.go: Monthly reflections
  - analytics/: Derived views over State
*/
package habit

import (
	"fmt"
	"strings"
)

// =============================================================================
// CALENDAR
// =============================================================================

// MonthsInYear is the number of rows in every completion matrix.
const MonthsInYear = 12

// DaysInMonth is the fixed non-leap calendar used by the tracker.
var DaysInMonth = [MonthsInYear]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInYear is the sum of DaysInMonth.
const DaysInYear = 365

// DefaultYear is the logical year the tracker represents unless configured.
const DefaultYear = 2026

// MonthNames are used for prompts and reports.
var MonthNames = [MonthsInYear]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ValidMonth reports whether m is a month index in [0,11].
func ValidMonth(m int) bool {
	return m >= 0 && m < MonthsInYear
}

// ValidDay reports whether (m, d) addresses a cell of the matrix.
func ValidDay(m, d int) bool {
	return ValidMonth(m) && d >= 0 && d < DaysInMonth[m]
}

// ClampMonth forces m into [0,11].
func ClampMonth(m int) int {
	if m < 0 {
		return 0
	}
	if m >= MonthsInYear {
		return MonthsInYear - 1
	}
	return m
}

// =============================================================================
// CATEGORY
// =============================================================================

// Category is a closed set of life-area tags.
type Category string

const (
	CategoryHealth   Category = "Health"
	CategoryMind     Category = "Mind"
	CategoryCareer   Category = "Career"
	CategoryPersonal Category = "Personal"
)

// Categories is the fixed iteration order. Tie-breaks depend on it.
var Categories = []Category{CategoryHealth, CategoryMind, CategoryCareer, CategoryPersonal}

func (c Category) IsValid() bool {
	switch c {
	case CategoryHealth, CategoryMind, CategoryCareer, CategoryPersonal:
		return true
	default:
		return false
	}
}

// ParseCategory accepts any casing and surrounding whitespace.
func ParseCategory(input string) (Category, error) {
	s := strings.TrimSpace(input)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", &ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", input)}
}

// =============================================================================
// MATRIX
// =============================================================================

// Matrix is the per-day completion record for one year: Matrix[m][d] is
// calendar day d+1 of month m.
type Matrix [][]bool

// NewMatrix returns an all-false matrix sized per DaysInMonth.
func NewMatrix() Matrix {
	m := make(Matrix, MonthsInYear)
	for i, days := range DaysInMonth {
		m[i] = make([]bool, days)
	}
	return m
}

// Normalize returns a copy of m with exactly the invariant shape. Missing
// rows and days are false; surplus days are dropped.
func (m Matrix) Normalize() Matrix {
	out := NewMatrix()
	for i := 0; i < MonthsInYear && i < len(m); i++ {
		copy(out[i], m[i])
	}
	return out
}

// Clone deep-copies the matrix.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]bool(nil), row...)
	}
	return out
}

// WellFormed reports whether m satisfies the shape invariant.
func (m Matrix) WellFormed() bool {
	if len(m) != MonthsInYear {
		return false
	}
	for i, row := range m {
		if len(row) != DaysInMonth[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// HABIT
// =============================================================================

// Origin tells whether a habit already has a row in the remote table.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

func (o Origin) IsValid() bool {
	return o == OriginLocal || o == OriginRemote
}

// Habit is a tracked recurring behavior with a yearly completion record.
type Habit struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Data     Matrix   `json:"data"`
	Origin   Origin   `json:"origin"`
}

// Clone deep-copies the habit.
func (h Habit) Clone() Habit {
	h.Data = h.Data.Clone()
	return h
}

// =============================================================================
// STATE
// =============================================================================

// Reflection holds free-text notes for one month.
type Reflection struct {
	Wins         string `json:"wins"`
	Improvements string `json:"improvements"`
}

// State is the aggregate persisted unit. Habits are in display order.
type State struct {
	Habits       []Habit            `json:"habits"`
	Reflections  map[int]Reflection `json:"reflections"`
	CurrentMonth int                `json:"currentMonth"`
	Year         int                `json:"year"`
}

// Clone deep-copies the state.
func (s State) Clone() State {
	out := State{
		Habits:       make([]Habit, len(s.Habits)),
		Reflections:  make(map[int]Reflection, len(s.Reflections)),
		CurrentMonth: s.CurrentMonth,
		Year:         s.Year,
	}
	for i, h := range s.Habits {
		out.Habits[i] = h.Clone()
	}
	for k, v := range s.Reflections {
		out.Reflections[k] = v
	}
	return out
}

// Find returns the index of the habit with the given id, or -1.
func (s State) Find(id string) int {
	for i, h := range s.Habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// Habit returns a copy of the habit with the given id.
func (s State) Habit(id string) (Habit, bool) {
	i := s.Find(id)
	if i < 0 {
		return Habit{}, false
	}
	return s.Habits[i].Clone(), true
}

var defaultHabits = []struct {
	name     string
	category Category
}{
	{"7h+ Quality Sleep", CategoryHealth},
	{"Morning Exercise", CategoryHealth},
	{"Drink 2L Water", CategoryHealth},
	{"10 min Meditation", CategoryMind},
	{"Daily Journaling", CategoryMind},
	{"Digital Detox Hour", CategoryMind},
	{"Deep Work Session", CategoryCareer},
	{"Networking/Social", CategoryCareer},
	{"Learn New Skill", CategoryCareer},
	{"Read 20 Pages", CategoryPersonal},
	{"Language Practice", CategoryPersonal},
	{"No Spending Day", CategoryPersonal},
	{"Vitamin Intake", CategoryHealth},
	{"Inbox Zero", CategoryCareer},
	{"Evening Stretch", CategoryHealth},
}

// DefaultState is the starting point when nothing has been stored yet:
// the built-in habit set with an all-false matrix.
func DefaultState(year, month int) State {
	if year == 0 {
		year = DefaultYear
	}
	s := State{
		Habits:       make([]Habit, len(defaultHabits)),
		Reflections:  map[int]Reflection{},
		CurrentMonth: ClampMonth(month),
		Year:         year,
	}
	for i, d := range defaultHabits {
		s.Habits[i] = Habit{
			ID:       fmt.Sprintf("%d", i+1),
			Name:     d.name,
			Category: d.category,
			Data:     NewMatrix(),
			Origin:   OriginLocal,
		}
	}
	return s
}
