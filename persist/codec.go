/*
codec.go - Snapshot serialization (durable format and import/export file)

FORMAT:
  A single JSON object mirroring State:

    {
      "habits": [{"id": "1", "name": "...", "category": "Health",
                  "data": [[false, ...], ...], "origin": "local"}],
      "reflections": {"0": {"wins": "", "improvements": ""}},
      "currentMonth": 0,
      "year": 2026
    }

  There is no schema version field. Decoding is best effort and tolerant:
  matrices are reshaped to the calendar, the month is clamped, a missing
  year falls back to the configured one.

VALIDATION:
  Decode rejects (FormatError) only payloads that are not JSON objects,
  lack a "habits" array, or contain a habit without an id or with an
  unknown category.

LEGACY ORIGIN:
  Snapshots written before habits carried an origin are decoded with the
  old rule: ids longer than 10 characters are remote-backed. The decoded
  origin is then stored explicitly on the next write.

ROUND TRIP:
  Decode(Encode(s)) == s for every well-formed state.
*/
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/warp/zenhabit/habit"
)

// legacyRemoteIDLength is the id length above which legacy habits are
// treated as remote-backed.
const legacyRemoteIDLength = 10

type wireHabit struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Data     [][]bool `json:"data"`
	Origin   string   `json:"origin,omitempty"`
}

type wireState struct {
	Habits       *json.RawMessage           `json:"habits"`
	Reflections  map[string]habit.Reflection `json:"reflections"`
	CurrentMonth int                         `json:"currentMonth"`
	Year         int                         `json:"year"`
}

// Encode serializes the state as indented, human-readable JSON.
func Encode(s habit.State) ([]byte, error) {
	if s.Habits == nil {
		s.Habits = []habit.Habit{}
	}
	if s.Reflections == nil {
		s.Reflections = map[int]habit.Reflection{}
	}
	return json.MarshalIndent(s, "", "  ")
}

// Decode parses a snapshot or import payload. defaultYear is used when the
// payload carries no year.
func Decode(data []byte, defaultYear int) (habit.State, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return habit.State{}, &FormatError{Reason: "malformed JSON", Err: err}
	}
	if w.Habits == nil {
		return habit.State{}, &FormatError{Reason: `missing "habits"`}
	}
	raw := bytes.TrimSpace(*w.Habits)
	if len(raw) == 0 || raw[0] != '[' {
		return habit.State{}, &FormatError{Reason: `"habits" must be an array`}
	}

	var wires []wireHabit
	if err := json.Unmarshal(raw, &wires); err != nil {
		return habit.State{}, &FormatError{Reason: "malformed habit entry", Err: err}
	}

	s := habit.State{
		Habits:       make([]habit.Habit, 0, len(wires)),
		Reflections:  make(map[int]habit.Reflection, len(w.Reflections)),
		CurrentMonth: habit.ClampMonth(w.CurrentMonth),
		Year:         w.Year,
	}
	if s.Year == 0 {
		s.Year = defaultYear
	}

	for i, wh := range wires {
		h, err := wh.toHabit()
		if err != nil {
			return habit.State{}, &FormatError{Reason: fmt.Sprintf("habit %d", i), Err: err}
		}
		s.Habits = append(s.Habits, h)
	}

	for key, r := range w.Reflections {
		m, err := strconv.Atoi(key)
		if err != nil || !habit.ValidMonth(m) {
			continue
		}
		s.Reflections[m] = r
	}
	return s, nil
}

func (w wireHabit) toHabit() (habit.Habit, error) {
	if w.ID == "" {
		return habit.Habit{}, fmt.Errorf("missing id")
	}
	cat, err := habit.ParseCategory(w.Category)
	if err != nil {
		return habit.Habit{}, err
	}
	origin := habit.Origin(w.Origin)
	if !origin.IsValid() {
		origin = legacyOrigin(w.ID)
	}
	return habit.Habit{
		ID:       w.ID,
		Name:     w.Name,
		Category: cat,
		Data:     habit.Matrix(w.Data).Normalize(),
		Origin:   origin,
	}, nil
}

func legacyOrigin(id string) habit.Origin {
	if len(id) > legacyRemoteIDLength {
		return habit.OriginRemote
	}
	return habit.OriginLocal
}

// BackupFileName is the suggested file name for an export taken at t.
func BackupFileName(t time.Time) string {
	return "zenhabit-backup-" + t.Format(time.DateOnly) + ".json"
}
