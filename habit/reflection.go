package habit

import "fmt"

// ReflectionField selects which half of a Reflection to edit.
type ReflectionField string

const (
	FieldWins         ReflectionField = "wins"
	FieldImprovements ReflectionField = "improvements"
)

func (f ReflectionField) IsValid() bool {
	return f == FieldWins || f == FieldImprovements
}

// GetReflection returns the reflection for month, or an empty one when none
// has been written yet.
func GetReflection(s State, month int) Reflection {
	return s.Reflections[month]
}

// SetReflection upserts one field of a month's reflection. The entry is
// created on first write with the other field empty.
func SetReflection(s State, month int, field ReflectionField, value string) (State, error) {
	if !ValidMonth(month) {
		return s, &ValidationError{Field: "month", Message: fmt.Sprintf("%d is outside 0-11", month)}
	}
	if !field.IsValid() {
		return s, &ValidationError{Field: "field", Message: fmt.Sprintf("unknown reflection field %q", field)}
	}

	r := s.Reflections[month]
	switch field {
	case FieldWins:
		r.Wins = value
	case FieldImprovements:
		r.Improvements = value
	}

	reflections := make(map[int]Reflection, len(s.Reflections)+1)
	for k, v := range s.Reflections {
		reflections[k] = v
	}
	reflections[month] = r
	s.Reflections = reflections
	return s, nil
}
