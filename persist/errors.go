package persist

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is the root of every malformed-payload error.
	ErrFormat = errors.New("invalid snapshot format")

	// ErrPersistence is the root of every storage failure.
	ErrPersistence = errors.New("persistence failed")

	// ErrNoSnapshot is returned by a Snapshotter when nothing was stored yet.
	ErrNoSnapshot = errors.New("no snapshot stored")
)

// FormatError describes a payload that cannot become a State. The current
// state is left untouched.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid backup format: %s: %v", e.Reason, e.Err)
	}
	return "invalid backup format: " + e.Reason
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}

// PersistenceError wraps a failed read or write of the durable medium.
// It is logged and reflected in the sync status, never surfaced to clients.
type PersistenceError struct {
	Op  string // "read", "write", "delete", "remote insert", ...
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// IsFormatError reports whether err is a malformed payload.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}
