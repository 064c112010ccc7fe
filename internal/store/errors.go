package store

import (
	"errors"
	"fmt"
)

// ConflictError reports an insert whose primary identifier already
// exists. For workspaces this is the ordinary "a workspace already
// exists for this password" signal.
type ConflictError struct {
	Kind string // "workspace", "folder", "file"
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store: %s %q already exists", e.Kind, e.ID)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// PersistenceError wraps a backing-store failure: connectivity, I/O, a
// malformed row. It never carries secret-related information.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
