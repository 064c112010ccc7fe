package workspace

import (
	"errors"
	"fmt"
)

// ErrUnlockFailed is the single outcome for every failed unlock
// attempt. An unknown identifier, a mangled row, and a wrong password
// are deliberately indistinguishable to the caller.
var ErrUnlockFailed = errors.New("workspace: unlock failed")

// NotFoundError reports a reference to an entity that does not exist
// in the unlocked workspace.
type NotFoundError struct {
	Kind string // "workspace", "folder", "file"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("workspace: %s %q not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError reports input rejected before any key derivation or
// store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workspace: invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
