package storage

import (
	"errors"
	"fmt"
)

// Errors returned by storage operations. They are wrapped with the ids
// involved; test for them with errors.Is.
var (
	// ErrNotFound means an id does not resolve to a stored entity.
	ErrNotFound = errors.New("not found")
	// ErrConfirmationRequired means a destructive call was made without confirm.
	ErrConfirmationRequired = errors.New("confirmation required: set confirm to true to delete")
	// ErrValidation means a value violates an entity invariant.
	ErrValidation = errors.New("validation failed")
	// ErrCycle means a move would make a task its own ancestor.
	ErrCycle = errors.New("hierarchy cycle")
	// ErrCrossProject means a parent task belongs to a different project.
	ErrCrossProject = fmt.Errorf("%w: parent task belongs to a different project", ErrValidation)
	// ErrCorruptData means a document could not be parsed or is inconsistent.
	ErrCorruptData = errors.New("corrupt data")
	// ErrDanglingReference means a reference points at an entity that does not exist.
	ErrDanglingReference = errors.New("dangling reference")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func corrupt(document string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptData, document, err)
}
