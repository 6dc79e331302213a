package retain

import (
	"errors"
	"fmt"
)

// Common errors returned by the engine and store.
var (
	// ErrNotFound is returned when an entity is not found.
	ErrNotFound = errors.New("not found")

	// ErrEmptyText is returned when an operation receives empty text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidSessionType is returned for an unknown session type.
	ErrInvalidSessionType = errors.New("invalid session type")

	// ErrInvalidPreferenceType is returned for an unknown preference type.
	ErrInvalidPreferenceType = errors.New("invalid preference type")

	// ErrInvalidConfidence is returned when confidence is outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrOffline is returned when a network operation is attempted without
	// a configured remote.
	ErrOffline = errors.New("operation unavailable in offline mode")

	// ErrSelectionMismatch is returned when an A/B selection matches
	// neither presented option.
	ErrSelectionMismatch = errors.New("selected text matches neither option")
)

// ValidationError is returned when configuration or input validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate: %s: %s", e.Field, e.Message)
}

// PersistenceError wraps a local write failure. Callers treat it as fatal to
// the triggering call; the learning path fails open and leaves text unmodified.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
