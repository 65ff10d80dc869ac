package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrConflict        = errors.New("record conflict: identity exists or version changed")
	ErrForbidden       = errors.New("access forbidden: you don't own this resource")
	ErrUnknownStrategy = errors.New("unknown processing strategy")
	ErrInvalidRole     = errors.New("invalid role")
)

// ProcessingError is returned by a FileProcessingStrategy when the payload
// cannot be parsed/decoded or the processed bytes cannot be stored.
type ProcessingError struct {
	Strategy string
	Reason   string
	Err      error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Strategy, e.Reason)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError builds a ProcessingError for the given strategy
func NewProcessingError(strategy, reason string, err error) *ProcessingError {
	return &ProcessingError{Strategy: strategy, Reason: reason, Err: err}
}

// StorageIOError wraps a failure of the underlying byte storage transport
// (disk full, permission denied, network error).
type StorageIOError struct {
	Op   string // put, open, delete
	Path string
	Err  error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

// IsStorageIOError reports whether err has a StorageIOError in its chain
func IsStorageIOError(err error) bool {
	var sErr *StorageIOError
	return errors.As(err, &sErr)
}
