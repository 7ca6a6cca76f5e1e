package models

import (
	"errors"
	"fmt"
)

// Phase identifies the step of a publish operation that failed
type Phase int

const (
	PhaseConfig Phase = iota
	PhaseHash
	PhaseUpload
	PhaseFetch
	PhaseMerge
	PhaseWriteBack
	PhaseSign
	PhaseLock
)

// String returns the string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseConfig:
		return "Config"
	case PhaseHash:
		return "Hash"
	case PhaseUpload:
		return "Upload"
	case PhaseFetch:
		return "Fetch"
	case PhaseMerge:
		return "Merge"
	case PhaseWriteBack:
		return "WriteBack"
	case PhaseSign:
		return "Sign"
	case PhaseLock:
		return "Lock"
	default:
		return "Unknown"
	}
}

// PublishError represents an error during a publish operation
type PublishError struct {
	Phase Phase
	Box   string
	Err   error
}

// Error implements the error interface
func (e *PublishError) Error() string {
	if e.Box != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Phase, e.Box, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Phase, e.Err)
}

// Unwrap returns the wrapped error
func (e *PublishError) Unwrap() error {
	return e.Err
}

// NewConfigError returns a PublishError in the Config phase
func NewConfigError(format string, args ...interface{}) error {
	return &PublishError{
		Phase: PhaseConfig,
		Err:   fmt.Errorf(format, args...),
	}
}

// PhaseOf reports the phase carried by err, if any
func PhaseOf(err error) (Phase, bool) {
	var pubErr *PublishError
	if errors.As(err, &pubErr) {
		return pubErr.Phase, true
	}
	return 0, false
}
