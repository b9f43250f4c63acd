package engine

import (
	"errors"
	"fmt"
)

// ErrorClass separates the failures a pass can see. The class decides
// whether a failure is absorbed into the row's status column or aborts the
// whole pass.
type ErrorClass string

const (
	// ErrorClassNotFound indicates the entity row vanished between discovery
	// and load. The row is skipped without committing anything.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassCollaborator indicates an external service operation failed.
	// The diagnostic is written into the row's status column and the pass
	// continues with the next entity.
	ErrorClassCollaborator ErrorClass = "collaborator"

	// ErrorClassInfrastructure indicates the pass itself cannot make
	// progress, for example the store is unreachable or the lock file cannot
	// be written. The pass aborts with a non-zero exit.
	ErrorClassInfrastructure ErrorClass = "infrastructure"
)

// PassError is a classified error with the entity context it occurred in.
type PassError struct {
	// Class decides how the processor reacts to the error.
	Class ErrorClass

	// Operation is what was being attempted, e.g. "add" or "load".
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PassError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Class, e.Operation, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s", e.Class, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *PassError) Unwrap() error {
	return e.Err
}

func (e *PassError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// NewNotFoundError classifies a vanished-row error.
func NewNotFoundError(operation string, err error) *PassError {
	return &PassError{Class: ErrorClassNotFound, Operation: operation, Err: err}
}

// NewCollaboratorError classifies an external service failure.
func NewCollaboratorError(operation string, err error) *PassError {
	return &PassError{Class: ErrorClassCollaborator, Operation: operation, Err: err}
}

// NewInfrastructureError classifies a pass-fatal failure.
func NewInfrastructureError(operation string, err error) *PassError {
	return &PassError{Class: ErrorClassInfrastructure, Operation: operation, Err: err}
}

// IsNotFound returns true if the error is classified as a vanished row.
func IsNotFound(err error) bool {
	var e *PassError
	if errors.As(err, &e) {
		return e.Class == ErrorClassNotFound
	}
	return false
}

// IsCollaborator returns true if the error is classified as an external
// service failure.
func IsCollaborator(err error) bool {
	var e *PassError
	if errors.As(err, &e) {
		return e.Class == ErrorClassCollaborator
	}
	return false
}

// IsInfrastructure returns true if the error must abort the pass.
func IsInfrastructure(err error) bool {
	var e *PassError
	if errors.As(err, &e) {
		return e.Class == ErrorClassInfrastructure
	}
	return false
}
