package task

import (
	"errors"
	"fmt"
)

// Sentinel errors; callers match them with errors.Is.
var (
	// ErrNotFound is returned for unknown task names and unknown task ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameters is returned when start arguments fail validation.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrNotCompleted is returned when a result is requested before completion.
	ErrNotCompleted = errors.New("task not completed")

	ErrAlreadyRegistered = errors.New("task already registered")
	ErrInvalidDefinition = errors.New("invalid task definition")

	// ErrTerminal is returned when mutating a record that already finished.
	ErrTerminal          = errors.New("task is in a terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidProgress   = errors.New("progress must be between 0 and 100")
	ErrIDSpaceExhausted  = errors.New("could not allocate a unique task id")

	// Causes recorded when a task context ends early.
	ErrCancelled    = errors.New("task cancelled")
	ErrTimedOut     = errors.New("task timed out")
	ErrShuttingDown = errors.New("supervisor shutting down")
)

// Kinds of missing entity reported by NotFoundError.
const (
	KindTaskName = "task"
	KindTaskID   = "task id"
)

// NotFoundError reports an unknown task name or task id.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func taskNameNotFound(name string) error {
	return &NotFoundError{Kind: KindTaskName, Key: name}
}

func taskIDNotFound(id string) error {
	return &NotFoundError{Kind: KindTaskID, Key: id}
}

// InvalidParametersError reports why start arguments were rejected.
type InvalidParametersError struct {
	Detail string
	Err    error
}

func (e *InvalidParametersError) Error() string {
	return "invalid parameters: " + e.Detail
}

func (e *InvalidParametersError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidParameters}
	}
	return []error{ErrInvalidParameters, e.Err}
}

// NotCompletedError carries the status observed when a result was requested.
type NotCompletedError struct {
	Status Status
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("task not completed: current status %s", e.Status)
}

func (e *NotCompletedError) Unwrap() error { return ErrNotCompleted }

// ErrorPayload is stored as the result of a task whose body failed.
type ErrorPayload struct {
	Message string `json:"message"`
}

func (p ErrorPayload) Error() string { return p.Message }
