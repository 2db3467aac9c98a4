package task

import (
	"context"
	"fmt"
	"time"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusStarting   Status = "STARTING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// IsTerminal reports whether no further changes may be made to a record in this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusStarting, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

func (s Status) rank() int {
	switch s {
	case StatusStarting:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// canTransition reports whether a record may move from one status to another.
// Staying put is allowed; moving backwards or leaving a terminal status is not.
func canTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	return to.rank() >= from.rank()
}

// Record is the observable state of one task invocation.
// Result holds the body's return value once COMPLETED, or an ErrorPayload once ERROR.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Active    bool      `json:"active"`
	Progress  int       `json:"progress"`
	Result    any       `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Handler is a task body. args is the validated argument value: the schema's
// decoded value when a schema is declared, otherwise the raw JSON decoded
// into generic Go values. The returned value becomes the task result.
// Generic maps and slices are copied when stored; any other value is stored
// as is and must not be mutated once returned.
type Handler func(ctx context.Context, tc *TaskContext, args any) (any, error)

// Definition declares a task for registration.
type Definition struct {
	// Name is the unique identifier callers use to start the task
	Name string

	// Doc documents the task; its first line becomes the display name
	Doc string

	// Schema validates arguments before a record is created. Optional.
	Schema ArgumentSchema

	// Handler is the task body
	Handler Handler
}

// Group is a set of related task definitions contributed at startup.
type Group interface {
	Tasks() []Definition
}

// GroupFunc adapts a plain function to the Group interface.
type GroupFunc func() []Definition

// Tasks implements Group.
func (f GroupFunc) Tasks() []Definition { return f() }

// Typed adapts a handler taking the concrete argument type produced by a
// StructSchema[T].
func Typed[T any](fn func(ctx context.Context, tc *TaskContext, args T) (any, error)) Handler {
	return func(ctx context.Context, tc *TaskContext, args any) (any, error) {
		typed, ok := args.(T)
		if !ok {
			return nil, fmt.Errorf("unexpected argument type %T", args)
		}
		return fn(ctx, tc, typed)
	}
}

// cloneResult copies the generic JSON containers a body may keep a
// reference to, so a stored result cannot change outside the session lock.
func cloneResult(v any) any {
	switch v := v.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneResult(e)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneResult(e)
		}
		return out
	default:
		return v
	}
}
