package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted for task records.
const (
	TypeTaskCreated  = "task.created"
	TypeTaskUpdated  = "task.updated"
	TypeTaskFinished = "task.finished"
)

// TaskEvent describes a change to one task record owned by a client session.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// ClientToken identifies the session owning the task
	ClientToken string `json:"-"`

	// TaskID is the session-scoped task identifier
	TaskID string `json:"task_id"`

	// Status is the task status after the change
	Status string `json:"status"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a TaskEvent stamped with a fresh ID and the current time.
func NewTaskEvent(eventType, clientToken, taskID, status string) *TaskEvent {
	return &TaskEvent{
		ID:          uuid.New(),
		Type:        eventType,
		ClientToken: clientToken,
		TaskID:      taskID,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Handlers run synchronously on the emitting goroutine and must not block.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a plain function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TaskEvent) error { return nil }
