package task

import (
	"context"
	"time"

	"github.com/phrazzld/scry-tasks/internal/events"
)

// TaskContext is handed to a running task body. It carries only the
// coordinates of the record; every update goes through the session store.
type TaskContext struct {
	store   *Store
	emitter events.EventEmitter
	token   string
	id      string
	name    string
}

func newTaskContext(store *Store, emitter events.EventEmitter, token, id, name string) *TaskContext {
	return &TaskContext{
		store:   store,
		emitter: emitter,
		token:   token,
		id:      id,
		name:    name,
	}
}

// ID returns the task id.
func (tc *TaskContext) ID() string { return tc.id }

// Name returns the registered task name.
func (tc *TaskContext) Name() string { return tc.name }

// ClientToken returns the token of the session owning the task.
func (tc *TaskContext) ClientToken() string { return tc.token }

// update is the set of fields a single Update call changes.
type update struct {
	progress  *int
	status    *Status
	result    any
	hasResult bool
}

// UpdateOption sets one field in an Update call.
type UpdateOption func(*update)

// WithProgress sets the progress percentage.
func WithProgress(percent int) UpdateOption {
	return func(u *update) { u.progress = &percent }
}

// WithStatus sets a non-terminal status.
func WithStatus(status Status) UpdateOption {
	return func(u *update) { u.status = &status }
}

// WithResult sets an intermediate result.
func WithResult(result any) UpdateOption {
	return func(u *update) {
		u.result = result
		u.hasResult = true
	}
}

// Update applies the given fields to the record atomically. Terminal
// statuses are reserved for the supervisor.
func (tc *TaskContext) Update(ctx context.Context, opts ...UpdateOption) error {
	var u update
	for _, opt := range opts {
		opt(&u)
	}

	if u.progress != nil && (*u.progress < 0 || *u.progress > 100) {
		return ErrInvalidProgress
	}
	if u.status != nil && (!u.status.Valid() || u.status.IsTerminal()) {
		return ErrInvalidTransition
	}

	var status Status
	err := tc.store.WithExclusive(tc.token, func(sess *Session) error {
		rec, ok := sess.tasks[tc.id]
		if !ok {
			return taskIDNotFound(tc.id)
		}
		if rec.Status.IsTerminal() {
			return ErrTerminal
		}
		if u.status != nil && !canTransition(rec.Status, *u.status) {
			return ErrInvalidTransition
		}

		if u.progress != nil {
			rec.Progress = *u.progress
		}
		if u.status != nil {
			rec.Status = *u.status
		}
		if u.hasResult {
			rec.Result = cloneResult(u.result)
		}
		rec.UpdatedAt = time.Now().UTC()
		status = rec.Status
		return nil
	})
	if err != nil {
		return err
	}

	// Delivery failures are logged by the emitter; the update itself stands.
	_ = tc.emitter.EmitEvent(ctx,
		events.NewTaskEvent(events.TypeTaskUpdated, tc.token, tc.id, string(status)))
	return nil
}

// SetProgress is shorthand for Update with only WithProgress.
func (tc *TaskContext) SetProgress(ctx context.Context, percent int) error {
	return tc.Update(ctx, WithProgress(percent))
}
