package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// Job is one accepted task invocation waiting for a worker.
type Job struct {
	Token   string
	TaskID  string
	Handler Handler
	Name    string

	// ctx is cancelled by Supervisor.Cancel or on shutdown
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// TaskQueue is a bounded, non-blocking job queue.
type TaskQueue struct {
	mu     sync.RWMutex
	jobs   chan *Job
	logger *slog.Logger
	closed bool
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size <= 0 {
		size = 1
	}
	return &TaskQueue{
		jobs:   make(chan *Job, size),
		logger: logger,
	}
}

// Enqueue adds a job to the queue for processing.
// Returns an error if the queue is full or closed
func (q *TaskQueue) Enqueue(job *Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		q.logger.Debug("job enqueued",
			"task_id", job.TaskID,
			"task_name", job.Name,
			"queue_len", len(q.jobs),
			"queue_cap", cap(q.jobs))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.jobs))
	}
}

// Close prevents further submission. Jobs already queued stay readable.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.jobs)
		q.logger.Info("task queue closed")
	}
}

// Len returns the number of queued jobs.
func (q *TaskQueue) Len() int {
	return len(q.jobs)
}

// GetChannel returns a read-only channel for consuming jobs
func (q *TaskQueue) GetChannel() <-chan *Job {
	return q.jobs
}
