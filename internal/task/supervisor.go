package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/scry-tasks/internal/events"
	"github.com/phrazzld/scry-tasks/internal/redact"
)

// SupervisorConfig holds configuration for the execution supervisor
type SupervisorConfig struct {
	// WorkerCount determines how many task bodies run concurrently
	WorkerCount int

	// QueueSize bounds the number of accepted tasks waiting for a worker
	QueueSize int

	// Timeout bounds every task body. Zero means no limit.
	Timeout time.Duration
}

// DefaultSupervisorConfig returns a SupervisorConfig with reasonable defaults
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		WorkerCount: DefaultWorkerPoolConfig().WorkerCount,
		QueueSize:   100,
	}
}

type runKey struct {
	token string
	id    string
}

// Supervisor starts task bodies in the background and records their
// lifecycle in the Store. A body's error or panic is recorded as the task's
// ERROR state and never propagates to the caller.
type Supervisor struct {
	registry *Registry
	store    *Store
	emitter  events.EventEmitter
	queue    *TaskQueue
	pool     *WorkerPool
	config   SupervisorConfig
	logger   *slog.Logger

	// baseCtx parents every job context; stopAll cancels it on shutdown
	baseCtx context.Context
	stopAll context.CancelCauseFunc

	mu      sync.Mutex
	running map[runKey]context.CancelCauseFunc

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSupervisor creates a Supervisor. Call Start before submitting tasks.
func NewSupervisor(
	registry *Registry,
	store *Store,
	emitter events.EventEmitter,
	config SupervisorConfig,
	logger *slog.Logger,
) *Supervisor {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultSupervisorConfig().QueueSize
	}

	logger = logger.With("component", "task_supervisor")
	baseCtx, stopAll := context.WithCancelCause(context.Background())

	s := &Supervisor{
		registry: registry,
		store:    store,
		emitter:  emitter,
		queue:    NewTaskQueue(config.QueueSize, logger),
		config:   config,
		logger:   logger,
		baseCtx:  baseCtx,
		stopAll:  stopAll,
		running:  make(map[runKey]context.CancelCauseFunc),
	}
	s.pool = NewWorkerPool(s.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, s.process, logger)
	return s
}

// Start launches the worker pool.
func (s *Supervisor) Start() {
	s.startOnce.Do(s.pool.Start)
}

// Stop refuses new tasks, cancels running bodies and waits for the workers
// to drain the queue. Queued jobs are recorded as ERROR without running.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.queue.Close()
		s.stopAll(ErrShuttingDown)
		// Workers were never started; drain here so queued records still finish
		s.startOnce.Do(s.pool.Start)
	})

	done := make(chan struct{})
	go func() {
		s.pool.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("task supervisor stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for task workers: %w", ctx.Err())
	}
}

// StartTask validates the arguments, creates a STARTING record in the
// caller's session and queues the body. It returns without waiting for the
// body to run.
func (s *Supervisor) StartTask(ctx context.Context, token, name string, raw json.RawMessage) (string, error) {
	reg, err := s.registry.Resolve(name)
	if err != nil {
		return "", err
	}

	args, err := reg.validateArguments(raw)
	if err != nil {
		return "", err
	}

	var taskID string
	err = s.store.WithExclusive(token, func(sess *Session) error {
		id, err := s.store.createTaskID(sess)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		sess.tasks[id] = &Record{
			ID:        id,
			Name:      reg.Name,
			Status:    StatusStarting,
			Active:    true,
			Progress:  0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sess.pending[id] = args
		taskID = id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create task record: %w", err)
	}

	// Emitted before enqueueing so it precedes every event from the worker
	_ = s.emitter.EmitEvent(ctx,
		events.NewTaskEvent(events.TypeTaskCreated, token, taskID, string(StatusStarting)))

	job := s.newJob(token, taskID, reg)
	if err := s.queue.Enqueue(job); err != nil {
		s.discard(job)
		s.logger.Warn("task rejected", "task_name", name, "error", err)
		return "", err
	}

	s.logger.Info("task accepted", "task_id", taskID, "task_name", name)
	return taskID, nil
}

func (s *Supervisor) newJob(token, taskID string, reg Registration) *Job {
	jobCtx, cancel := context.WithCancelCause(s.baseCtx)

	s.mu.Lock()
	s.running[runKey{token: token, id: taskID}] = cancel
	s.mu.Unlock()

	return &Job{
		Token:   token,
		TaskID:  taskID,
		Name:    reg.Name,
		Handler: reg.Handler,
		ctx:     jobCtx,
		cancel:  cancel,
	}
}

// discard removes every trace of a job that never reached the queue.
func (s *Supervisor) discard(job *Job) {
	s.release(job)
	_ = s.store.WithExclusive(job.Token, func(sess *Session) error {
		delete(sess.tasks, job.TaskID)
		delete(sess.pending, job.TaskID)
		return nil
	})
}

func (s *Supervisor) release(job *Job) {
	s.mu.Lock()
	delete(s.running, runKey{token: job.Token, id: job.TaskID})
	s.mu.Unlock()
	job.cancel(nil)
}

// Cancel asks a running or queued task to stop. Cancellation is best
// effort: a body that ignores its context runs to completion. The record is
// checked under the session lock, so a task that has already been recorded
// as finished reports ErrTerminal even while its worker is still releasing it.
func (s *Supervisor) Cancel(ctx context.Context, token, taskID string) error {
	err := s.store.WithExclusive(token, func(sess *Session) error {
		rec, ok := sess.tasks[taskID]
		if !ok {
			return taskIDNotFound(taskID)
		}
		if rec.Status.IsTerminal() {
			return ErrTerminal
		}

		s.mu.Lock()
		cancel, running := s.running[runKey{token: token, id: taskID}]
		s.mu.Unlock()
		if !running {
			return taskIDNotFound(taskID)
		}
		cancel(ErrCancelled)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("task cancellation requested", "task_id", taskID)
	return nil
}

// RunningCount returns the number of accepted tasks that have not finished.
func (s *Supervisor) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// process runs one job on a worker goroutine.
func (s *Supervisor) process(job *Job, workerID int) {
	defer s.release(job)

	logger := s.logger.With(
		"task_id", job.TaskID,
		"task_name", job.Name,
		"worker_id", workerID,
	)

	var args any
	err := s.store.WithExclusive(job.Token, func(sess *Session) error {
		rec, ok := sess.tasks[job.TaskID]
		if !ok {
			return taskIDNotFound(job.TaskID)
		}
		args, _ = sess.takeArguments(job.TaskID)
		if job.ctx.Err() == nil {
			rec.Status = StatusProcessing
			rec.UpdatedAt = time.Now().UTC()
		}
		return nil
	})
	if err != nil {
		logger.Error("task record vanished before processing", "error", err)
		return
	}

	if cause := context.Cause(job.ctx); cause != nil {
		logger.Info("task ended before it started", "cause", cause)
		s.finish(job, nil, cause, logger)
		return
	}

	_ = s.emitter.EmitEvent(job.ctx,
		events.NewTaskEvent(events.TypeTaskUpdated, job.Token, job.TaskID, string(StatusProcessing)))

	runCtx := job.ctx
	if s.config.Timeout > 0 {
		var stop context.CancelFunc
		runCtx, stop = context.WithTimeoutCause(job.ctx, s.config.Timeout, ErrTimedOut)
		defer stop()
	}

	logger.Info("processing task")
	tc := newTaskContext(s.store, s.emitter, job.Token, job.TaskID, job.Name)
	result, err := invoke(runCtx, job.Handler, tc, args)
	if err != nil {
		err = failureCause(runCtx, err)
	}
	s.finish(job, result, err, logger)
}

// invoke runs the body, turning a panic into an error.
func invoke(ctx context.Context, handler Handler, tc *TaskContext, args any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return handler(ctx, tc, args)
}

// failureCause replaces a bare context error with the reason the context
// ended, so records say "task cancelled" rather than "context canceled".
func failureCause(ctx context.Context, err error) error {
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return err
}

// finish records the terminal state. It never fails the worker.
func (s *Supervisor) finish(job *Job, result any, taskErr error, logger *slog.Logger) {
	var status Status
	err := s.store.WithExclusive(job.Token, func(sess *Session) error {
		rec, ok := sess.tasks[job.TaskID]
		if !ok {
			return taskIDNotFound(job.TaskID)
		}
		rec.Active = false
		rec.UpdatedAt = time.Now().UTC()
		if taskErr != nil {
			rec.Status = StatusError
			rec.Result = ErrorPayload{Message: taskErr.Error()}
		} else {
			rec.Status = StatusCompleted
			rec.Progress = 100
			rec.Result = cloneResult(result)
		}
		status = rec.Status
		return nil
	})
	if err != nil {
		logger.Error("failed to record task outcome", "error", err)
		return
	}

	if taskErr != nil {
		logger.Error("task execution failed", "error", redact.Error(taskErr))
	} else {
		logger.Info("task completed successfully")
	}

	_ = s.emitter.EmitEvent(context.Background(),
		events.NewTaskEvent(events.TypeTaskFinished, job.Token, job.TaskID, string(status)))
}
