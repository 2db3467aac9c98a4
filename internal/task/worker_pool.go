package task

import (
	"log/slog"
	"sync"
)

// WorkerPool runs a fixed number of goroutines that drain a TaskQueue.
type WorkerPool struct {
	// queue provides the jobs to be processed
	queue *TaskQueue

	// workerCount is the number of concurrent workers to start
	workerCount int

	// process runs a single job
	process func(job *Job, workerID int)

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	logger *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 4,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(
	queue *TaskQueue,
	config WorkerPoolConfig,
	process func(job *Job, workerID int),
	logger *slog.Logger,
) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	return &WorkerPool{
		queue:       queue,
		workerCount: workerCount,
		process:     process,
		logger:      logger,
	}
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", "worker_count", p.workerCount)
}

// Wait blocks until every worker has exited. Workers exit once the queue is
// closed and drained.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)
	for job := range p.queue.GetChannel() {
		p.process(job, id)
	}
	p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
}
