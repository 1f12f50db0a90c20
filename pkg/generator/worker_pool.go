package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gnana997/jsdocgen/pkg/util"
)

// ProcessFunc scans one file. It runs on worker goroutines and must be safe
// for concurrent use.
type ProcessFunc func(job FileJob) (JobResult, error)

// WorkerPool fans file jobs out to a fixed set of goroutines.
//
// Usage:
//
//	pool := NewWorkerPool(numWorkers, process, logger)
//	pool.Start()
//	go collect(pool.Results(), pool.Errors())
//	for _, job := range jobs {
//	    pool.Submit(ctx, job)
//	}
//	pool.Stop() // waits for in-flight jobs, then closes Results and Errors
//
// The consumer must be draining Results and Errors before jobs are
// submitted, otherwise workers block on a full channel and Submit blocks
// behind them.
type WorkerPool struct {
	numWorkers int
	jobs       chan FileJob
	results    chan JobResult
	errors     chan FileError
	wg         sync.WaitGroup
	process    ProcessFunc
	logger     *slog.Logger

	started    atomic.Bool
	stopped    atomic.Bool
	jobsClosed atomic.Bool

	jobsSubmitted atomic.Int64
	jobsProcessed atomic.Int64
	jobsFailed    atomic.Int64
}

// NewWorkerPool creates a pool. numWorkers 0 uses util.GetOptimalPoolSize().
func NewWorkerPool(numWorkers int, process ProcessFunc, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	numWorkers = util.GetOptimalPoolSizeWithOverride(numWorkers)

	return &WorkerPool{
		numWorkers: numWorkers,
		jobs:       make(chan FileJob, numWorkers*2),
		results:    make(chan JobResult, numWorkers),
		errors:     make(chan FileError, numWorkers),
		process:    process,
		logger:     logger,
	}
}

// Start spawns the workers. It must be called before Submit.
func (wp *WorkerPool) Start() {
	if !wp.started.CompareAndSwap(false, true) {
		wp.logger.Warn("WorkerPool already started")
		return
	}

	wp.logger.Debug("Starting worker pool", "workers", wp.numWorkers)
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// worker drains the jobs channel until it is closed. Jobs already queued
// are always finished, so cancelling a run never leaves a half-scanned file.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		wp.processJob(id, job)
	}
	wp.logger.Debug("Worker exiting", "worker_id", id)
}

func (wp *WorkerPool) processJob(workerID int, job FileJob) {
	result, err := wp.process(job)
	if err != nil {
		wp.logger.Debug("Job failed", "worker_id", workerID, "file", job.RelPath, "error", err)
		wp.jobsFailed.Add(1)
		wp.errors <- FileError{Path: job.Path, RelPath: job.RelPath, Err: err}
		return
	}

	wp.jobsProcessed.Add(1)
	result.Job = job
	wp.results <- result
}

// Submit enqueues a job, blocking while the queue is full. It returns early
// when ctx is cancelled.
func (wp *WorkerPool) Submit(ctx context.Context, job FileJob) error {
	if wp.stopped.Load() || wp.jobsClosed.Load() {
		return fmt.Errorf("worker pool is not accepting jobs")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.jobs <- job:
		wp.jobsSubmitted.Add(1)
		return nil
	}
}

// Results returns the results channel. It is closed by Stop.
func (wp *WorkerPool) Results() <-chan JobResult {
	return wp.results
}

// Errors returns the errors channel. It is closed by Stop.
func (wp *WorkerPool) Errors() <-chan FileError {
	return wp.errors
}

// FinishSubmitting closes the jobs channel. Safe to call more than once.
func (wp *WorkerPool) FinishSubmitting() {
	if wp.jobsClosed.CompareAndSwap(false, true) {
		close(wp.jobs)
		wp.logger.Debug("Jobs channel closed", "total_submitted", wp.jobsSubmitted.Load())
	}
}

// Stop closes the jobs channel if needed, waits for the workers, and closes
// the result and error channels. Safe to call more than once.
func (wp *WorkerPool) Stop() {
	if !wp.stopped.CompareAndSwap(false, true) {
		return
	}

	wp.FinishSubmitting()
	wp.wg.Wait()

	close(wp.results)
	close(wp.errors)

	wp.logger.Debug("Worker pool stopped",
		"jobs_submitted", wp.jobsSubmitted.Load(),
		"jobs_processed", wp.jobsProcessed.Load(),
		"jobs_failed", wp.jobsFailed.Load())
}

// GetStats returns current worker pool statistics.
func (wp *WorkerPool) GetStats() WorkerPoolStats {
	return WorkerPoolStats{
		NumWorkers:    wp.numWorkers,
		JobsSubmitted: wp.jobsSubmitted.Load(),
		JobsProcessed: wp.jobsProcessed.Load(),
		JobsFailed:    wp.jobsFailed.Load(),
		QueueLength:   len(wp.jobs),
	}
}

// WorkerPoolStats contains statistics about the worker pool.
type WorkerPoolStats struct {
	NumWorkers    int
	JobsSubmitted int64
	JobsProcessed int64
	JobsFailed    int64
	QueueLength   int
}
