// Package worker fans raw scoring out over a pool of goroutines.
//
// Workers drain voter tasks off the queue, score each one, and hand the
// outcome to a Recorder. A batch run enqueues all voters, closes the queue,
// and waits for the pool to drain it.
package worker

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/voterfile/propensity/internal/adapters/mq/queue"
	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/pkg/logger"
	"github.com/voterfile/propensity/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU(); scoring is CPU-bound
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Task abstracts what workers read off the queue.
// Using the model.Voter type for consistency.
type Task = model.Voter

// Scorer computes a raw participation score for one voter. The weight table
// is bound by the caller, so workers stay ignorant of where weights come
// from.
type Scorer interface {
	Score(ctx context.Context, v model.Voter) (float64, error)
}

// Recorder receives scoring outcomes. Implementations must be safe for
// concurrent use; every worker in the pool calls them.
type Recorder interface {
	// RecordScore stores one voter's raw score.
	RecordScore(ctx context.Context, voterID string, raw float64)

	// RecordFailure stores one voter's scoring error.
	RecordFailure(ctx context.Context, voterID string, err error)
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Worker processes voter tasks until its queue drains or it is shut down.
type Worker interface {
	// Run starts the worker loop until the queue drains or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for scoring voter tasks.
type InMemoryWorker struct {
	queue    Queue
	scorer   Scorer
	recorder Recorder
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer Scorer, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		recorder: recorder,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	taskChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-taskChan:
			if !ok {
				// Queue drained and closed, the batch is done
				return
			}
			w.processTask(ctx, task)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return ctx.Err()
	}
}

// processTask scores a single voter and records the outcome.
func (w *InMemoryWorker) processTask(ctx context.Context, task queue.Task) {
	start := time.Now()
	raw, err := w.scorer.Score(ctx, task)
	metrics.RecordScoreLatency(float64(time.Since(start).Microseconds()) / 1000.0)

	if err != nil {
		metrics.RecordStageError("score", "scoring_failed")
		w.logger.Debug(ctx, "scoring failed",
			logger.String("voterID", task.ID),
			logger.Error(err),
		)
		w.recorder.RecordFailure(ctx, task.ID, err)
		return
	}

	w.recorder.RecordScore(ctx, task.ID, raw)
}

// Pool manages multiple workers draining one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	scorer   Scorer
	recorder Recorder

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, scorer Scorer, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		scorer:   scorer,
		recorder: recorder,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			scorer,
			recorder,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker finishes draining the queue. The queue
// must be closed first or Wait never returns; ctx bounds the wait.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stop stops all workers without waiting for the queue to drain.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		select {
		case <-w.shutdown:
			// already shut down individually
		default:
			close(w.shutdown)
		}
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new tasks
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
