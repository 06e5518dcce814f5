// Package sink delivers scored results out of the pipeline.
package sink

import (
	"context"
	"sync"

	"github.com/voterfile/propensity/internal/domain/model"
)

// Sink receives the scored output of runs. Batches arrive sorted by voter
// id; a batch belongs to exactly one run.
type Sink interface {
	// Write delivers one batch of results for a run.
	Write(ctx context.Context, runID string, batch []model.Result) error

	// Close flushes and releases the sink. No writes may follow.
	Close(ctx context.Context) error
}

// MemorySink collects results in memory for tests and embedders that
// post-process scores themselves.
type MemorySink struct {
	mu     sync.Mutex
	byRun  map[string][]model.Result
	closed bool
}

// NewMemorySink creates an in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{byRun: make(map[string][]model.Result)}
}

// Write appends the batch under its run id.
func (s *MemorySink) Write(ctx context.Context, runID string, batch []model.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.byRun[runID] = append(s.byRun[runID], batch...)
	return nil
}

// Close marks the sink closed.
func (s *MemorySink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ByRun returns the results collected for one run.
func (s *MemorySink) ByRun(runID string) []model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Result, len(s.byRun[runID]))
	copy(out, s.byRun[runID])
	return out
}

// Runs returns how many distinct runs have written.
func (s *MemorySink) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byRun)
}
