// Package results defines the run-local result store and errors.
package results

import (
	"context"

	"github.com/voterfile/propensity/internal/domain/model"
)

// Store provides write/read access to one run's scored results.
type Store interface {
	// Put records a terminal result for a voter. Each voter reaches the
	// output exactly once; a second Put for the same id returns
	// ErrAlreadyRecorded.
	Put(ctx context.Context, r model.Result) error

	// Get returns the recorded result for a voter.
	// Returns ErrNotFound when the voter has no result.
	Get(ctx context.Context, voterID string) (model.Result, error)

	// Snapshot returns every recorded result sorted by voter id.
	Snapshot(ctx context.Context) []model.Result

	// TopN returns the n highest final scores, ties broken by voter id.
	TopN(ctx context.Context, n int) ([]model.Result, error)

	// Count returns the number of recorded results.
	Count(ctx context.Context) int
}
