// Package dedupe detects duplicate registrants in a voter file.
//
// A voter file with duplicate ids would double-count participation, so the
// pipeline refuses to score one. The registry never evicts: a duplicate
// arriving hours into a load must still be caught.
package dedupe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/voterfile/propensity/internal/domain/model"
)

// Registry records seen voter ids so batches can be checked for duplicates.
type Registry interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true when id is a duplicate.
	SeenAndRecord(ctx context.Context, id string) bool

	Size() int64
}

// inMemoryRegistry implements Registry with a mutex-guarded set.
type inMemoryRegistry struct {
	mu   sync.Mutex
	seen map[string]struct{}
	size atomic.Int64
}

// NewInMemoryRegistry creates an in-memory registry.
func NewInMemoryRegistry(opts ...Option) Registry {
	r := &inMemoryRegistry{}

	for _, opt := range opts {
		opt(r)
	}

	if r.seen == nil {
		r.seen = make(map[string]struct{})
	}
	return r
}

// SeenAndRecord atomically checks whether id was seen and records it if not.
func (r *inMemoryRegistry) SeenAndRecord(_ context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.seen[id]; exists {
		return true
	}
	r.seen[id] = struct{}{}
	r.size.Add(1)
	return false
}

// Size returns the number of recorded ids.
func (r *inMemoryRegistry) Size() int64 {
	return r.size.Load()
}

// Check scans a voter slice against the registry and returns every problem
// joined into one error: blank ids and ids seen before, whether earlier in
// the slice or in a previous batch through the same registry.
func Check(ctx context.Context, r Registry, voters []model.Voter) error {
	var errs []error
	for _, v := range voters {
		if err := ctx.Err(); err != nil {
			return err
		}
		if v.ID == "" {
			errs = append(errs, ErrMissingVoterID)
			continue
		}
		if r.SeenAndRecord(ctx, v.ID) {
			errs = append(errs, &DuplicateVoterError{VoterID: v.ID})
		}
	}
	return errors.Join(errs...)
}
