package results

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/pkg/metrics"
)

// Sharded, in-memory Store implementation.
//
// Writes land on a shard picked by voter-id hash, so concurrent scoring
// workers rarely contend. Snapshot ordering is voter id ASC; TopN ordering
// is final score DESC with voter id ASC as the deterministic tie-breaker.

// Default store configuration constants.
const (
	defaultShardCount = 16
)

// shard is one lock domain of the store.
type shard struct {
	mu      sync.RWMutex
	results map[string]model.Result
}

// ShardedStore implements Store over hash-distributed shards.
type ShardedStore struct {
	shards []*shard
}

// NewShardedStore creates a sharded store.
func NewShardedStore(opts ...Option) *ShardedStore {
	s := &ShardedStore{}

	cfg := storeConfig{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.shards = make([]*shard, cfg.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{results: make(map[string]model.Result)}
	}
	metrics.UpdateStoreShardCount(len(s.shards))

	return s
}

// shardFor picks the shard owning a voter id.
func (s *ShardedStore) shardFor(voterID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(voterID)) //nolint:errcheck // fnv writes never fail
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Put records a terminal result for a voter.
func (s *ShardedStore) Put(_ context.Context, r model.Result) error {
	sh := s.shardFor(r.VoterID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.results[r.VoterID]; exists {
		return ErrAlreadyRecorded
	}
	sh.results[r.VoterID] = r
	return nil
}

// Get returns the recorded result for a voter.
func (s *ShardedStore) Get(_ context.Context, voterID string) (model.Result, error) {
	sh := s.shardFor(voterID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	r, ok := sh.results[voterID]
	if !ok {
		return model.Result{}, ErrNotFound
	}
	return r, nil
}

// Snapshot returns every recorded result sorted by voter id.
func (s *ShardedStore) Snapshot(ctx context.Context) []model.Result {
	start := time.Now()

	all := s.collect(ctx)
	sort.Slice(all, func(i, j int) bool { return all[i].VoterID < all[j].VoterID })

	metrics.UpdateStoreRecords(len(all))
	metrics.RecordStoreSnapshotDuration(float64(time.Since(start).Milliseconds()))
	return all
}

// TopN returns the n highest final scores for targeting queries.
func (s *ShardedStore) TopN(ctx context.Context, n int) ([]model.Result, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}

	all := s.collect(ctx)
	sort.Slice(all, func(i, j int) bool {
		if all[i].FinalScore != all[j].FinalScore {
			return all[i].FinalScore > all[j].FinalScore
		}
		return all[i].VoterID < all[j].VoterID
	})
	if n > len(all) {
		n = len(all)
	}
	return all[:n], nil
}

// Count returns the number of recorded results.
func (s *ShardedStore) Count(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.results)
		sh.mu.RUnlock()
	}
	return total
}

// collect copies every result out of the shards.
func (s *ShardedStore) collect(_ context.Context) []model.Result {
	all := make([]model.Result, 0, s.Count(context.Background()))
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, r := range sh.results {
			all = append(all, r)
		}
		sh.mu.RUnlock()
	}
	return all
}
