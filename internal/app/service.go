// Package service wires the scoring pipeline together: voter and election
// sources in, the staged scoring pass over them, results out to a sink.
package service

import (
	"context"
	"runtime"
	"sync"

	resultstore "github.com/voterfile/propensity/internal/adapters/results"
	"github.com/voterfile/propensity/internal/adapters/sink"
	"github.com/voterfile/propensity/internal/adapters/source"
	"github.com/voterfile/propensity/internal/config"
	"github.com/voterfile/propensity/internal/domain/cohort"
	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/internal/domain/normalize"
	"github.com/voterfile/propensity/internal/domain/turnout"
	"github.com/voterfile/propensity/pkg/logger"
)

// Default service configuration constants.
const (
	defaultWorkerMultiplier  = 2 // multiplier for runtime.NumCPU()
	defaultMinEligible       = 2
	defaultMinPriorObs       = 2
	defaultQueueSize         = 100_000
	defaultShardCount        = 16
	defaultWeightParallelism = 4
	defaultSinkBatchSize     = 1_000
)

// Service runs scoring passes over voter files. Each Run is one batch pass
// with its own task queue, duplicate registry, and result store; the query
// surface serves the most recently completed run.
type Service struct {
	mu sync.RWMutex

	// Wiring
	voters    source.VoterSource
	elections source.ElectionSource
	sink      sink.Sink

	// Configuration
	weightFn          turnout.Function
	method            normalize.Method
	policy            normalize.Policy
	bucket            cohort.Bucket
	minEligible       int
	minPriorObs       int
	workerCount       int
	queueSize         int
	shardCount        int
	weightParallelism int
	cohortParallelism int
	sinkBatchSize     int

	// State
	store resultstore.Store
	runID string

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithVoterSource sets where the voter file comes from.
func WithVoterSource(src source.VoterSource) Option {
	return func(s *Service) {
		if src != nil {
			s.voters = src
		}
	}
}

// WithElectionSource sets where the election calendar comes from.
func WithElectionSource(src source.ElectionSource) Option {
	return func(s *Service) {
		if src != nil {
			s.elections = src
		}
	}
}

// WithSink sets where results are delivered.
func WithSink(sk sink.Sink) Option {
	return func(s *Service) {
		if sk != nil {
			s.sink = sk
		}
	}
}

// WithWeightFunction sets the turnout-to-weight mapping.
func WithWeightFunction(fn turnout.Function) Option {
	return func(s *Service) {
		if fn != "" {
			s.weightFn = fn
		}
	}
}

// WithNormalization sets the within-cohort scale.
func WithNormalization(m normalize.Method) Option {
	return func(s *Service) {
		if m != "" {
			s.method = m
		}
	}
}

// WithDegeneratePolicy decides what happens to cohorts too small or too
// uniform to normalize.
func WithDegeneratePolicy(p normalize.Policy) Option {
	return func(s *Service) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithCohortBucket sets registration cohort granularity.
func WithCohortBucket(b cohort.Bucket) Option {
	return func(s *Service) {
		if b != "" {
			s.bucket = b
		}
	}
}

// WithMinEligibleElections sets the observed-history threshold. Voters
// eligible for fewer elections take the imputation path.
func WithMinEligibleElections(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.minEligible = n
		}
	}
}

// WithMinPriorObservations sets how many observed voters a cohort needs
// before its own prior is trusted over the global pool.
func WithMinPriorObservations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minPriorObs = n
		}
	}
}

// WithWorkerCount sets the number of raw-scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the in-memory voter task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithShardCount sets the result store shard count.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithWeightParallelism bounds concurrent election weighting.
func WithWeightParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.weightParallelism = n
		}
	}
}

// WithCohortParallelism bounds concurrent cohort normalization.
func WithCohortParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cohortParallelism = n
		}
	}
}

// WithSinkBatchSize sets how many results go to the sink per write.
func WithSinkBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.sinkBatchSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// FromConfig maps a loaded configuration onto the service. Enum values are
// validated by config.Load; the log level is applied immediately, falling
// back to info on a bad value.
func FromConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		if err := logger.SetLevelString(cfg.LogLevel); err != nil {
			_ = logger.SetLevelString("info")
		}
		s.weightFn = turnout.Function(cfg.WeightFunction)
		s.method = normalize.Method(cfg.Normalization)
		s.policy = normalize.Policy(cfg.DegenerateCohorts)
		s.bucket = cohort.Bucket(cfg.CohortBucket)
		s.minEligible = cfg.MinEligibleElections
		s.minPriorObs = cfg.MinPriorObservations
		s.workerCount = cfg.WorkerCount
		s.queueSize = cfg.QueueSize
		s.shardCount = cfg.ShardCount
		s.weightParallelism = cfg.WeightParallelism
		s.cohortParallelism = cfg.CohortParallelism
		s.sinkBatchSize = cfg.SinkBatchSize
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		weightFn:          turnout.FunctionInverse,
		method:            normalize.MethodZScore,
		policy:            normalize.PolicyCohortMean,
		bucket:            cohort.BucketYear,
		minEligible:       defaultMinEligible,
		minPriorObs:       defaultMinPriorObs,
		workerCount:       runtime.NumCPU() * defaultWorkerMultiplier,
		queueSize:         defaultQueueSize,
		shardCount:        defaultShardCount,
		weightParallelism: defaultWeightParallelism,
		cohortParallelism: runtime.NumCPU(),
		sinkBatchSize:     defaultSinkBatchSize,
		logger:            nil, // resolved on first run
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// TopN returns the n highest final scores of the last completed run, ties
// broken by voter id.
func (s *Service) TopN(ctx context.Context, n int) ([]model.Result, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return nil, ErrNoRun
	}
	return store.TopN(ctx, n)
}

// Result returns the last completed run's result for one voter.
func (s *Service) Result(ctx context.Context, voterID string) (model.Result, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return model.Result{}, ErrNoRun
	}
	return store.Get(ctx, voterID)
}

// LastRunID returns the id of the last completed run, or the empty string
// before any run has completed.
func (s *Service) LastRunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}
