// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - Enum-valued keys are validated at load time so a typo fails the run
//   before any voter is scored.
// - External errors must be wrapped via this package's error kinds.
package config

import (
	"context"
	"runtime"
)

// Config contains one scoring run's tunables. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// WeightFunction maps turnout rates to weights: inverse or surprisal.
	WeightFunction string `koanf:"weight_function"`

	// Normalization picks the within-cohort scale:
	// zscore, minmax, percentile, or maxratio.
	Normalization string `koanf:"normalization"`

	// DegenerateCohorts decides what happens to cohorts too small or too
	// uniform to normalize: cohort-mean or error.
	DegenerateCohorts string `koanf:"degenerate_cohorts"`

	// CohortBucket sets registration cohort granularity:
	// year, quarter, or month.
	CohortBucket string `koanf:"cohort_bucket"`

	// MinEligibleElections is the observed-history threshold. Voters
	// eligible for fewer elections take the imputation path.
	MinEligibleElections int `koanf:"min_eligible_elections"`

	// MinPriorObservations is how many observed voters a cohort needs
	// before its own prior is trusted over the global pool.
	MinPriorObservations int `koanf:"min_prior_observations"`

	// WorkerCount sets the number of raw-scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory voter task queue.
	QueueSize int `koanf:"queue_size"`

	// ShardCount configures the number of shards in the result store.
	ShardCount int `koanf:"shard_count"`

	// WeightParallelism bounds concurrent election weighting.
	WeightParallelism int `koanf:"weight_parallelism"`

	// CohortParallelism bounds concurrent cohort normalization.
	CohortParallelism int `koanf:"cohort_parallelism"`

	// SinkBatchSize is how many results go to the sink per write.
	SinkBatchSize int `koanf:"sink_batch_size"`
}

// New creates a Config using defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:             "info",
		WeightFunction:       "inverse",
		Normalization:        "zscore",
		DegenerateCohorts:    "cohort-mean",
		CohortBucket:         "year",
		MinEligibleElections: 2,
		MinPriorObservations: 2,
		WorkerCount:          runtime.NumCPU() * 2,
		QueueSize:            100_000,
		ShardCount:           16,
		WeightParallelism:    4,
		CohortParallelism:    runtime.NumCPU(),
		SinkBatchSize:        1_000,
	}
	return c
}
