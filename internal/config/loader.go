package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if PROPENSITY_CONFIG is set
//  3. env (prefix PROPENSITY_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("PROPENSITY_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: PROPENSITY_NORMALIZATION, PROPENSITY_QUEUE_SIZE, ...
	// Map env keys like PROPENSITY_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PROPENSITY_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "propensity_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects enum values the pipeline components would refuse and
// bounds no stage could run with. The strings mirror the domain enums; the
// pipeline maps them onto typed options.
func validate(c *Config) error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log_level", c.LogLevel)
	}

	switch c.WeightFunction {
	case "inverse", "surprisal":
	default:
		return invalid("weight_function", c.WeightFunction)
	}

	switch c.Normalization {
	case "zscore", "minmax", "percentile", "maxratio":
	default:
		return invalid("normalization", c.Normalization)
	}

	switch c.DegenerateCohorts {
	case "cohort-mean", "error":
	default:
		return invalid("degenerate_cohorts", c.DegenerateCohorts)
	}

	switch c.CohortBucket {
	case "year", "quarter", "month":
	default:
		return invalid("cohort_bucket", c.CohortBucket)
	}

	if c.MinEligibleElections < 1 {
		return invalid("min_eligible_elections", fmt.Sprint(c.MinEligibleElections))
	}
	if c.MinPriorObservations < 1 {
		return invalid("min_prior_observations", fmt.Sprint(c.MinPriorObservations))
	}
	for key, v := range map[string]int{
		"worker_count":       c.WorkerCount,
		"queue_size":         c.QueueSize,
		"shard_count":        c.ShardCount,
		"weight_parallelism": c.WeightParallelism,
		"cohort_parallelism": c.CohortParallelism,
		"sink_batch_size":    c.SinkBatchSize,
	} {
		if v < 1 {
			return invalid(key, fmt.Sprint(v))
		}
	}
	return nil
}

func invalid(key, value string) error {
	return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, value)
}
