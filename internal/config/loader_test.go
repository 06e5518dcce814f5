package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/voterfile/propensity/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			// Clear any existing environment variables
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.WeightFunction, convey.ShouldEqual, "inverse")
				convey.So(cfg.Normalization, convey.ShouldEqual, "zscore")
				convey.So(cfg.CohortBucket, convey.ShouldEqual, "year")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.SinkBatchSize, convey.ShouldEqual, 1_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			// Set environment variables
			_ = os.Setenv("PROPENSITY_WEIGHT_FUNCTION", "surprisal")
			_ = os.Setenv("PROPENSITY_NORMALIZATION", "percentile")
			_ = os.Setenv("PROPENSITY_COHORT_BUCKET", "month")
			_ = os.Setenv("PROPENSITY_WORKER_COUNT", "16")
			_ = os.Setenv("PROPENSITY_QUEUE_SIZE", "50000")
			_ = os.Setenv("PROPENSITY_MIN_ELIGIBLE_ELECTIONS", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.WeightFunction, convey.ShouldEqual, "surprisal")
				convey.So(cfg.Normalization, convey.ShouldEqual, "percentile")
				convey.So(cfg.CohortBucket, convey.ShouldEqual, "month")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 50000)
				convey.So(cfg.MinEligibleElections, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			// Create a temporary YAML config file
			yamlContent := `
weight_function: "surprisal"
normalization: "maxratio"
degenerate_cohorts: "error"
cohort_bucket: "quarter"
worker_count: 24
shard_count: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			// Set the config file path
			_ = os.Setenv("PROPENSITY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.WeightFunction, convey.ShouldEqual, "surprisal")
				convey.So(cfg.Normalization, convey.ShouldEqual, "maxratio")
				convey.So(cfg.DegenerateCohorts, convey.ShouldEqual, "error")
				convey.So(cfg.CohortBucket, convey.ShouldEqual, "quarter")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.ShardCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
normalization: "minmax"
worker_count: 24
queue_size: 300000
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			// Env should win over file
			_ = os.Setenv("PROPENSITY_CONFIG", tmpFile)
			_ = os.Setenv("PROPENSITY_NORMALIZATION", "percentile")
			_ = os.Setenv("PROPENSITY_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Normalization, convey.ShouldEqual, "percentile") // Overridden by env
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)             // Overridden by env
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300000)           // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PROPENSITY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PROPENSITY_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with partial YAML file", func() {
			yamlContent := `
normalization: "minmax"
worker_count: 16
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PROPENSITY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge with defaults for missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Normalization, convey.ShouldEqual, "minmax")  // From file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)          // From file
				convey.So(cfg.WeightFunction, convey.ShouldEqual, "inverse") // From defaults
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)       // From defaults
				convey.So(cfg.MinEligibleElections, convey.ShouldEqual, 2)  // From defaults
			})
		})
	})
}

func TestConfigLoaderValidation(t *testing.T) {
	convey.Convey("Given the loader's validation", t, func() {
		ctx := context.Background()

		convey.Convey("When the weight function is not a known enum value", func() {
			_ = os.Setenv("PROPENSITY_WEIGHT_FUNCTION", "logit")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error naming the key", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "weight_function")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the normalization method is unknown", func() {
			_ = os.Setenv("PROPENSITY_NORMALIZATION", "rank-o-matic")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the degenerate-cohort policy is unknown", func() {
			_ = os.Setenv("PROPENSITY_DEGENERATE_COHORTS", "ignore")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the cohort bucket is unknown", func() {
			_ = os.Setenv("PROPENSITY_COHORT_BUCKET", "decade")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the log level is unknown", func() {
			_ = os.Setenv("PROPENSITY_LOG_LEVEL", "chatty")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When counts are zero or negative", func() {
			_ = os.Setenv("PROPENSITY_WORKER_COUNT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should reject the bound", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "worker_count")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the history threshold is below one", func() {
			_ = os.Setenv("PROPENSITY_MIN_ELIGIBLE_ELECTIONS", "-1")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should reject the threshold", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "min_eligible_elections")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When numeric env vars fail to parse", func() {
			_ = os.Setenv("PROPENSITY_QUEUE_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"PROPENSITY_CONFIG",
		"PROPENSITY_LOG_LEVEL",
		"PROPENSITY_WEIGHT_FUNCTION",
		"PROPENSITY_NORMALIZATION",
		"PROPENSITY_DEGENERATE_COHORTS",
		"PROPENSITY_COHORT_BUCKET",
		"PROPENSITY_MIN_ELIGIBLE_ELECTIONS",
		"PROPENSITY_MIN_PRIOR_OBSERVATIONS",
		"PROPENSITY_WORKER_COUNT",
		"PROPENSITY_QUEUE_SIZE",
		"PROPENSITY_SHARD_COUNT",
		"PROPENSITY_WEIGHT_PARALLELISM",
		"PROPENSITY_COHORT_PARALLELISM",
		"PROPENSITY_SINK_BATCH_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "propensity-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
