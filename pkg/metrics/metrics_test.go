package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithPrometheusRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating two managers on separate registries", func() {
			a := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
			b := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then both should register without collision", func() {
				So(a, ShouldNotBeNil)
				So(b, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording run metrics", func() {
			Convey("Then it should record run lifecycle", func() {
				So(func() {
					RecordRunStarted()
					RecordRunCompleted()
					RecordRunFailed()
					RecordRunDuration(120.0)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording stage metrics", func() {
			Convey("Then it should record durations and errors by stage", func() {
				So(func() {
					RecordStageDuration("weights", 3.5)
					RecordStageDuration("score", 12.0)
					RecordStageError("normalize", "degenerate_cohort")
					RecordStageError("score", "unknown_election")
				}, ShouldNotPanic)
			})
		})

		Convey("When recording voter flow metrics", func() {
			Convey("Then it should record each terminal path", func() {
				So(func() {
					RecordVoterScored()
					RecordVoterNormalized()
					RecordVoterImputed()
					RecordVoterFailure()
					RecordResultEmitted()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording election metrics", func() {
			Convey("Then it should record weighted and rejected elections", func() {
				So(func() {
					RecordElectionWeighted()
					RecordElectionRejected()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording cohort metrics", func() {
			Convey("Then it should record cohort shape", func() {
				So(func() {
					UpdateCohortCount(12)
					ObserveCohortSize(40)
					RecordDegenerateCohort()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording store metrics", func() {
			Convey("Then it should record shard and snapshot behavior", func() {
				So(func() {
					UpdateStoreShardCount(16)
					UpdateStoreRecords(1000)
					RecordStoreSnapshotDuration(4.2)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording sink metrics", func() {
			Convey("Then it should record writes and flushes", func() {
				So(func() {
					RecordSinkWrite()
					RecordSinkWriteError()
					RecordSinkFlushDuration(8.0)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording worker metrics", func() {
			Convey("Then it should record worker counts and latency", func() {
				So(func() {
					UpdateWorkerCount(8)
					RecordScoreLatency(0.05)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording task queue metrics", func() {
			Convey("Then it should record depth, capacity, and rejections", func() {
				So(func() {
					UpdateQueueCapacity(100_000)
					UpdateQueueDepth(42)
					RecordQueueRejection()
				}, ShouldNotPanic)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		Convey("When retrieving it", func() {
			registry := GetRegistry()

			Convey("Then it should not be nil", func() {
				So(registry, ShouldNotBeNil)
			})

			Convey("And gathering should include pipeline metrics", func() {
				RecordRunStarted()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)

				found := false
				for _, fam := range families {
					if fam.GetName() == "propensity_pipeline_runs_started_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}
