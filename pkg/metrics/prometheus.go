// Package metrics provides Prometheus metrics for the propensity scoring
// pipeline. Metrics are registered on a custom registry so the embedding
// application decides how (or whether) to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the scoring pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Run Metrics - One scoring pass over a voter file
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsFailed    prometheus.Counter
	runDuration   prometheus.Histogram

	// Stage Metrics - Weighting, scoring, normalization, imputation, emit
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec

	// Voter Flow Metrics - Where each registrant ended up
	votersScored     prometheus.Counter
	votersNormalized prometheus.Counter
	votersImputed    prometheus.Counter
	voterFailures    prometheus.Counter
	resultsEmitted   prometheus.Counter

	// Election Metrics - Weight table construction
	electionsWeighted prometheus.Counter
	electionsRejected prometheus.Counter

	// Cohort Metrics - Registration cohort shape
	cohortCount       prometheus.Gauge
	cohortSize        prometheus.Histogram
	degenerateCohorts prometheus.Counter

	// Result Store Metrics - Shard and snapshot behavior
	storeShardCount       prometheus.Gauge
	storeRecords          prometheus.Gauge
	storeSnapshotDuration prometheus.Histogram

	// Sink Metrics - Result delivery
	sinkWrites        prometheus.Counter
	sinkWriteErrors   prometheus.Counter
	sinkFlushDuration prometheus.Histogram

	// Worker Metrics - Scoring fan-out
	workerCount  prometheus.Gauge
	scoreLatency prometheus.Histogram

	// Task Queue Metrics - Voter hand-off to the scoring workers
	queueDepth      prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueRejections prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "propensity",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Register on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Run Metrics
	m.runsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_started_total",
		Help:      "Total number of scoring runs started",
	})

	m.runsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_completed_total",
		Help:      "Total number of scoring runs completed successfully",
	})

	m.runsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_failed_total",
		Help:      "Total number of scoring runs aborted by an error",
	})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_milliseconds",
		Help:      "End-to-end duration of a scoring run in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Stage Metrics
	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_duration_milliseconds",
			Help:      "Duration of each pipeline stage in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stage"},
	)

	m.stageErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_errors_total",
			Help:      "Total number of errors by stage and error type",
		},
		[]string{"stage", "error_type"},
	)

	// Voter Flow Metrics
	m.votersScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "voters_scored_total",
		Help:      "Total number of voters with a raw participation score",
	})

	m.votersNormalized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "voters_normalized_total",
		Help:      "Total number of voters normalized within their cohort",
	})

	m.votersImputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "voters_imputed_total",
		Help:      "Total number of voters whose final score was imputed",
	})

	m.voterFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "voter_failures_total",
		Help:      "Total number of voters excluded from output by errors",
	})

	m.resultsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_emitted_total",
		Help:      "Total number of results delivered to the sink",
	})

	// Election Metrics
	m.electionsWeighted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "elections_weighted_total",
		Help:      "Total number of elections with a computed turnout weight",
	})

	m.electionsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "elections_rejected_total",
		Help:      "Total number of elections rejected for invalid turnout data",
	})

	// Cohort Metrics
	m.cohortCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cohort_count",
		Help:      "Number of registration cohorts in the current run",
	})

	m.cohortSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cohort_size",
		Help:      "Distribution of cohort sizes (voters per cohort)",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})

	m.degenerateCohorts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "degenerate_cohorts_total",
		Help:      "Total number of cohorts with too few voters or zero variance",
	})

	// Result Store Metrics
	m.storeShardCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_shard_count",
		Help:      "Number of result store shards",
	})

	m.storeRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_records",
		Help:      "Number of results held by the run-local store",
	})

	m.storeSnapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_snapshot_duration_milliseconds",
		Help:      "Result store snapshot build duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Sink Metrics
	m.sinkWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_writes_total",
		Help:      "Total number of results written to the sink",
	})

	m.sinkWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_write_errors_total",
		Help:      "Total number of sink write failures",
	})

	m.sinkFlushDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_flush_duration_milliseconds",
		Help:      "Sink batch flush duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Worker Metrics
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of workers scoring voters concurrently",
	})

	m.scoreLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_latency_milliseconds",
		Help:      "Per-voter raw scoring latency in milliseconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})

	// Task Queue Metrics
	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "task_queue_depth",
		Help:      "Number of voters waiting in the scoring task queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "task_queue_capacity",
		Help:      "Configured capacity of the scoring task queue",
	})

	m.queueRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "task_queue_rejections_total",
		Help:      "Total number of voters the task queue refused to accept",
	})
}

// Run Metrics Functions.

// RecordRunStarted increments the started runs counter.
func RecordRunStarted() {
	globalManager.runsStarted.Inc()
}

// RecordRunCompleted increments the completed runs counter.
func RecordRunCompleted() {
	globalManager.runsCompleted.Inc()
}

// RecordRunFailed increments the failed runs counter.
func RecordRunFailed() {
	globalManager.runsFailed.Inc()
}

// RecordRunDuration records end-to-end run duration in milliseconds.
func RecordRunDuration(durationMs float64) {
	globalManager.runDuration.Observe(durationMs)
}

// Stage Metrics Functions.

// RecordStageDuration records a stage duration in milliseconds.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordStageError records an error with stage and type labels.
func RecordStageError(stage, errorType string) {
	globalManager.stageErrors.WithLabelValues(stage, errorType).Inc()
}

// Voter Flow Metrics Functions.

// RecordVoterScored increments the scored voters counter.
func RecordVoterScored() {
	globalManager.votersScored.Inc()
}

// RecordVoterNormalized increments the normalized voters counter.
func RecordVoterNormalized() {
	globalManager.votersNormalized.Inc()
}

// RecordVoterImputed increments the imputed voters counter.
func RecordVoterImputed() {
	globalManager.votersImputed.Inc()
}

// RecordVoterFailure increments the failed voters counter.
func RecordVoterFailure() {
	globalManager.voterFailures.Inc()
}

// RecordResultEmitted increments the emitted results counter.
func RecordResultEmitted() {
	globalManager.resultsEmitted.Inc()
}

// Election Metrics Functions.

// RecordElectionWeighted increments the weighted elections counter.
func RecordElectionWeighted() {
	globalManager.electionsWeighted.Inc()
}

// RecordElectionRejected increments the rejected elections counter.
func RecordElectionRejected() {
	globalManager.electionsRejected.Inc()
}

// Cohort Metrics Functions.

// UpdateCohortCount sets the number of cohorts in the current run.
func UpdateCohortCount(count int) {
	globalManager.cohortCount.Set(float64(count))
}

// ObserveCohortSize records the size of one cohort.
func ObserveCohortSize(size int) {
	globalManager.cohortSize.Observe(float64(size))
}

// RecordDegenerateCohort increments the degenerate cohorts counter.
func RecordDegenerateCohort() {
	globalManager.degenerateCohorts.Inc()
}

// Result Store Metrics Functions.

// UpdateStoreShardCount sets the number of result store shards.
func UpdateStoreShardCount(count int) {
	globalManager.storeShardCount.Set(float64(count))
}

// UpdateStoreRecords sets the number of results held by the store.
func UpdateStoreRecords(count int) {
	globalManager.storeRecords.Set(float64(count))
}

// RecordStoreSnapshotDuration records a snapshot build duration in milliseconds.
func RecordStoreSnapshotDuration(durationMs float64) {
	globalManager.storeSnapshotDuration.Observe(durationMs)
}

// Sink Metrics Functions.

// RecordSinkWrite increments the sink writes counter.
func RecordSinkWrite() {
	globalManager.sinkWrites.Inc()
}

// RecordSinkWriteError increments the sink write errors counter.
func RecordSinkWriteError() {
	globalManager.sinkWriteErrors.Inc()
}

// RecordSinkFlushDuration records a sink flush duration in milliseconds.
func RecordSinkFlushDuration(durationMs float64) {
	globalManager.sinkFlushDuration.Observe(durationMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the number of scoring workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordScoreLatency records per-voter scoring latency in milliseconds.
func RecordScoreLatency(latencyMs float64) {
	globalManager.scoreLatency.Observe(latencyMs)
}

// Task Queue Metrics Functions.

// UpdateQueueDepth sets the current number of queued voters.
func UpdateQueueDepth(depth int) {
	globalManager.queueDepth.Set(float64(depth))
}

// UpdateQueueCapacity sets the configured task queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejection increments the rejected tasks counter.
func RecordQueueRejection() {
	globalManager.queueRejections.Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
