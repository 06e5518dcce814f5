package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/voterfile/propensity/internal/adapters/mq/queue"
	"github.com/voterfile/propensity/internal/adapters/mq/worker"
	resultstore "github.com/voterfile/propensity/internal/adapters/results"
	"github.com/voterfile/propensity/internal/domain/cohort"
	"github.com/voterfile/propensity/internal/domain/dedupe"
	"github.com/voterfile/propensity/internal/domain/impute"
	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/internal/domain/normalize"
	"github.com/voterfile/propensity/internal/domain/scoring"
	"github.com/voterfile/propensity/internal/domain/turnout"
	"github.com/voterfile/propensity/pkg/logger"
	"github.com/voterfile/propensity/pkg/metrics"
)

// enqueueRetryDelay paces enqueue retries while workers drain a full queue.
const enqueueRetryDelay = time.Millisecond

// scorerAdapter binds one run's weight table to the worker Scorer interface.
type scorerAdapter struct {
	scorer scoring.Scorer
	table  scoring.WeightTable
}

func (a *scorerAdapter) Score(ctx context.Context, v model.Voter) (float64, error) {
	return a.scorer.Score(ctx, v, a.table)
}

// rawRecorder collects raw scoring outcomes across workers.
type rawRecorder struct {
	mu       sync.Mutex
	scores   map[string]float64
	failures []VoterFailure
}

func newRawRecorder(capacity int) *rawRecorder {
	return &rawRecorder{scores: make(map[string]float64, capacity)}
}

// RecordScore stores one voter's raw score.
func (r *rawRecorder) RecordScore(_ context.Context, voterID string, raw float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[voterID] = raw
	metrics.RecordVoterScored()
}

// RecordFailure stores one voter's scoring error.
func (r *rawRecorder) RecordFailure(_ context.Context, voterID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, VoterFailure{VoterID: voterID, Err: err})
	metrics.RecordVoterFailure()
}

// member is one voter carried between stages with their staged values.
type member struct {
	voter    model.Voter
	key      model.CohortKey
	raw      float64
	eligible int
}

// Run executes one scoring pass: load, reject duplicates, weight the
// elections, raw-score, normalize within cohorts, impute thin histories,
// and emit. The returned report accounts for every loaded voter exactly
// once. Each call is self-contained; concurrent runs do not share state.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	if s.voters == nil {
		return nil, ErrNoVoterSource
	}
	if s.elections == nil {
		return nil, ErrNoElectionSource
	}
	if s.sink == nil {
		return nil, ErrNoSink
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}
	log := s.logger
	s.mu.Unlock()

	runID := uuid.New().String()
	start := time.Now()
	metrics.RecordRunStarted()
	log.Info(ctx, "starting scoring run", logger.String("runID", runID))

	report, store, err := s.runStages(ctx, runID)
	if err != nil {
		metrics.RecordRunFailed()
		log.Error(ctx, "scoring run failed",
			logger.String("runID", runID),
			logger.Error(err),
		)
		return nil, err
	}

	report.Duration = time.Since(start)
	metrics.RecordRunCompleted()
	metrics.RecordRunDuration(float64(report.Duration.Milliseconds()))

	s.mu.Lock()
	s.store = store
	s.runID = runID
	s.mu.Unlock()

	log.Info(ctx, "scoring run completed",
		logger.String("runID", runID),
		logger.Int("loaded", report.Loaded),
		logger.Int("emitted", report.Emitted),
		logger.Int("failed", report.Failed()),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

// runStages executes the pipeline stages in order.
func (s *Service) runStages(ctx context.Context, runID string) (*Report, resultstore.Store, error) {
	report := &Report{RunID: runID}

	voters, elections, err := s.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	report.Loaded = len(voters)
	report.Elections = len(elections)

	if err := s.reject(ctx, voters); err != nil {
		return nil, nil, err
	}

	table, err := s.weigh(ctx, elections)
	if err != nil {
		return nil, nil, err
	}

	rec, err := s.scoreAll(ctx, voters, table)
	if err != nil {
		return nil, nil, err
	}
	report.VoterFailures = append(report.VoterFailures, rec.failures...)
	report.Scored = len(rec.scores)

	observed, imputables := s.partition(ctx, voters, elections, rec)

	transforms, normScores, finals, err := s.normalizeAll(ctx, observed, report)
	if err != nil {
		return nil, nil, err
	}

	imputed, err := s.imputeAll(imputables, transforms, normScores, report)
	if err != nil {
		return nil, nil, err
	}
	finals = append(finals, imputed...)

	store, err := s.emit(ctx, runID, finals, report)
	if err != nil {
		return nil, nil, err
	}

	return report, store, nil
}

// load pulls the voter file and the election calendar.
func (s *Service) load(ctx context.Context) ([]model.Voter, []model.Election, error) {
	defer stageTimer("load")()

	voters, err := s.voters.Voters(ctx)
	if err != nil {
		metrics.RecordStageError("load", "voter_source")
		return nil, nil, fmt.Errorf("loading voters: %w", err)
	}
	elections, err := s.elections.Elections(ctx)
	if err != nil {
		metrics.RecordStageError("load", "election_source")
		return nil, nil, fmt.Errorf("loading elections: %w", err)
	}

	s.logger.Info(ctx, "loaded inputs",
		logger.Int("voters", len(voters)),
		logger.Int("elections", len(elections)),
	)
	return voters, elections, nil
}

// reject refuses voter files carrying blank or duplicate ids. Scoring a
// file with duplicates would double-count participation, so the whole run
// fails rather than guessing which record to keep.
func (s *Service) reject(ctx context.Context, voters []model.Voter) error {
	defer stageTimer("dedupe")()

	registry := dedupe.NewInMemoryRegistry(dedupe.WithCapacityHint(len(voters)))
	if err := dedupe.Check(ctx, registry, voters); err != nil {
		metrics.RecordStageError("dedupe", "duplicate_voter")
		return fmt.Errorf("rejecting voter file: %w", err)
	}
	return nil
}

// weigh builds the per-election weight table. Validation reports every bad
// election at once, so the error may join several.
func (s *Service) weigh(ctx context.Context, elections []model.Election) (*turnout.Table, error) {
	defer stageTimer("weights")()

	calc := turnout.NewCalculator(
		turnout.WithFunction(s.weightFn),
		turnout.WithParallelism(s.weightParallelism),
	)
	table, err := calc.Weights(ctx, elections)
	if err != nil {
		for i := 0; i < rejectedElections(err); i++ {
			metrics.RecordElectionRejected()
		}
		metrics.RecordStageError("weights", "invalid_elections")
		return nil, fmt.Errorf("building weight table: %w", err)
	}

	for range elections {
		metrics.RecordElectionWeighted()
	}
	return table, nil
}

// scoreAll fans the voters out over the worker pool for raw scoring. The
// whole batch is enqueued, the queue sealed, and the pool drained; voters
// whose scoring fails land in the recorder instead of stopping the batch.
func (s *Service) scoreAll(ctx context.Context, voters []model.Voter, table *turnout.Table) (*rawRecorder, error) {
	defer stageTimer("score")()

	q := queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)
	rec := newRawRecorder(len(voters))
	adapter := &scorerAdapter{scorer: scoring.NewWeightedScorer(), table: table}

	pool := worker.NewPool(s.workerCount, q, adapter, rec)
	pool.Start(ctx)

	for _, v := range voters {
		for !q.Enqueue(ctx, v) {
			// queue full; workers are draining it
			select {
			case <-ctx.Done():
				pool.Stop()
				return nil, fmt.Errorf("enqueueing voters: %w", ctx.Err())
			case <-time.After(enqueueRetryDelay):
			}
		}
	}

	if err := q.Close(); err != nil {
		pool.Stop()
		return nil, fmt.Errorf("sealing task queue: %w", err)
	}
	if err := pool.Wait(ctx); err != nil {
		pool.Stop()
		return nil, fmt.Errorf("draining task queue: %w", err)
	}

	s.logger.Info(ctx, "raw scoring drained",
		logger.Int("scored", len(rec.scores)),
		logger.Int("failed", len(rec.failures)),
	)
	return rec, nil
}

// partition splits raw-scored voters into observed cohort members and
// imputation candidates.
func (s *Service) partition(ctx context.Context, voters []model.Voter, elections []model.Election, rec *rawRecorder) (map[model.CohortKey][]member, []member) {
	defer stageTimer("cohort")()

	assigner := cohort.NewAssigner(cohort.WithBucket(s.bucket))
	cal := cohort.CalendarOf(elections)

	observed := make(map[model.CohortKey][]member)
	var imputables []member
	cohorts := make(map[model.CohortKey]struct{})

	for _, v := range voters {
		raw, ok := rec.scores[v.ID]
		if !ok {
			continue // failed raw scoring
		}
		m := member{
			voter:    v,
			key:      assigner.Key(v, cal),
			raw:      raw,
			eligible: cohort.EligibleElections(v, cal),
		}
		cohorts[m.key] = struct{}{}
		if m.eligible < s.minEligible {
			imputables = append(imputables, m)
			continue
		}
		observed[m.key] = append(observed[m.key], m)
	}

	metrics.UpdateCohortCount(len(cohorts))
	for _, members := range observed {
		metrics.ObserveCohortSize(len(members))
	}

	s.logger.Info(ctx, "assigned cohorts",
		logger.Int("cohorts", len(cohorts)),
		logger.Int("imputables", len(imputables)),
	)
	return observed, imputables
}

// normalizeAll fits one transform per cohort and applies it to the cohort's
// observed members. A cohort that cannot be fitted fails alone: it surfaces
// in the report along with its members, and the rest of the run proceeds.
func (s *Service) normalizeAll(ctx context.Context, observed map[model.CohortKey][]member, report *Report) (map[model.CohortKey]*normalize.Transform, map[model.CohortKey][]float64, []model.Result, error) {
	defer stageTimer("normalize")()

	normalizer := normalize.NewNormalizer(
		normalize.WithMethod(s.method),
		normalize.WithPolicy(s.policy),
	)

	var mu sync.Mutex
	transforms := make(map[model.CohortKey]*normalize.Transform, len(observed))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(s.cohortParallelism)
	for key, members := range observed {
		key, members := key, members // per-iteration copies for the goroutine under pre-1.22 loop semantics
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("normalizing cohort %s: %w", key, err)
			}

			raws := make([]float64, len(members))
			for i, m := range members {
				raws[i] = m.raw
			}
			t, err := normalizer.Fit(key, raws)
			if err != nil {
				metrics.RecordStageError("normalize", "undefined_cohort")
				mu.Lock()
				report.CohortFailures = append(report.CohortFailures, CohortFailure{Cohort: key, Err: err})
				for _, m := range members {
					report.VoterFailures = append(report.VoterFailures, VoterFailure{VoterID: m.voter.ID, Err: err})
					metrics.RecordVoterFailure()
				}
				mu.Unlock()
				return nil
			}
			if t.Degenerate() {
				metrics.RecordDegenerateCohort()
			}

			mu.Lock()
			transforms[key] = t
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, nil, err
	}

	// Applying is a subtraction and a divide per voter; not worth fanning out.
	normScores := make(map[model.CohortKey][]float64, len(transforms))
	var finals []model.Result
	for key, members := range observed {
		t := transforms[key]
		if t == nil {
			continue // cohort failed to fit
		}
		for _, m := range members {
			norm := t.Apply(m.raw)
			normScores[key] = append(normScores[key], norm)
			finals = append(finals, model.Result{
				VoterID:           m.voter.ID,
				Cohort:            key,
				RawScore:          m.raw,
				NormalizedScore:   &norm,
				FinalScore:        norm,
				EligibleElections: m.eligible,
				Participations:    m.voter.Participations(),
				State:             model.StateFinal,
			})
			metrics.RecordVoterNormalized()
		}
	}
	report.Normalized = len(finals)
	return transforms, normScores, finals, nil
}

// imputeAll estimates final scores for voters below the eligibility
// threshold. Zero-history voters receive their cohort's prior mean;
// partial histories blend prior and evidence. Evidence travels through the
// same transform the cohort's observed members went through; a voter whose
// cohort has no fitted transform leans on the prior alone.
func (s *Service) imputeAll(imputables []member, transforms map[model.CohortKey]*normalize.Transform, normScores map[model.CohortKey][]float64, report *Report) ([]model.Result, error) {
	defer stageTimer("impute")()

	if len(imputables) == 0 {
		return nil, nil
	}

	imputer := impute.NewImputer(impute.WithMinObservations(s.minPriorObs))
	priors, err := imputer.BuildPriors(normScores)
	if err != nil {
		metrics.RecordStageError("impute", "insufficient_prior")
		return nil, fmt.Errorf("fitting imputation priors: %w", err)
	}

	finals := make([]model.Result, 0, len(imputables))
	for _, m := range imputables {
		prior := priors.For(m.key)

		var ev *impute.Evidence
		if m.eligible > 0 {
			if t := transforms[m.key]; t != nil {
				ev = &impute.Evidence{
					Value: t.Apply(m.raw),
					Count: m.eligible,
					Noise: prior.Variance,
				}
			}
		}

		est, err := imputer.Impute(prior, ev)
		if err != nil {
			metrics.RecordStageError("impute", "estimate_failed")
			report.VoterFailures = append(report.VoterFailures, VoterFailure{VoterID: m.voter.ID, Err: err})
			metrics.RecordVoterFailure()
			continue
		}

		finals = append(finals, model.Result{
			VoterID:           m.voter.ID,
			Cohort:            m.key,
			RawScore:          m.raw,
			FinalScore:        est.Score,
			Imputed:           true,
			Uncertainty:       est.Uncertainty,
			EligibleElections: m.eligible,
			Participations:    m.voter.Participations(),
			State:             model.StateImputedFinal,
		})
		metrics.RecordVoterImputed()
	}
	report.Imputed = len(finals)
	return finals, nil
}

// emit records every terminal result in the run store and delivers the
// sorted snapshot to the sink in batches.
func (s *Service) emit(ctx context.Context, runID string, finals []model.Result, report *Report) (resultstore.Store, error) {
	defer stageTimer("emit")()

	store := resultstore.NewShardedStore(resultstore.WithShardCount(s.shardCount))
	for _, r := range finals {
		if err := store.Put(ctx, r); err != nil {
			// a second result for one voter is an internal fault; pin it to
			// the voter rather than failing the batch
			report.VoterFailures = append(report.VoterFailures, VoterFailure{VoterID: r.VoterID, Err: err})
			metrics.RecordVoterFailure()
		}
	}

	snapshot := store.Snapshot(ctx)
	for start := 0; start < len(snapshot); start += s.sinkBatchSize {
		end := start + s.sinkBatchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		if err := s.sink.Write(ctx, runID, snapshot[start:end]); err != nil {
			metrics.RecordStageError("emit", "sink_write")
			return nil, fmt.Errorf("delivering results: %w", err)
		}
	}

	for range snapshot {
		metrics.RecordResultEmitted()
	}
	report.Emitted = len(snapshot)
	return store, nil
}

// stageTimer returns a stop function recording the stage duration.
func stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		metrics.RecordStageDuration(stage, float64(time.Since(start).Milliseconds()))
	}
}

// rejectedElections counts the per-election validation failures inside a
// weighting error. Cancellation and configuration errors count nothing.
func rejectedElections(err error) int {
	leaves := []error{err}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		leaves = multi.Unwrap()
	}

	n := 0
	for _, leaf := range leaves {
		switch {
		case errors.Is(leaf, turnout.ErrInvalidTurnout),
			errors.Is(leaf, turnout.ErrMissingElectionID),
			errors.Is(leaf, turnout.ErrMissingElectionDate),
			errors.Is(leaf, turnout.ErrDuplicateElection):
			n++
		}
	}
	return n
}
