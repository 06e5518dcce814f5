// Package impute estimates final scores for voters with insufficient
// eligible history.
//
// Each cohort's prior is fitted on the normalized scores of its observed
// voters. Cohorts too thin to trust fall back to the pool of every observed
// voter in the run. A voter with zero eligible elections receives the prior
// mean outright; a voter with some eligible history below the observation
// threshold receives a posterior-mean blend of prior and evidence.
package impute

import (
	"math"

	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/internal/domain/normalize"
)

// Default imputer configuration constants.
const (
	defaultMinObservations = 2
)

// Prior is a normal prior over a cohort's normalized scores.
type Prior struct {
	Mean         float64 // location
	Variance     float64 // spread
	Observations int     // observed voters backing the prior
	Global       bool    // true when the cohort fell back to the global pool
}

// Evidence is a voter's partial observed signal: their raw score pushed
// through the cohort's normalization transform, backed by however many
// eligible elections they actually had. Noise is the likelihood variance;
// the pipeline uses the prior's own variance, which makes the posterior a
// count-weighted blend of prior and evidence.
type Evidence struct {
	Value float64
	Count int
	Noise float64
}

// Estimate is an imputed final score with its uncertainty.
type Estimate struct {
	Score       float64
	Uncertainty float64 // posterior standard deviation
}

// PosteriorEstimator turns a prior and optional evidence into an estimate.
// The distributional choice is swappable; NormalEstimator is the default.
type PosteriorEstimator interface {
	Estimate(prior Prior, ev *Evidence) (Estimate, error)
}

// NormalEstimator implements conjugate normal-normal updating.
type NormalEstimator struct{}

// Estimate computes the posterior mean and standard deviation. With no
// evidence the prior is returned as-is, which keeps zero-history imputation
// deterministic and idempotent.
func (NormalEstimator) Estimate(prior Prior, ev *Evidence) (Estimate, error) {
	if prior.Observations == 0 {
		return Estimate{}, ErrInsufficientPrior
	}

	tau2 := prior.Variance
	if ev == nil || ev.Count == 0 {
		return Estimate{Score: prior.Mean, Uncertainty: math.Sqrt(tau2)}, nil
	}
	if tau2 <= 0 {
		// a spike prior pins the posterior to its mean
		return Estimate{Score: prior.Mean, Uncertainty: 0}, nil
	}
	if ev.Noise <= 0 {
		// noiseless evidence dominates completely
		return Estimate{Score: ev.Value, Uncertainty: 0}, nil
	}

	n := float64(ev.Count)
	precision := 1/tau2 + n/ev.Noise
	mean := (prior.Mean/tau2 + n*ev.Value/ev.Noise) / precision
	return Estimate{Score: mean, Uncertainty: math.Sqrt(1 / precision)}, nil
}

// Imputer builds cohort priors and runs the configured estimator.
type Imputer struct {
	estimator       PosteriorEstimator
	minObservations int
}

// NewImputer creates an imputer with the normal-normal estimator.
func NewImputer(opts ...Option) *Imputer {
	im := &Imputer{
		estimator:       NormalEstimator{},
		minObservations: defaultMinObservations,
	}

	for _, opt := range opts {
		opt(im)
	}

	return im
}

// BuildPriors fits one prior per cohort from the normalized scores of its
// observed voters. Cohorts with fewer than the minimum observations lean on
// the global pool. A run with no observed voters at all cannot impute
// anything and fails with ErrInsufficientPrior.
func (im *Imputer) BuildPriors(observed map[model.CohortKey][]float64) (*Priors, error) {
	var pool []float64
	for _, scores := range observed {
		pool = append(pool, scores...)
	}
	if len(pool) == 0 {
		return nil, ErrInsufficientPrior
	}

	global := priorFrom(pool)
	global.Global = true

	priors := &Priors{
		byCohort: make(map[model.CohortKey]Prior, len(observed)),
		global:   global,
	}
	for key, scores := range observed {
		if len(scores) < im.minObservations {
			continue
		}
		priors.byCohort[key] = priorFrom(scores)
	}
	return priors, nil
}

// Impute estimates a final score from a prior and optional evidence.
func (im *Imputer) Impute(prior Prior, ev *Evidence) (Estimate, error) {
	return im.estimator.Estimate(prior, ev)
}

// priorFrom fits a normal prior on a score sample.
func priorFrom(scores []float64) Prior {
	stats := normalize.Describe(scores)
	return Prior{
		Mean:         stats.Mean,
		Variance:     stats.StdDev * stats.StdDev,
		Observations: stats.Count,
	}
}

// Priors holds the fitted priors of one run, immutable once built.
type Priors struct {
	byCohort map[model.CohortKey]Prior
	global   Prior
}

// For returns the prior for a cohort, falling back to the global prior for
// cohorts without enough observed voters of their own.
func (p *Priors) For(key model.CohortKey) Prior {
	if prior, ok := p.byCohort[key]; ok {
		return prior
	}
	return p.global
}

// Global returns the pooled prior.
func (p *Priors) Global() Prior { return p.global }

// CohortCount returns how many cohorts carry their own prior.
func (p *Priors) CohortCount() int { return len(p.byCohort) }
