// Package normalize rescales raw scores within registration cohorts.
//
// A cohort's transform is fitted on its observed voters only; voters headed
// for imputation contribute nothing to the statistics. Fitting and applying
// are split so the imputation stage can push partial evidence through the
// same transform the cohort's observed members went through.
package normalize

import (
	"fmt"
	"math"
	"sort"

	"github.com/voterfile/propensity/internal/domain/model"
)

// Method identifies a normalization scale.
type Method string

const (
	// MethodZScore centers on the cohort mean with unit spread.
	MethodZScore Method = "zscore"
	// MethodMinMax maps the cohort onto [0,1].
	MethodMinMax Method = "minmax"
	// MethodPercentile maps onto [0,100] by midrank.
	MethodPercentile Method = "percentile"
	// MethodMaxRatio divides by the cohort maximum, mapping onto (0,1].
	MethodMaxRatio Method = "maxratio"
)

// Policy decides what happens to cohorts whose statistics cannot support
// the configured method.
type Policy string

const (
	// PolicyCohortMean assigns every member the method's image of the
	// cohort mean.
	PolicyCohortMean Policy = "cohort-mean"
	// PolicyError fails the cohort and reports it.
	PolicyError Policy = "error"
)

// Stats summarizes the observed raw scores of one cohort.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64 // sample standard deviation
	Min    float64
	Max    float64
}

// Describe computes summary statistics for a score slice.
func Describe(scores []float64) Stats {
	s := Stats{Count: len(scores)}
	if s.Count == 0 {
		return s
	}

	s.Min = scores[0]
	s.Max = scores[0]
	var sum float64
	for _, x := range scores {
		sum += x
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}
	s.Mean = sum / float64(s.Count)

	if s.Count > 1 {
		var ss float64
		for _, x := range scores {
			d := x - s.Mean
			ss += d * d
		}
		s.StdDev = math.Sqrt(ss / float64(s.Count-1))
	}
	return s
}

// Normalizer fits per-cohort transforms.
type Normalizer struct {
	method Method
	policy Policy
}

// NewNormalizer creates a normalizer with the z-score method and the
// cohort-mean degenerate policy.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		method: MethodZScore,
		policy: PolicyCohortMean,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Fit computes the transform for one cohort from its observed raw scores.
// A cohort with fewer than two observed voters, or with zero spread, cannot
// anchor a scale; such cohorts either fail (PolicyError) or collapse to the
// method's image of the cohort mean (PolicyCohortMean).
func (n *Normalizer) Fit(key model.CohortKey, observed []float64) (*Transform, error) {
	switch n.method {
	case MethodZScore, MethodMinMax, MethodPercentile, MethodMaxRatio:
	default:
		return nil, fmt.Errorf("cohort %s: %w: %s", key, ErrUnknownMethod, n.method)
	}

	for _, x := range observed {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("cohort %s: %w", key, ErrNonFiniteScore)
		}
	}

	stats := Describe(observed)
	if degenerate(stats) {
		switch n.policy {
		case PolicyError:
			return nil, &UndefinedError{
				Cohort: key,
				Reason: degenerateReason(stats),
			}
		case PolicyCohortMean, "":
			return &Transform{method: n.method, stats: stats, degenerate: true}, nil
		default:
			return nil, fmt.Errorf("cohort %s: %w: %s", key, ErrUnknownPolicy, n.policy)
		}
	}

	t := &Transform{method: n.method, stats: stats}
	if n.method == MethodPercentile {
		t.sorted = append([]float64(nil), observed...)
		sort.Float64s(t.sorted)
	}
	return t, nil
}

// degenerate reports whether the statistics cannot anchor a scale.
func degenerate(s Stats) bool {
	return s.Count < 2 || s.StdDev == 0
}

func degenerateReason(s Stats) string {
	if s.Count < 2 {
		return fmt.Sprintf("%d observed voters cannot anchor a scale", s.Count)
	}
	return "zero variance across observed voters"
}

// Transform is a fitted normalization for one cohort. It is immutable and
// safe for concurrent use.
type Transform struct {
	method     Method
	stats      Stats
	degenerate bool
	sorted     []float64 // observed scores, ascending; percentile only
}

// Apply maps one raw score through the fitted transform. On a degenerate
// transform every input lands on the method's fallback value.
func (t *Transform) Apply(raw float64) float64 {
	if t.degenerate {
		return t.fallback()
	}

	switch t.method {
	case MethodZScore:
		return (raw - t.stats.Mean) / t.stats.StdDev
	case MethodMinMax:
		return (raw - t.stats.Min) / (t.stats.Max - t.stats.Min)
	case MethodPercentile:
		return t.percentile(raw)
	case MethodMaxRatio:
		return raw / t.stats.Max
	default:
		return t.fallback()
	}
}

// fallback is the method's image of the cohort mean.
func (t *Transform) fallback() float64 {
	switch t.method {
	case MethodMinMax:
		return 0.5
	case MethodPercentile:
		return 50
	case MethodMaxRatio:
		return 1
	default:
		return 0
	}
}

// percentile is the midrank percentile of raw within the observed scores.
func (t *Transform) percentile(raw float64) float64 {
	below := sort.SearchFloat64s(t.sorted, raw)
	above := sort.Search(len(t.sorted), func(i int) bool { return t.sorted[i] > raw })
	equal := above - below
	return (float64(below) + 0.5*float64(equal)) / float64(len(t.sorted)) * 100
}

// Stats returns the statistics the transform was fitted on.
func (t *Transform) Stats() Stats { return t.stats }

// Degenerate reports whether the transform collapsed to its fallback.
func (t *Transform) Degenerate() bool { return t.degenerate }

// Method returns the fitted method.
func (t *Transform) Method() Method { return t.method }
