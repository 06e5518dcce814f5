package impute_test

import (
	"errors"
	"math"
	"testing"

	"github.com/voterfile/propensity/internal/domain/impute"
	"github.com/voterfile/propensity/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildPriors(t *testing.T) {
	Convey("Given observed normalized scores by cohort", t, func() {
		im := impute.NewImputer()
		observed := map[model.CohortKey][]float64{
			"2012": {0.2, 0.3, 0.4},
			"2016": {0.7, 0.9},
			"2024": {0.5}, // too thin for its own prior
		}

		Convey("When building priors", func() {
			priors, err := im.BuildPriors(observed)
			So(err, ShouldBeNil)

			Convey("Then a well-populated cohort carries its own prior", func() {
				prior := priors.For("2012")
				So(prior.Global, ShouldBeFalse)
				So(prior.Mean, ShouldAlmostEqual, 0.3)
				So(prior.Observations, ShouldEqual, 3)
			})

			Convey("Then a thin cohort falls back to the global pool", func() {
				prior := priors.For("2024")
				So(prior.Global, ShouldBeTrue)
				So(prior.Observations, ShouldEqual, 6)
			})

			Convey("Then an unseen cohort also falls back to the global pool", func() {
				prior := priors.For("1999")
				So(prior.Global, ShouldBeTrue)
			})

			Convey("Then the prior count reflects only self-backed cohorts", func() {
				So(priors.CohortCount(), ShouldEqual, 2)
				So(priors.Global().Observations, ShouldEqual, 6)
			})
		})

		Convey("When no cohort has any observed voter", func() {
			_, err := im.BuildPriors(map[model.CohortKey][]float64{})

			Convey("Then imputation is impossible", func() {
				So(errors.Is(err, impute.ErrInsufficientPrior), ShouldBeTrue)
			})
		})

		Convey("When the observation threshold is raised", func() {
			strict := impute.NewImputer(impute.WithMinObservations(3))
			priors, err := strict.BuildPriors(observed)
			So(err, ShouldBeNil)

			Convey("Then two-voter cohorts lose their own prior", func() {
				So(priors.For("2016").Global, ShouldBeTrue)
				So(priors.For("2012").Global, ShouldBeFalse)
			})
		})
	})
}

func TestZeroEvidenceImputation(t *testing.T) {
	Convey("Given a cohort whose observed normalized scores average 0.3", t, func() {
		im := impute.NewImputer()
		priors, err := im.BuildPriors(map[model.CohortKey][]float64{
			"2024": {0.1, 0.3, 0.5},
		})
		So(err, ShouldBeNil)

		Convey("When imputing a voter with zero eligible elections", func() {
			est, err := im.Impute(priors.For("2024"), nil)

			Convey("Then the final score is exactly the cohort mean", func() {
				So(err, ShouldBeNil)
				So(est.Score, ShouldAlmostEqual, 0.3)
			})

			Convey("Then the uncertainty is the prior spread", func() {
				So(est.Uncertainty, ShouldAlmostEqual, 0.2)
			})

			Convey("And repeating the estimate changes nothing", func() {
				again, err := im.Impute(priors.For("2024"), nil)
				So(err, ShouldBeNil)
				So(again.Score, ShouldEqual, est.Score)
				So(again.Uncertainty, ShouldEqual, est.Uncertainty)
			})
		})

		Convey("When the evidence has a zero count", func() {
			est, err := im.Impute(priors.For("2024"), &impute.Evidence{Value: 99, Count: 0})

			Convey("Then it is treated as zero evidence", func() {
				So(err, ShouldBeNil)
				So(est.Score, ShouldAlmostEqual, 0.3)
			})
		})
	})
}

func TestPartialEvidenceImputation(t *testing.T) {
	Convey("Given a prior and partial evidence", t, func() {
		im := impute.NewImputer()
		prior := impute.Prior{Mean: 0, Variance: 1, Observations: 10}

		Convey("When one eligible election backs the evidence", func() {
			est, err := im.Impute(prior, &impute.Evidence{Value: 2, Count: 1, Noise: prior.Variance})

			Convey("Then the posterior splits prior and evidence evenly", func() {
				So(err, ShouldBeNil)
				So(est.Score, ShouldAlmostEqual, 1.0)
			})

			Convey("Then the posterior lies strictly between prior and evidence", func() {
				So(est.Score, ShouldBeGreaterThan, prior.Mean)
				So(est.Score, ShouldBeLessThan, 2.0)
			})

			Convey("Then evidence shrinks the uncertainty below the prior's", func() {
				So(est.Uncertainty, ShouldBeLessThan, math.Sqrt(prior.Variance))
				So(est.Uncertainty, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When more eligible elections back the same evidence", func() {
			one, _ := im.Impute(prior, &impute.Evidence{Value: 2, Count: 1, Noise: prior.Variance})
			three, _ := im.Impute(prior, &impute.Evidence{Value: 2, Count: 3, Noise: prior.Variance})

			Convey("Then the posterior moves toward the evidence", func() {
				So(three.Score, ShouldBeGreaterThan, one.Score)
				So(three.Score, ShouldAlmostEqual, 1.5)
			})

			Convey("And the uncertainty keeps shrinking", func() {
				So(three.Uncertainty, ShouldBeLessThan, one.Uncertainty)
			})
		})

		Convey("When the prior is a spike", func() {
			spike := impute.Prior{Mean: 0.4, Variance: 0, Observations: 5}
			est, err := im.Impute(spike, &impute.Evidence{Value: 2, Count: 3, Noise: 1})

			Convey("Then the posterior stays at the prior mean", func() {
				So(err, ShouldBeNil)
				So(est.Score, ShouldAlmostEqual, 0.4)
				So(est.Uncertainty, ShouldEqual, 0.0)
			})
		})

		Convey("When the evidence is noiseless", func() {
			est, err := im.Impute(prior, &impute.Evidence{Value: 2, Count: 1, Noise: 0})

			Convey("Then the evidence dominates completely", func() {
				So(err, ShouldBeNil)
				So(est.Score, ShouldAlmostEqual, 2.0)
				So(est.Uncertainty, ShouldEqual, 0.0)
			})
		})

		Convey("When the prior is backed by nothing", func() {
			_, err := im.Impute(impute.Prior{}, nil)

			Convey("Then estimation refuses", func() {
				So(errors.Is(err, impute.ErrInsufficientPrior), ShouldBeTrue)
			})
		})
	})
}

// fixedEstimator always returns the same estimate, standing in for an
// alternative posterior family.
type fixedEstimator struct {
	score float64
}

func (f fixedEstimator) Estimate(impute.Prior, *impute.Evidence) (impute.Estimate, error) {
	return impute.Estimate{Score: f.score, Uncertainty: 0.01}, nil
}

func TestEstimatorSwap(t *testing.T) {
	Convey("Given an imputer with a custom estimator", t, func() {
		im := impute.NewImputer(impute.WithEstimator(fixedEstimator{score: 0.75}))

		Convey("When imputing", func() {
			est, err := im.Impute(impute.Prior{Mean: 0, Variance: 1, Observations: 3}, nil)

			Convey("Then the custom estimator decides the score", func() {
				So(err, ShouldBeNil)
				So(est.Score, ShouldAlmostEqual, 0.75)
				So(est.Uncertainty, ShouldAlmostEqual, 0.01)
			})
		})
	})
}
