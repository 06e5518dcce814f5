package impute

// Option applies a configuration option to the Imputer.
type Option func(*Imputer)

// WithEstimator swaps the posterior estimator.
func WithEstimator(e PosteriorEstimator) Option {
	return func(im *Imputer) {
		if e != nil {
			im.estimator = e
		}
	}
}

// WithMinObservations sets how many observed voters a cohort needs before
// its own prior is trusted over the global pool.
func WithMinObservations(n int) Option {
	return func(im *Imputer) {
		if n > 0 {
			im.minObservations = n
		}
	}
}
