package cohort

// Option applies a configuration option to the Assigner.
type Option func(*Assigner)

// WithBucket sets the cohort key granularity. Unrecognized values are
// ignored and the assigner keeps its year default.
func WithBucket(b Bucket) Option {
	return func(a *Assigner) {
		switch b {
		case BucketYear, BucketQuarter, BucketMonth:
			a.bucket = b
		}
	}
}
