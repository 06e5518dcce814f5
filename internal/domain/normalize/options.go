package normalize

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithMethod sets the normalization scale. The choice is validated when a
// transform is fitted, so a bad value fails loudly.
func WithMethod(m Method) Option {
	return func(n *Normalizer) {
		if m != "" {
			n.method = m
		}
	}
}

// WithPolicy sets the degenerate-cohort policy.
func WithPolicy(p Policy) Option {
	return func(n *Normalizer) {
		if p != "" {
			n.policy = p
		}
	}
}
