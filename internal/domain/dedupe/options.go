package dedupe

// Option applies a configuration option to the in-memory registry.
type Option func(*inMemoryRegistry)

// WithCapacityHint pre-sizes the registry for an expected voter count,
// avoiding rehashing during large loads.
func WithCapacityHint(n int) Option {
	return func(r *inMemoryRegistry) {
		if n > 0 {
			r.seen = make(map[string]struct{}, n)
		}
	}
}
