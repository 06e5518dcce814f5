package turnout

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithFunction sets the weight function. The choice is validated when
// weights are computed, not here, so a bad value fails loudly instead of
// being silently replaced.
func WithFunction(fn Function) Option {
	return func(c *Calculator) {
		if fn != "" {
			c.fn = fn
		}
	}
}

// WithParallelism bounds how many elections are weighted concurrently.
func WithParallelism(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.parallelism = n
		}
	}
}
