package synth

// Option configures a Generator.
type Option func(*Generator)

// WithSeed fixes the random seed. Equal seeds produce identical files.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithVoterCount sets how many voters to generate.
func WithVoterCount(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.voterCount = n
		}
	}
}

// WithElectionCount sets how many elections the calendar holds. At least
// two are required so new registrants have a last election to straddle.
func WithElectionCount(n int) Option {
	return func(g *Generator) {
		if n >= 2 {
			g.electionCount = n
		}
	}
}

// WithFirstYear sets the year the calendar starts in.
func WithFirstYear(year int) Option {
	return func(g *Generator) {
		if year > 0 {
			g.firstYear = year
		}
	}
}

// WithParallelism bounds concurrent voter construction. Parallelism never
// affects the generated file, only how fast it arrives.
func WithParallelism(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.parallelism = n
		}
	}
}
