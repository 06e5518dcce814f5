package model

// ScoreState tracks a voter's progression through the pipeline.
//
// Observed voters move Unscored -> RawScored -> Normalized -> Final.
// Voters with insufficient eligible history branch after raw scoring and
// move RawScored -> ImputedFinal. No stage is skipped: a voter with an
// empty participation list still records a raw score of zero.
type ScoreState int

const (
	StateUnscored ScoreState = iota
	StateRawScored
	StateNormalized
	StateFinal
	StateImputedFinal
)

// String returns the state name for logs and reports.
func (s ScoreState) String() string {
	switch s {
	case StateUnscored:
		return "unscored"
	case StateRawScored:
		return "raw_scored"
	case StateNormalized:
		return "normalized"
	case StateFinal:
		return "final"
	case StateImputedFinal:
		return "imputed_final"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is an output state.
func (s ScoreState) Terminal() bool {
	return s == StateFinal || s == StateImputedFinal
}

// Result is the per-voter output tuple delivered to the sink.
type Result struct {
	VoterID string
	Cohort  CohortKey

	RawScore float64
	// NormalizedScore is nil for imputed voters, whose raw score never
	// passed through cohort normalization.
	NormalizedScore *float64
	FinalScore      float64

	Imputed bool
	// Uncertainty is the posterior standard deviation for imputed scores
	// and zero for observed ones.
	Uncertainty float64

	EligibleElections int
	Participations    int

	State ScoreState
}
