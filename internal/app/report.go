package service

import (
	"time"

	"github.com/voterfile/propensity/internal/domain/model"
)

// Report summarizes one completed scoring run: how many voters entered,
// where each of them ended up, and what went wrong along the way. Every
// loaded voter is accounted for exactly once: Loaded == Emitted + Failed.
type Report struct {
	RunID string

	Loaded     int // voters in the file
	Elections  int // elections in the calendar
	Scored     int // voters that cleared raw scoring
	Normalized int
	Imputed    int
	Emitted    int

	VoterFailures  []VoterFailure
	CohortFailures []CohortFailure

	Duration time.Duration
}

// Failed returns how many voters did not reach the output.
func (r *Report) Failed() int { return len(r.VoterFailures) }

// VoterFailure pins a failure to one voter.
type VoterFailure struct {
	VoterID string
	Err     error
}

// CohortFailure pins a normalization failure to one cohort.
type CohortFailure struct {
	Cohort model.CohortKey
	Err    error
}
