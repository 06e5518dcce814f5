// Package model contains domain models passed between pipeline stages.
package model

import "time"

// Voter is one registrant from a deduplicated voter file.
// Loading and parsing the raw file is the caller's concern; by the time a
// Voter reaches the pipeline its participation list is deduplicated and
// contains election identifiers only.
type Voter struct {
	ID           string    // unique registrant identifier
	RegisteredAt time.Time // registration date claimed by the voter file
	VotedIn      []string  // ids of elections with recorded participation
}

// Participations returns the number of elections the voter took part in.
func (v Voter) Participations() int { return len(v.VotedIn) }

// Election is one contest with its turnout statistics.
type Election struct {
	ID       string    // unique election identifier
	Date     time.Time // date the election was held
	Eligible int64     // registrants eligible to vote
	Ballots  int64     // ballots actually cast
}

// TurnoutRate returns Ballots/Eligible. It returns zero when Eligible is
// not positive; count validation lives in the turnout package.
func (e Election) TurnoutRate() float64 {
	if e.Eligible <= 0 {
		return 0
	}
	return float64(e.Ballots) / float64(e.Eligible)
}

// CohortKey partitions voters into registration cohorts. It is opaque to
// everything but the cohort assigner; stages treat equal keys as one group.
type CohortKey string
