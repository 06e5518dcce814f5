// Package source defines where voters and election statistics come from.
//
// Parsing raw voter files is out of scope for the pipeline; sources hand
// over already-structured records. The memory implementations serve
// embedders that assembled the data themselves and every test.
package source

import (
	"context"
	"fmt"

	"github.com/voterfile/propensity/internal/domain/cohort"
	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/internal/domain/turnout"
)

// VoterSource loads the voter file for one run.
type VoterSource interface {
	Voters(ctx context.Context) ([]model.Voter, error)
}

// ElectionSource loads the election calendar with turnout statistics.
type ElectionSource interface {
	Elections(ctx context.Context) ([]model.Election, error)
}

// MemoryVoterSource serves a fixed voter slice.
type MemoryVoterSource struct {
	voters []model.Voter
}

// NewMemoryVoterSource creates a voter source over a fixed slice.
func NewMemoryVoterSource(voters []model.Voter) *MemoryVoterSource {
	return &MemoryVoterSource{voters: voters}
}

// Voters returns a copy of the slice so callers cannot mutate the source.
func (s *MemoryVoterSource) Voters(ctx context.Context) ([]model.Voter, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("loading voters: %w", err)
	}
	out := make([]model.Voter, len(s.voters))
	copy(out, s.voters)
	return out, nil
}

// MemoryElectionSource serves a fixed election slice.
type MemoryElectionSource struct {
	elections []model.Election
}

// NewMemoryElectionSource creates an election source over a fixed slice.
func NewMemoryElectionSource(elections []model.Election) *MemoryElectionSource {
	return &MemoryElectionSource{elections: elections}
}

// Elections returns a copy of the slice so callers cannot mutate the source.
func (s *MemoryElectionSource) Elections(ctx context.Context) ([]model.Election, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("loading elections: %w", err)
	}
	out := make([]model.Election, len(s.elections))
	copy(out, s.elections)
	return out, nil
}

// DerivedElectionSource computes turnout statistics from the voter file
// itself, for deployments without an external statistics feed. Only the
// election calendar (id to date) has to be supplied.
type DerivedElectionSource struct {
	voters   VoterSource
	calendar cohort.Calendar
}

// NewDerivedElectionSource creates an election source that derives counts
// from the voters.
func NewDerivedElectionSource(voters VoterSource, calendar cohort.Calendar) *DerivedElectionSource {
	return &DerivedElectionSource{voters: voters, calendar: calendar}
}

// Elections loads the voters and derives per-election statistics.
func (s *DerivedElectionSource) Elections(ctx context.Context) ([]model.Election, error) {
	voters, err := s.voters.Voters(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading voters for stats derivation: %w", err)
	}
	elections, err := turnout.DeriveStats(voters, s.calendar)
	if err != nil {
		return nil, fmt.Errorf("deriving turnout statistics: %w", err)
	}
	return elections, nil
}
