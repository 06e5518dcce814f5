package turnout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/voterfile/propensity/internal/domain/cohort"
	"github.com/voterfile/propensity/internal/domain/model"
)

// DeriveStats builds per-election turnout statistics from the voter file
// itself, for callers without an external statistics feed.
//
// A voter counts toward an election's eligible population when the election
// falls on or after their effective registration date; eligible voters with
// recorded participation count as ballots. A recorded vote always implies
// eligibility, so derived ballots never exceed the derived population.
// Elections come back sorted by date, ties broken by id.
func DeriveStats(voters []model.Voter, cal cohort.Calendar) ([]model.Election, error) {
	if len(cal) == 0 {
		return nil, ErrNoElections
	}

	ids := make([]string, 0, len(cal))
	for id := range cal {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Validate the calendar and every participation reference up front so
	// one pass reports every problem.
	var errs []error
	for _, id := range ids {
		if id == "" {
			errs = append(errs, ErrMissingElectionID)
			continue
		}
		if cal[id].IsZero() {
			errs = append(errs, fmt.Errorf("election %s: %w", id, ErrMissingElectionDate))
		}
	}
	for _, v := range voters {
		for _, id := range v.VotedIn {
			if _, ok := cal[id]; !ok {
				errs = append(errs, fmt.Errorf("voter %s: election %s: %w", v.ID, id, ErrUnknownElection))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	eligible := make(map[string]int64, len(cal))
	ballots := make(map[string]int64, len(cal))
	for _, v := range voters {
		reg := cohort.EffectiveRegistration(v, cal)
		if reg.IsZero() {
			continue
		}
		for _, id := range ids {
			if !cal[id].Before(reg) {
				eligible[id]++
			}
		}
		for _, id := range v.VotedIn {
			ballots[id]++
		}
	}

	elections := make([]model.Election, 0, len(cal))
	for _, id := range ids {
		elections = append(elections, model.Election{
			ID:       id,
			Date:     cal[id],
			Eligible: eligible[id],
			Ballots:  ballots[id],
		})
	}
	sort.SliceStable(elections, func(i, j int) bool {
		return elections[i].Date.Before(elections[j].Date)
	})
	return elections, nil
}
