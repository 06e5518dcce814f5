// Package synth generates deterministic synthetic voter files.
//
// Generated files drive integration tests and benchmarks without shipping
// real registration data. Every random draw derives from a per-voter seed,
// so a given seed reproduces the identical file at any parallelism, and
// election tallies are derived from the generated voters themselves so the
// statistics always satisfy turnout validation.
package synth

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/voterfile/propensity/internal/adapters/source"
	"github.com/voterfile/propensity/internal/domain/cohort"
	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/internal/domain/turnout"
	"github.com/voterfile/propensity/pkg/logger"
)

// Default generator configuration constants.
const (
	defaultSeed          = 1
	defaultVoterCount    = 250
	defaultElectionCount = 8
	defaultFirstYear     = 2016
	defaultParallelism   = 4
)

// Election calendar shape: a primary and a general per year.
const (
	primaryMonth = time.May
	primaryDay   = 15
	generalMonth = time.November
	generalDay   = 3
)

// Registration window constants, in days and years.
const (
	// regLeadDays is how far before the first election ordinary voters may
	// have registered.
	regLeadDays = 730
	// anchorLeadYears is how long before the first election the anchor
	// voter registered.
	anchorLeadYears = 1
)

// Generator produces synthetic voter files.
type Generator struct {
	seed          int64
	voterCount    int
	electionCount int
	firstYear     int
	parallelism   int
}

// New creates a generator with the default mix and calendar.
func New(opts ...Option) *Generator {
	g := &Generator{
		seed:          defaultSeed,
		voterCount:    defaultVoterCount,
		electionCount: defaultElectionCount,
		firstYear:     defaultFirstYear,
		parallelism:   defaultParallelism,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// File is a complete synthetic voter file: voters plus an election calendar
// whose turnout counts were tallied from those voters.
type File struct {
	Voters    []model.Voter
	Elections []model.Election
}

// Sources wraps the file in memory sources for feeding a pipeline run.
func (f *File) Sources() (*source.MemoryVoterSource, *source.MemoryElectionSource) {
	return source.NewMemoryVoterSource(f.Voters), source.NewMemoryElectionSource(f.Elections)
}

// Generate builds the calendar, draws the voters, and tallies per-election
// turnout from the draws.
func (g *Generator) Generate(ctx context.Context) (*File, error) {
	logger.Get().Info(ctx, "generating synthetic voter file",
		logger.Int("voters", g.voterCount),
		logger.Int("elections", g.electionCount),
		logger.Int64("seed", g.seed),
	)

	calendar := g.calendar()
	voters := make([]model.Voter, g.voterCount)

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.parallelism)
	for i := range voters {
		i := i // per-iteration copy for the goroutine under pre-1.22 loop semantics
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("generating voter %d: %w", i, err)
			}
			voters[i] = g.voter(i, calendar)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	elections, err := turnout.DeriveStats(voters, cohort.CalendarOf(calendar))
	if err != nil {
		return nil, fmt.Errorf("tallying synthetic turnout: %w", err)
	}

	return &File{Voters: voters, Elections: elections}, nil
}

// calendar lays out the election dates, chronologically.
func (g *Generator) calendar() []model.Election {
	out := make([]model.Election, 0, g.electionCount)
	year := g.firstYear
	for len(out) < g.electionCount {
		out = append(out, model.Election{
			ID:   fmt.Sprintf("%d-primary", year),
			Date: time.Date(year, primaryMonth, primaryDay, 0, 0, 0, 0, time.UTC),
		})
		if len(out) < g.electionCount {
			out = append(out, model.Election{
				ID:   fmt.Sprintf("%d-general", year),
				Date: time.Date(year, generalMonth, generalDay, 0, 0, 0, 0, time.UTC),
			})
		}
		year++
	}
	return out
}

// voter draws one voter. All randomness comes from a seed derived from the
// generator seed and the voter's index, so construction order never changes
// the output.
func (g *Generator) voter(idx int, calendar []model.Election) model.Voter {
	rng := rand.New(rand.NewSource(g.seed + int64(idx))) //nolint:gosec // synthetic data, not cryptographic
	id, _ := uuid.NewRandomFromReader(rng)

	if idx == 0 {
		return anchorVoter(id.String(), calendar)
	}

	p := pickProfile(rng)
	registered := g.registration(rng, p, calendar)
	votes := draws(rng, p, registered, calendar)

	claimed := registered
	// A slice of real files claims a registration date later than the
	// voter's first recorded ballot; the pipeline must treat the ballot
	// date as the effective registration.
	if len(votes) >= lateClaimMinVotes && rng.Float64() < lateClaimRate {
		claimed = dateOf(votes[1], calendar).AddDate(0, 0, lateClaimLagDays)
	}

	return model.Voter{ID: id.String(), RegisteredAt: claimed, VotedIn: votes}
}

// anchorVoter votes in every election, guaranteeing each election at least
// one ballot so every derived turnout rate stays positive.
func anchorVoter(id string, calendar []model.Election) model.Voter {
	votes := make([]string, len(calendar))
	for i, e := range calendar {
		votes[i] = e.ID
	}
	return model.Voter{
		ID:           id,
		RegisteredAt: calendar[0].Date.AddDate(-anchorLeadYears, 0, 0),
		VotedIn:      votes,
	}
}

// registration draws a registration date. New registrants land between the
// last two elections so at most one election remains for them; everyone
// else lands between the lead window and the middle of the calendar.
func (g *Generator) registration(rng *rand.Rand, p profile, calendar []model.Election) time.Time {
	if p == profileNewRegistrant {
		prev := calendar[len(calendar)-2].Date
		last := calendar[len(calendar)-1].Date
		span := max(daysBetween(prev, last)-1, 1)
		return prev.AddDate(0, 0, 1+rng.Intn(span))
	}

	start := calendar[0].Date.AddDate(0, 0, -regLeadDays)
	mid := calendar[(len(calendar)-1)/2].Date
	return start.AddDate(0, 0, rng.Intn(daysBetween(start, mid)+1))
}

// dateOf looks an election date up by id.
func dateOf(electionID string, calendar []model.Election) time.Time {
	for _, e := range calendar {
		if e.ID == electionID {
			return e.Date
		}
	}
	return time.Time{}
}

// daysBetween returns whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
