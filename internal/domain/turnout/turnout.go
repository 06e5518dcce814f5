// Package turnout computes per-election weights from turnout statistics.
//
// Low-turnout elections say more about a voter's habit than high-turnout
// ones, so weights are inversely related to the turnout rate. Every weight
// function is strictly positive, strictly decreasing, and finite on (0,1].
package turnout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/voterfile/propensity/internal/domain/model"
)

// Default calculator configuration constants.
const (
	defaultParallelism = 4
)

// Function identifies a turnout-to-weight mapping.
type Function string

const (
	// FunctionInverse is w = 1/r: an election everyone voted in is worth
	// exactly one participation credit.
	FunctionInverse Function = "inverse"
	// FunctionSurprisal is w = 1 - ln r, a gentler curve for files
	// dominated by low-turnout local contests.
	FunctionSurprisal Function = "surprisal"
)

// Calculator turns election turnout statistics into a weight table.
type Calculator struct {
	fn          Function
	parallelism int
}

// NewCalculator creates a calculator with the inverse weight function.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		fn:          FunctionInverse,
		parallelism: defaultParallelism,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Weights validates every election and computes a weight per election.
// Validation covers the whole slice before failing, so one pass surfaces
// every bad record; the returned error joins one error per invalid election.
func (c *Calculator) Weights(ctx context.Context, elections []model.Election) (*Table, error) {
	if len(elections) == 0 {
		return nil, ErrNoElections
	}

	var errs []error
	seen := make(map[string]struct{}, len(elections))
	for _, e := range elections {
		if err := validate(e); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[e.ID]; dup {
			errs = append(errs, fmt.Errorf("election %s: %w", e.ID, ErrDuplicateElection))
			continue
		}
		seen[e.ID] = struct{}{}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	weights := make([]float64, len(elections))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, e := range elections {
		i, e := i, e // per-iteration copies for the goroutine under pre-1.22 loop semantics
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return fmt.Errorf("weighting election %s: %w", e.ID, ctx.Err())
			default:
			}
			w, err := c.weight(e.TurnoutRate())
			if err != nil {
				return fmt.Errorf("election %s: %w", e.ID, err)
			}
			weights[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := &Table{weights: make(map[string]float64, len(elections))}
	for i, e := range elections {
		table.weights[e.ID] = weights[i]
	}
	return table, nil
}

// weight maps a turnout rate in (0,1] to a weight.
func (c *Calculator) weight(rate float64) (float64, error) {
	switch c.fn {
	case FunctionInverse:
		return 1 / rate, nil
	case FunctionSurprisal:
		return 1 - math.Log(rate), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFunction, c.fn)
	}
}

// validate checks a single election's identity, date, and turnout counts.
func validate(e model.Election) error {
	if e.ID == "" {
		return ErrMissingElectionID
	}
	if e.Date.IsZero() {
		return fmt.Errorf("election %s: %w", e.ID, ErrMissingElectionDate)
	}
	switch {
	case e.Eligible <= 0:
		return &InvalidTurnoutError{
			ElectionID: e.ID,
			Eligible:   e.Eligible,
			Ballots:    e.Ballots,
			Reason:     "eligible population is not positive",
		}
	case e.Ballots < 0:
		return &InvalidTurnoutError{
			ElectionID: e.ID,
			Eligible:   e.Eligible,
			Ballots:    e.Ballots,
			Reason:     "negative ballot count",
		}
	case e.Ballots == 0:
		return &InvalidTurnoutError{
			ElectionID: e.ID,
			Eligible:   e.Eligible,
			Ballots:    e.Ballots,
			Reason:     "zero turnout leaves the weight undefined",
		}
	case e.Ballots > e.Eligible:
		return &InvalidTurnoutError{
			ElectionID: e.ID,
			Eligible:   e.Eligible,
			Ballots:    e.Ballots,
			Reason:     "ballots exceed eligible population",
		}
	}
	return nil
}

// Table holds per-election weights. It is immutable once built and safe for
// concurrent lookups.
type Table struct {
	weights map[string]float64
}

// Weight returns the weight for an election id.
func (t *Table) Weight(electionID string) (float64, bool) {
	w, ok := t.weights[electionID]
	return w, ok
}

// Len returns the number of weighted elections.
func (t *Table) Len() int { return len(t.weights) }

// IDs returns the weighted election ids in sorted order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.weights))
	for id := range t.weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
