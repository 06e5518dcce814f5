// Package scoring computes raw participation scores from turnout weights.
package scoring

import (
	"context"
	"fmt"

	"github.com/voterfile/propensity/internal/domain/model"
)

// WeightTable resolves an election id to its turnout weight.
type WeightTable interface {
	Weight(electionID string) (float64, bool)
}

// Scorer computes a voter's raw participation score.
type Scorer interface {
	// Score sums the turnout weights of the voter's participations,
	// honoring ctx for cancellation.
	Score(ctx context.Context, v model.Voter, weights WeightTable) (float64, error)
}

// WeightedScorer implements Scorer as a pure weighted sum. A voter with no
// recorded participation scores zero; that zero is a real observation, not
// a missing value.
type WeightedScorer struct{}

// NewWeightedScorer creates a weighted-sum scorer.
func NewWeightedScorer() *WeightedScorer {
	return &WeightedScorer{}
}

// Score computes the raw score for one voter. A participation referencing
// an election absent from the weight table fails the voter rather than
// being silently skipped.
func (s *WeightedScorer) Score(ctx context.Context, v model.Voter, weights WeightTable) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("scoring voter %s: %w", v.ID, err)
	}

	var sum float64
	for _, id := range v.VotedIn {
		w, ok := weights.Weight(id)
		if !ok {
			return 0, &UnknownElectionError{VoterID: v.ID, ElectionID: id}
		}
		sum += w
	}
	return sum, nil
}
