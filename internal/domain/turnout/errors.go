package turnout

import (
	"errors"
	"fmt"
)

// Sentinel errors for turnout weighting.
var (
	ErrNoElections         = errors.New("no elections to weight")
	ErrInvalidTurnout      = errors.New("invalid turnout data")
	ErrUnknownFunction     = errors.New("unknown weight function")
	ErrMissingElectionID   = errors.New("election has no id")
	ErrMissingElectionDate = errors.New("election has no date")
	ErrDuplicateElection   = errors.New("duplicate election id")
	ErrUnknownElection     = errors.New("participation in unknown election")
)

// InvalidTurnoutError describes one election whose turnout counts cannot
// produce a weight. It matches ErrInvalidTurnout under errors.Is.
type InvalidTurnoutError struct {
	ElectionID string
	Eligible   int64
	Ballots    int64
	Reason     string
}

func (e *InvalidTurnoutError) Error() string {
	return fmt.Sprintf("election %s: %s (eligible=%d, ballots=%d)",
		e.ElectionID, e.Reason, e.Eligible, e.Ballots)
}

func (e *InvalidTurnoutError) Is(target error) bool {
	return target == ErrInvalidTurnout
}
