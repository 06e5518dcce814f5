package scoring

import (
	"errors"
	"fmt"
)

// Sentinel errors for raw scoring.
var (
	ErrUnknownElection = errors.New("unknown election")
)

// UnknownElectionError reports a participation record referencing an
// election that has no turnout weight. It matches ErrUnknownElection under
// errors.Is.
type UnknownElectionError struct {
	VoterID    string
	ElectionID string
}

func (e *UnknownElectionError) Error() string {
	return fmt.Sprintf("voter %s: participation in unknown election %s", e.VoterID, e.ElectionID)
}

func (e *UnknownElectionError) Is(target error) bool {
	return target == ErrUnknownElection
}
