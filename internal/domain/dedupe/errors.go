package dedupe

import (
	"errors"
	"fmt"
)

// Sentinel errors for voter-file validation.
var (
	ErrDuplicateVoter = errors.New("duplicate voter id")
	ErrMissingVoterID = errors.New("voter has no id")
)

// DuplicateVoterError names a registrant appearing more than once. It
// matches ErrDuplicateVoter under errors.Is.
type DuplicateVoterError struct {
	VoterID string
}

func (e *DuplicateVoterError) Error() string {
	return fmt.Sprintf("duplicate voter id %s in voter file", e.VoterID)
}

func (e *DuplicateVoterError) Is(target error) bool {
	return target == ErrDuplicateVoter
}
