package results

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNotFound        = errors.New("voter result not found")
	ErrAlreadyRecorded = errors.New("voter result already recorded")
	ErrInvalidLimit    = errors.New("invalid top-n limit")
)
