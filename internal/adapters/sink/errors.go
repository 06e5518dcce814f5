package sink

import "errors"

var (
	// ErrSinkClosed is returned when a write arrives after Close.
	ErrSinkClosed = errors.New("sink is closed")

	// ErrNoDatabasePath is returned when a sqlite sink is created without a
	// database path.
	ErrNoDatabasePath = errors.New("no database path provided")
)
