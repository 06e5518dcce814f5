package service

import "errors"

var (
	// ErrNoVoterSource is returned when Run is called without a voter source.
	ErrNoVoterSource = errors.New("no voter source configured")

	// ErrNoElectionSource is returned when Run is called without an election
	// source.
	ErrNoElectionSource = errors.New("no election source configured")

	// ErrNoSink is returned when Run is called without a sink.
	ErrNoSink = errors.New("no sink configured")

	// ErrNoRun is returned by queries before any run has completed.
	ErrNoRun = errors.New("no completed run")
)
