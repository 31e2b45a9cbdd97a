package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrRunConflict is returned when a sync run is begun while another run
	// of the same type is still in STARTED state
	ErrRunConflict = errors.New("a sync run of this type is already active")

	// ErrTerminalState is returned when a sync run is asked to move from one
	// terminal state to a different terminal state
	ErrTerminalState = errors.New("sync run is already in a terminal state")
)
