package console

import "errors"

var (
	// ErrClosed is returned when operating on a closed console.
	ErrClosed = errors.New("console is closed")

	// ErrNoInput is returned when a key is sent before an input sink is set.
	ErrNoInput = errors.New("console has no input sink")

	// ErrNotFound is returned when a console ID is unknown.
	ErrNotFound = errors.New("console not found")

	// ErrManagerClosed is returned when creating consoles after Shutdown.
	ErrManagerClosed = errors.New("console manager is closed")
)
