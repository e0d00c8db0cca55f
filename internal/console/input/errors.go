package input

import "errors"

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("input: dispatcher closed")

	// ErrUnknownKey is returned by ParseKey for unrecognized names.
	ErrUnknownKey = errors.New("input: unknown key")
)
