package process

import "errors"

var (
	// ErrNotStarted is returned by operations that need a running process.
	ErrNotStarted = errors.New("process not started")

	// ErrExited is returned when writing to a program that has exited.
	ErrExited = errors.New("process has exited")

	// ErrNotPTY is returned by Resize in pipe mode.
	ErrNotPTY = errors.New("process has no pseudo-terminal")

	// ErrNoCommand is returned when Options names no program.
	ErrNoCommand = errors.New("no command")

	// ErrUnknownMode is returned by ParseMode.
	ErrUnknownMode = errors.New("unknown process mode")
)
