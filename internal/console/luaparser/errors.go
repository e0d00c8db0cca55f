package luaparser

import "errors"

var (
	// ErrClosed is returned when using a closed parser.
	ErrClosed = errors.New("lua parser is closed")

	// ErrNoFunction is returned when the script does not define the parse
	// function.
	ErrNoFunction = errors.New("lua parse function not defined")
)
