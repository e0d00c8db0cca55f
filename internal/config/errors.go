package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid configuration")

// ParseError reports a configuration file that is not valid TOML or does
// not match the settings layout.
type ParseError struct {
	// Path is the file that failed to parse.
	Path string
	// Line and Column locate the error when known.
	Line   int
	Column int
	// Message describes the problem.
	Message string
	// Err is the underlying decoder error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// FieldError describes one setting that failed validation.
type FieldError struct {
	// Key is the dotted setting name, e.g. "process.mode".
	Key     string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Key, e.Message, e.Value)
}

// Is makes every FieldError match ErrInvalid.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalid
}
