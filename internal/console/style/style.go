// Package style defines the text attributes applied to console output.
package style

import (
	"github.com/gdamore/tcell/v2"
)

// Style is an immutable set of text attributes. The zero value is not the
// default style; use Default.
type Style struct {
	Foreground tcell.Color
	Background tcell.Color
	Bold       bool
	Underline  bool
}

// Default returns the unstyled attribute set.
func Default() Style {
	return Style{
		Foreground: tcell.ColorDefault,
		Background: tcell.ColorDefault,
	}
}

// WithForeground returns a copy of s with the foreground set.
func (s Style) WithForeground(c tcell.Color) Style {
	s.Foreground = c
	return s
}

// WithBackground returns a copy of s with the background set.
func (s Style) WithBackground(c tcell.Color) Style {
	s.Background = c
	return s
}

// WithBold returns a copy of s with bold toggled.
func (s Style) WithBold(on bool) Style {
	s.Bold = on
	return s
}

// WithUnderline returns a copy of s with underline toggled.
func (s Style) WithUnderline(on bool) Style {
	s.Underline = on
	return s
}

// IsDefault reports whether s carries no attributes.
func (s Style) IsDefault() bool {
	return s == Default()
}

// Tcell converts s to a tcell style for drawing.
func (s Style) Tcell() tcell.Style {
	st := tcell.StyleDefault
	if s.Foreground != tcell.ColorDefault {
		st = st.Foreground(s.Foreground)
	}
	if s.Background != tcell.ColorDefault {
		st = st.Background(s.Background)
	}
	if s.Bold {
		st = st.Bold(true)
	}
	if s.Underline {
		st = st.Underline(true)
	}
	return st
}
