package ansi

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termpane/internal/console/style"
)

// State is the per-session style context mutated by SGR sequences. It holds
// the default style, the sequence style, and which of the two is current.
type State struct {
	mu          sync.Mutex
	defaults    style.Style
	sequence    style.Style
	useSequence bool
	palette     style.Palette
}

// NewState creates a state whose default style is defaults.
func NewState(defaults style.Style, palette style.Palette) *State {
	return &State{
		defaults: defaults,
		sequence: defaults,
		palette:  palette,
	}
}

// CurrentStyle returns the style in effect.
func (s *State) CurrentStyle() style.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

// DefaultStyle returns the default style.
func (s *State) DefaultStyle() style.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults
}

// SetDefaults replaces the default style and palette, e.g. after a
// configuration reload. The sequence style is left alone.
func (s *State) SetDefaults(defaults style.Style, palette style.Palette) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = defaults
	s.palette = palette
}

// Reset makes the default style current again.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence = s.defaults
	s.useSequence = false
}

func (s *State) current() style.Style {
	if s.useSequence {
		return s.sequence
	}
	return s.defaults
}

// update derives the sequence style from the current one and makes it current.
func (s *State) update(fn func(style.Style) style.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence = fn(s.current())
	s.useSequence = true
}

func (s *State) paletteColor(n int) (tcell.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palette.Color(n)
}

func (s *State) defaultForeground() tcell.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults.Foreground
}

func (s *State) defaultBackground() tcell.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults.Background
}
