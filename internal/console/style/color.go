package style

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownColor is returned by ParseColor for names it cannot resolve.
var ErrUnknownColor = errors.New("unknown color")

// ParseColor resolves a color written as "#rrggbb", one of the eight palette
// names (looked up in p), "default", or any name tcell knows.
func ParseColor(s string, p Palette) (tcell.Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch {
	case name == "" || name == "default":
		return tcell.ColorDefault, nil
	case strings.HasPrefix(name, "#"):
		c, err := colorful.Hex(name)
		if err != nil {
			return tcell.ColorDefault, fmt.Errorf("parse color %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b)), nil
	}
	if i := Index(name); i >= 0 {
		return p[i], nil
	}
	if c := tcell.GetColor(name); c != tcell.ColorDefault {
		return c, nil
	}
	return tcell.ColorDefault, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}
