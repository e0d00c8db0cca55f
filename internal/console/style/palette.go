package style

import "github.com/gdamore/tcell/v2"

// Palette holds the eight base ANSI colors in SGR order.
type Palette [8]tcell.Color

// PaletteNames lists the palette entries in SGR order.
var PaletteNames = [8]string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

// DefaultPalette returns the standard ANSI palette.
func DefaultPalette() Palette {
	return Palette{
		tcell.ColorBlack,
		tcell.ColorMaroon,
		tcell.ColorGreen,
		tcell.ColorOlive,
		tcell.ColorNavy,
		tcell.ColorPurple,
		tcell.ColorTeal,
		tcell.ColorSilver,
	}
}

// Color returns entry n, or false when n is outside 0-7.
func (p Palette) Color(n int) (tcell.Color, bool) {
	if n < 0 || n >= len(p) {
		return tcell.ColorDefault, false
	}
	return p[n], true
}

// Index returns the palette position for a color name, or -1.
func Index(name string) int {
	for i, n := range PaletteNames {
		if n == name {
			return i
		}
	}
	return -1
}
