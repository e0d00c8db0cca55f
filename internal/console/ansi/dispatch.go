package ansi

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termpane/internal/console/style"
	"github.com/dshills/termpane/internal/console/writer"
)

// csiHandler runs a control sequence with its numeric parameters.
type csiHandler func(in *Interpreter, params []int)

// sgrHandler applies the SGR parameter at params[i] and returns the index of
// the last parameter it consumed.
type sgrHandler func(s *State, params []int, i int) int

var csiHandlers = map[byte]csiHandler{
	'm': selectGraphicRendition,
	'G': cursorToColumn,
	'J': eraseToEnd,
	'K': eraseToEnd,
}

var sgrHandlers = map[int]sgrHandler{
	0:  resetAttributes,
	1:  setBold(true),
	4:  setUnderline(true),
	7:  ignore, // reverse
	8:  ignore, // conceal
	21: setUnderline(true),
	22: setBold(false),
	24: setUnderline(false),
	27: ignore,
	28: ignore,
	38: extendedColor(true),
	39: defaultForeground,
	48: extendedColor(false),
	49: defaultBackground,
}

func init() {
	for n := 0; n < 8; n++ {
		sgrHandlers[30+n] = paletteForeground(n)
		sgrHandlers[40+n] = paletteBackground(n)
		sgrHandlers[90+n] = brightColor(n, true)
		sgrHandlers[100+n] = brightColor(n, false)
	}
}

func selectGraphicRendition(in *Interpreter, params []int) {
	in.commit()
	if len(params) == 0 {
		in.state.Reset()
		return
	}
	for i := 0; i < len(params); i++ {
		h, ok := sgrHandlers[params[i]]
		if !ok {
			continue
		}
		i = h(in.state, params, i)
	}
}

func cursorToColumn(in *Interpreter, params []int) {
	column := param(params, 0, 1)
	in.commit()
	in.sink.Post(func(w *writer.Writer) {
		w.MoveToColumn(column)
	})
}

func eraseToEnd(in *Interpreter, params []int) {
	if param(params, 0, 0) != 0 {
		return
	}
	in.commit()
	in.sink.Post(func(w *writer.Writer) {
		w.EraseToEnd()
	})
}

func ignore(_ *State, _ []int, i int) int {
	return i
}

func resetAttributes(s *State, _ []int, i int) int {
	s.Reset()
	return i
}

func setBold(on bool) sgrHandler {
	return func(s *State, _ []int, i int) int {
		s.update(func(st style.Style) style.Style { return st.WithBold(on) })
		return i
	}
}

func setUnderline(on bool) sgrHandler {
	return func(s *State, _ []int, i int) int {
		s.update(func(st style.Style) style.Style { return st.WithUnderline(on) })
		return i
	}
}

func paletteForeground(n int) sgrHandler {
	return func(s *State, _ []int, i int) int {
		if c, ok := s.paletteColor(n); ok {
			s.update(func(st style.Style) style.Style { return st.WithForeground(c) })
		}
		return i
	}
}

func paletteBackground(n int) sgrHandler {
	return func(s *State, _ []int, i int) int {
		if c, ok := s.paletteColor(n); ok {
			s.update(func(st style.Style) style.Style { return st.WithBackground(c) })
		}
		return i
	}
}

// brightColor maps the aixterm bright colors onto the upper half of the
// terminal's 16-color palette.
func brightColor(n int, foreground bool) sgrHandler {
	c := tcell.PaletteColor(8 + n)
	return func(s *State, _ []int, i int) int {
		s.update(func(st style.Style) style.Style {
			if foreground {
				return st.WithForeground(c)
			}
			return st.WithBackground(c)
		})
		return i
	}
}

func defaultForeground(s *State, _ []int, i int) int {
	c := s.defaultForeground()
	s.update(func(st style.Style) style.Style { return st.WithForeground(c) })
	return i
}

func defaultBackground(s *State, _ []int, i int) int {
	c := s.defaultBackground()
	s.update(func(st style.Style) style.Style { return st.WithBackground(c) })
	return i
}

// extendedColor handles 38;5;n and 38;2;r;g;b (48 for the background).
func extendedColor(foreground bool) sgrHandler {
	return func(s *State, params []int, i int) int {
		if i+1 >= len(params) {
			return i
		}
		var (
			c    tcell.Color
			last int
		)
		switch params[i+1] {
		case 5:
			if i+2 >= len(params) {
				return len(params) - 1
			}
			c = tcell.PaletteColor(clampColorValue(params[i+2]))
			last = i + 2
		case 2:
			if i+4 >= len(params) {
				return len(params) - 1
			}
			c = tcell.NewRGBColor(
				int32(clampColorValue(params[i+2])),
				int32(clampColorValue(params[i+3])),
				int32(clampColorValue(params[i+4])),
			)
			last = i + 4
		default:
			return i + 1
		}
		s.update(func(st style.Style) style.Style {
			if foreground {
				return st.WithForeground(c)
			}
			return st.WithBackground(c)
		})
		return last
	}
}

func clampColorValue(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
