package input

import (
	"fmt"
	"unicode/utf8"
)

// Encoder converts an event to the bytes a terminal would send for it. ok is
// false for events with no encoding.
type Encoder interface {
	Encode(ev Event) (seq []byte, ok bool)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(ev Event) ([]byte, bool)

// Encode calls f.
func (f EncoderFunc) Encode(ev Event) ([]byte, bool) {
	return f(ev)
}

// VTEncoder encodes events the way an xterm in normal cursor mode does.
type VTEncoder struct {
	// LineFeed sends Enter as "\n" instead of "\r", for programs reading
	// a pipe rather than a terminal.
	LineFeed bool
}

var vtKeys = map[Key]string{
	KeyEscape:    "\x1b",
	KeyEnter:     "\r",
	KeyTab:       "\t",
	KeyBackspace: "\x7f",
	KeyDelete:    "\x1b[3~",
	KeyInsert:    "\x1b[2~",
	KeyHome:      "\x1b[H",
	KeyEnd:       "\x1b[F",
	KeyPageUp:    "\x1b[5~",
	KeyPageDown:  "\x1b[6~",
	KeyUp:        "\x1b[A",
	KeyDown:      "\x1b[B",
	KeyRight:     "\x1b[C",
	KeyLeft:      "\x1b[D",
	KeyF1:        "\x1bOP",
	KeyF2:        "\x1bOQ",
	KeyF3:        "\x1bOR",
	KeyF4:        "\x1bOS",
}

// Function keys from F5 use the CSI n ~ form.
var vtFunctionCodes = [...]int{15, 17, 18, 19, 20, 21, 23, 24}

// Encode implements Encoder.
func (e VTEncoder) Encode(ev Event) ([]byte, bool) {
	if ev.Modifiers.Has(ModAction) {
		return nil, false
	}
	var seq []byte
	switch ev.Kind {
	case KindTyped:
		seq = encodeRune(ev.Rune, ev.Modifiers)
	case KindPressed:
		seq = encodeKey(ev.Key)
		switch {
		case ev.Key == KeyTab && ev.Modifiers.Has(ModShift):
			seq = []byte("\x1b[Z")
		case ev.Key == KeyEnter && e.LineFeed:
			seq = []byte("\n")
		}
	}
	if seq == nil {
		return nil, false
	}
	if ev.Modifiers.Has(ModAlt) {
		seq = append([]byte{0x1b}, seq...)
	}
	return seq, true
}

func encodeRune(r rune, mods Modifier) []byte {
	if r == 0 || !utf8.ValidRune(r) {
		return nil
	}
	if mods.Has(ModCtrl) {
		switch {
		case r >= 'a' && r <= 'z':
			return []byte{byte(r - 'a' + 1)}
		case r >= '@' && r <= '_':
			return []byte{byte(r - '@')}
		case r == ' ':
			return []byte{0}
		}
	}
	return utf8.AppendRune(nil, r)
}

func encodeKey(k Key) []byte {
	if s, ok := vtKeys[k]; ok {
		return []byte(s)
	}
	if k >= KeyF5 && k <= KeyF12 {
		return fmt.Appendf(nil, "\x1b[%d~", vtFunctionCodes[k-KeyF5])
	}
	return nil
}
