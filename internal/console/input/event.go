package input

import "fmt"

// Kind distinguishes key presses from typed characters.
type Kind uint8

const (
	// KindPressed is a key press identified by its key code.
	KindPressed Kind = iota
	// KindTyped is a character produced by the keyboard.
	KindTyped
)

// Event is one keyboard event.
type Event struct {
	Kind      Kind
	Key       Key
	Rune      rune
	Modifiers Modifier
}

// Pressed creates a key press event.
func Pressed(k Key, mods Modifier) Event {
	return Event{Kind: KindPressed, Key: k, Modifiers: mods}
}

// Typed creates a character event.
func Typed(r rune, mods Modifier) Event {
	return Event{Kind: KindTyped, Key: KeyRune, Rune: r, Modifiers: mods}
}

// Is reports whether e presses k with exactly mods held.
func (e Event) Is(k Key, mods Modifier) bool {
	return e.Kind == KindPressed && e.Key == k && e.Modifiers == mods
}

func (e Event) String() string {
	var name string
	if e.Kind == KindTyped {
		name = fmt.Sprintf("%q", e.Rune)
	} else {
		name = e.Key.String()
	}
	if e.Modifiers != ModNone {
		return e.Modifiers.String() + "+" + name
	}
	return name
}
