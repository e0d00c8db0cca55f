// Package writer renders console text into a document with terminal
// overwrite semantics: text typed at the caret replaces what is already
// there instead of being inserted in front of it.
package writer

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/termpane/internal/console/document"
	"github.com/dshills/termpane/internal/console/style"
)

const backspace = '\b'

// Writer applies styled overwrites at the document caret. It must only be
// used from the goroutine that owns the document.
type Writer struct {
	doc     *document.Document
	current style.Style
	parser  LineParser
}

// Option configures a Writer.
type Option func(*Writer)

// WithLineParser installs a line parser. A nil parser keeps the default.
func WithLineParser(p LineParser) Option {
	return func(w *Writer) {
		if p != nil {
			w.parser = p
		}
	}
}

// New creates a writer over doc using the default style.
func New(doc *document.Document, opts ...Option) *Writer {
	w := &Writer{
		doc:     doc,
		current: style.Default(),
		parser:  PlainParser{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Document returns the underlying document.
func (w *Writer) Document() *document.Document {
	return w.doc
}

// Caret returns the caret offset.
func (w *Writer) Caret() int {
	return w.doc.Caret()
}

// SetCaret moves the caret, clamped to the document.
func (w *Writer) SetCaret(offset int) {
	w.doc.SetCaret(offset)
}

// CurrentStyle returns the style used for unstyled text.
func (w *Writer) CurrentStyle() style.Style {
	return w.current
}

// SetCurrentStyle replaces the style used for unstyled text.
func (w *Writer) SetCurrentStyle(st style.Style) {
	w.current = st
}

// Overwrite replaces up to len(text) runes at the caret with text in style
// st and advances the caret past it.
func (w *Writer) Overwrite(text string, st style.Style) {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return
	}

	caret := w.doc.Caret()
	remove := w.doc.Len() - caret
	if remove > n {
		remove = n
	}
	if remove > 0 {
		if err := w.doc.Remove(caret, remove); err != nil {
			return
		}
	}
	if err := w.doc.Insert(caret, text, st); err != nil {
		return
	}
	w.doc.SetCaret(caret + n)
}

// WriteNonTerminatedLine writes text in the current style. A backspace moves
// the caret one position left instead of being printed.
func (w *Writer) WriteNonTerminatedLine(text string) {
	w.writeRunes(text, w.current)
}

// WriteLine writes a complete line ending in '\n' through the line parser,
// then moves to the next line.
func (w *Writer) WriteLine(line string) {
	body := strings.TrimSuffix(line, "\n")
	for _, seg := range w.parser.ParseLine(body) {
		st := w.current
		if seg.Style != nil {
			st = *seg.Style
		}
		w.writeRunes(seg.Text, st)
	}
	w.newline()
}

// BackCursor moves the caret left by n, stopping at the document start.
func (w *Writer) BackCursor(n int) {
	caret := w.doc.Caret()
	if n > caret {
		n = caret
	}
	w.doc.SetCaret(caret - n)
}

// MoveToColumn places the caret at the one-based column of the caret's line.
func (w *Writer) MoveToColumn(column int) {
	line, err := w.doc.LineOfOffset(w.doc.Caret())
	if err != nil {
		return
	}
	start, err := w.doc.LineStartOffset(line)
	if err != nil {
		return
	}
	w.doc.SetCaret(start + column - 1)
}

// EraseToEnd removes everything from the caret to the end of the document.
// The caret does not move.
func (w *Writer) EraseToEnd() {
	caret := w.doc.Caret()
	_ = w.doc.Remove(caret, w.doc.Len()-caret)
}

// writeRunes overwrites text rune by rune, batching runs between backspaces.
func (w *Writer) writeRunes(text string, st style.Style) {
	for text != "" {
		i := strings.IndexRune(text, backspace)
		if i < 0 {
			w.Overwrite(text, st)
			return
		}
		w.Overwrite(text[:i], st)
		w.BackCursor(1)
		text = text[i+1:]
	}
}

// newline moves the caret past the next newline, appending one when the
// caret is on the last line.
func (w *Writer) newline() {
	if idx := w.doc.IndexNewline(w.doc.Caret()); idx >= 0 {
		w.doc.SetCaret(idx + 1)
		return
	}
	end := w.doc.Len()
	if err := w.doc.Insert(end, "\n", w.current); err != nil {
		return
	}
	w.doc.SetCaret(end + 1)
}
