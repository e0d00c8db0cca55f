package document

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/termpane/internal/console/style"
)

// Errors returned by document operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrLineOutOfRange   = errors.New("line out of range")
)

// Point is a zero-based line/column position. Column counts runes.
type Point struct {
	Line   int
	Column int
}

// String returns "line:column".
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Run is a maximal stretch of identically styled text on one line.
type Run struct {
	Text  string
	Style style.Style
}

// Document is a styled, offset-addressed text surface with a caret.
type Document struct {
	text   []rune
	styles []style.Style
	caret  int

	// newlines holds the offset of every '\n' in text, ascending.
	newlines []int
}

// New creates an empty document.
func New() *Document {
	return &Document{}
}

// NewFromString creates a document holding s in style st, caret at the end.
func NewFromString(s string, st style.Style) *Document {
	d := New()
	_ = d.Insert(0, s, st)
	d.caret = len(d.text)
	return d
}

// Len returns the number of runes in the document.
func (d *Document) Len() int {
	return len(d.text)
}

// Text returns the whole document content.
func (d *Document) Text() string {
	return string(d.text)
}

// TextRange returns the text in [start, end).
func (d *Document) TextRange(start, end int) (string, error) {
	if start < 0 || start > end || end > len(d.text) {
		return "", ErrRangeInvalid
	}
	return string(d.text[start:end]), nil
}

// StyleAt returns the style of the rune at offset.
func (d *Document) StyleAt(offset int) (style.Style, error) {
	if offset < 0 || offset >= len(d.text) {
		return style.Style{}, ErrOffsetOutOfRange
	}
	return d.styles[offset], nil
}

// Insert inserts text at offset with style st. The caret is not moved.
func (d *Document) Insert(offset int, text string, st style.Style) error {
	if offset < 0 || offset > len(d.text) {
		return ErrOffsetOutOfRange
	}
	if text == "" {
		return nil
	}

	runes := []rune(text)
	styles := make([]style.Style, len(runes))
	for i := range styles {
		styles[i] = st
	}

	d.text = append(d.text[:offset], append(runes, d.text[offset:]...)...)
	d.styles = append(d.styles[:offset], append(styles, d.styles[offset:]...)...)

	k, _ := slices.BinarySearch(d.newlines, offset)
	for i := k; i < len(d.newlines); i++ {
		d.newlines[i] += len(runes)
	}
	var added []int
	for i, r := range runes {
		if r == '\n' {
			added = append(added, offset+i)
		}
	}
	d.newlines = slices.Insert(d.newlines, k, added...)
	return nil
}

// Remove deletes n runes starting at offset. The caret is clamped to the
// new length if it ends up past the end.
func (d *Document) Remove(offset, n int) error {
	if offset < 0 || n < 0 || offset+n > len(d.text) {
		return ErrRangeInvalid
	}
	if n == 0 {
		return nil
	}

	d.text = append(d.text[:offset], d.text[offset+n:]...)
	d.styles = append(d.styles[:offset], d.styles[offset+n:]...)

	lo, _ := slices.BinarySearch(d.newlines, offset)
	hi, _ := slices.BinarySearch(d.newlines, offset+n)
	d.newlines = slices.Delete(d.newlines, lo, hi)
	for i := lo; i < len(d.newlines); i++ {
		d.newlines[i] -= n
	}
	if d.caret > len(d.text) {
		d.caret = len(d.text)
	}
	return nil
}

// Clear removes all content and resets the caret.
func (d *Document) Clear() {
	d.text = d.text[:0]
	d.styles = d.styles[:0]
	d.newlines = d.newlines[:0]
	d.caret = 0
}

// Caret returns the caret offset.
func (d *Document) Caret() int {
	return d.caret
}

// SetCaret moves the caret, clamping it into [0, Len()].
func (d *Document) SetCaret(offset int) {
	switch {
	case offset < 0:
		d.caret = 0
	case offset > len(d.text):
		d.caret = len(d.text)
	default:
		d.caret = offset
	}
}

// IndexNewline returns the offset of the first '\n' at or after from, or -1.
func (d *Document) IndexNewline(from int) int {
	if from < 0 {
		from = 0
	}
	k, _ := slices.BinarySearch(d.newlines, from)
	if k == len(d.newlines) {
		return -1
	}
	return d.newlines[k]
}

// LineCount returns the number of lines. An empty document has one line.
func (d *Document) LineCount() int {
	return len(d.newlines) + 1
}

// LineOfOffset returns the line containing offset.
func (d *Document) LineOfOffset(offset int) (int, error) {
	if offset < 0 || offset > len(d.text) {
		return 0, ErrOffsetOutOfRange
	}
	line, _ := slices.BinarySearch(d.newlines, offset)
	return line, nil
}

// LineStartOffset returns the offset of the first rune of line.
func (d *Document) LineStartOffset(line int) (int, error) {
	switch {
	case line < 0 || line > len(d.newlines):
		return 0, ErrLineOutOfRange
	case line == 0:
		return 0, nil
	}
	return d.newlines[line-1] + 1, nil
}

// LineEndOffset returns the offset just before the newline ending line, or
// the document end for the last line.
func (d *Document) LineEndOffset(line int) (int, error) {
	if _, err := d.LineStartOffset(line); err != nil {
		return 0, err
	}
	if line < len(d.newlines) {
		return d.newlines[line], nil
	}
	return len(d.text), nil
}

// LineText returns the text of line without its newline.
func (d *Document) LineText(line int) (string, error) {
	start, err := d.LineStartOffset(line)
	if err != nil {
		return "", err
	}
	end, _ := d.LineEndOffset(line)
	return string(d.text[start:end]), nil
}

// OffsetToPoint converts an offset to a line/column position.
func (d *Document) OffsetToPoint(offset int) (Point, error) {
	line, err := d.LineOfOffset(offset)
	if err != nil {
		return Point{}, err
	}
	start, _ := d.LineStartOffset(line)
	return Point{Line: line, Column: offset - start}, nil
}

// PointToOffset converts a line/column position to an offset. Columns past
// the end of the line clamp to the line end.
func (d *Document) PointToOffset(p Point) (int, error) {
	start, err := d.LineStartOffset(p.Line)
	if err != nil {
		return 0, err
	}
	end, _ := d.LineEndOffset(p.Line)
	if p.Column < 0 {
		return start, nil
	}
	if start+p.Column > end {
		return end, nil
	}
	return start + p.Column, nil
}

// Runs returns the styled runs of line, newline excluded.
func (d *Document) Runs(line int) ([]Run, error) {
	start, err := d.LineStartOffset(line)
	if err != nil {
		return nil, err
	}
	end, _ := d.LineEndOffset(line)

	var runs []Run
	var sb strings.Builder
	for i := start; i < end; i++ {
		if i > start && d.styles[i] != d.styles[i-1] {
			runs = append(runs, Run{Text: sb.String(), Style: d.styles[i-1]})
			sb.Reset()
		}
		sb.WriteRune(d.text[i])
	}
	if sb.Len() > 0 {
		runs = append(runs, Run{Text: sb.String(), Style: d.styles[end-1]})
	}
	return runs, nil
}
