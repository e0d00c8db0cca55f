// Package view draws a console document, its completion popup and a status
// line onto a tcell screen.
package view

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/termpane/internal/console/completion"
	"github.com/dshills/termpane/internal/console/document"
)

// TabWidth is the distance between tab stops.
const TabWidth = 8

// View renders one console. It must only be used on the goroutine that owns
// the document.
type View struct {
	doc     *document.Document
	overlay *completion.Overlay

	top    int
	follow bool
	status string

	StatusStyle   tcell.Style
	PopupStyle    tcell.Style
	SelectedStyle tcell.Style
}

// New creates a view that follows the caret.
func New(doc *document.Document, overlay *completion.Overlay) *View {
	return &View{
		doc:           doc,
		overlay:       overlay,
		follow:        true,
		StatusStyle:   tcell.StyleDefault.Reverse(true),
		PopupStyle:    tcell.StyleDefault.Background(tcell.ColorGray).Foreground(tcell.ColorBlack),
		SelectedStyle: tcell.StyleDefault.Background(tcell.ColorBlue).Foreground(tcell.ColorWhite).Bold(true),
	}
}

// SetStatus sets the status line text.
func (v *View) SetStatus(s string) {
	v.status = s
}

// Status returns the status line text.
func (v *View) Status() string {
	return v.status
}

// Top returns the first visible document line.
func (v *View) Top() int {
	return v.top
}

// Following reports whether the view tracks the caret.
func (v *View) Following() bool {
	return v.follow
}

// Scroll moves the view by n lines; negative scrolls back. Scrolling stops
// following the caret until Follow is called or the view reaches the caret
// again.
func (v *View) Scroll(n, rows int) {
	v.top = v.clampTop(v.top+n, rows)
	caret := v.caretLine()
	v.follow = caret >= v.top && caret < v.top+rows
}

// Follow makes the view track the caret again.
func (v *View) Follow() {
	v.follow = true
}

// Draw renders the view onto s and shows it.
func (v *View) Draw(s tcell.Screen) {
	s.Clear()
	w, h := s.Size()
	rows := v.textRows(h)

	if v.follow {
		v.reveal(rows)
	}
	v.top = v.clampTop(v.top, rows)

	for y := 0; y < rows && v.top+y < v.doc.LineCount(); y++ {
		v.drawLine(s, v.top+y, y, w)
	}
	v.drawCursor(s, rows)
	v.drawPopup(s, w, rows)
	if rows < h {
		drawText(s, 0, h-1, w, v.status, v.StatusStyle, true)
	}
	s.Show()
}

// textRows returns how many document lines fit on a screen of height h.
func (v *View) textRows(h int) int {
	if h > 1 {
		return h - 1
	}
	return h
}

func (v *View) caretLine() int {
	p, err := v.doc.OffsetToPoint(v.doc.Caret())
	if err != nil {
		return 0
	}
	return p.Line
}

func (v *View) reveal(rows int) {
	line := v.caretLine()
	switch {
	case line < v.top:
		v.top = line
	case line >= v.top+rows:
		v.top = line - rows + 1
	}
}

func (v *View) clampTop(top, rows int) int {
	maxTop := max(0, v.doc.LineCount()-rows)
	return max(0, min(top, maxTop))
}

func (v *View) drawLine(s tcell.Screen, line, y, w int) {
	runs, err := v.doc.Runs(line)
	if err != nil {
		return
	}
	x := 0
	for _, run := range runs {
		st := run.Style.Tcell()
		for _, r := range run.Text {
			x = drawRune(s, x, y, w, r, st)
		}
	}
}

func (v *View) drawCursor(s tcell.Screen, rows int) {
	p, err := v.doc.OffsetToPoint(v.doc.Caret())
	if err != nil || p.Line < v.top || p.Line >= v.top+rows {
		s.HideCursor()
		return
	}
	s.ShowCursor(v.cellColumn(p), p.Line-v.top)
}

// drawPopup draws the completion candidates below the anchor, or above it
// when they do not fit.
func (v *View) drawPopup(s tcell.Screen, w, rows int) {
	if v.overlay == nil || !v.overlay.Visible() {
		return
	}
	items, first := v.overlay.Window()
	if len(items) == 0 {
		return
	}
	anchor := v.overlay.Anchor()
	width := v.overlay.Width() + 2

	y := anchor.Line - v.top + 1
	if y+len(items) > rows {
		y = anchor.Line - v.top - len(items)
	}
	y = max(0, y)
	x := v.cellColumn(anchor)
	if x+width > w {
		x = max(0, w-width)
	}

	for i, item := range items {
		st := v.PopupStyle
		if first+i == v.overlay.Selected() {
			st = v.SelectedStyle
		}
		drawText(s, x, y+i, min(w, x+width), " "+item, st, true)
	}
}

// cellColumn converts a rune column on a document line to a screen column.
func (v *View) cellColumn(p document.Point) int {
	text, err := v.doc.LineText(p.Line)
	if err != nil {
		return 0
	}
	runes := []rune(text)
	return cellWidth(string(runes[:min(p.Column, len(runes))]))
}

// cellWidth is the number of screen cells text occupies from column 0.
func cellWidth(text string) int {
	x := 0
	for _, r := range text {
		x += runeCells(x, r)
	}
	return x
}

func runeCells(x int, r rune) int {
	if r == '\t' {
		return TabWidth - x%TabWidth
	}
	if w := runewidth.RuneWidth(r); w > 0 {
		return w
	}
	return 0
}

// drawRune draws r at x and returns the next column. Runes that do not fit
// before limit are dropped.
func drawRune(s tcell.Screen, x, y, limit int, r rune, st tcell.Style) int {
	n := runeCells(x, r)
	if n == 0 || x+n > limit {
		return x + n
	}
	if r == '\t' {
		for i := range n {
			s.SetContent(x+i, y, ' ', nil, st)
		}
	} else {
		s.SetContent(x, y, r, nil, st)
	}
	return x + n
}

// drawText draws text from x up to limit, padding with spaces when fill is
// set.
func drawText(s tcell.Screen, x, y, limit int, text string, st tcell.Style, fill bool) {
	for _, r := range text {
		x = drawRune(s, x, y, limit, r, st)
	}
	for fill && x < limit {
		s.SetContent(x, y, ' ', nil, st)
		x++
	}
}
