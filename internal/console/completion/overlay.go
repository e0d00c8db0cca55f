package completion

import (
	"errors"
	"fmt"
	"io"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/termpane/internal/console/capture"
	"github.com/dshills/termpane/internal/console/document"
	"github.com/dshills/termpane/internal/logging"
)

// MaxRows is the most candidates shown at once.
const MaxRows = 10

// InvalidInput is what the shell prints when it has nothing to offer.
const InvalidInput = "{invalid input}"

// ErrNoSink is returned by Confirm when no input sink was configured.
var ErrNoSink = errors.New("completion: no input sink")

// Overlay is the candidate popup.
type Overlay struct {
	doc    *document.Document
	sink   io.Writer
	logger *log.Logger
	notify func()

	items     []string
	selected  int
	top       int
	rows      int
	anchor    document.Point
	inputLine string
	visible   bool
}

// Option configures an Overlay.
type Option func(*Overlay)

// WithSink sets where confirmed completions are written, normally the
// process's standard input.
func WithSink(w io.Writer) Option {
	return func(o *Overlay) {
		o.sink = w
	}
}

// WithLogger sets the overlay's logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Overlay) {
		o.logger = l
	}
}

// WithNotify registers fn to run whenever the overlay changes, so the host
// can redraw.
func WithNotify(fn func()) Option {
	return func(o *Overlay) {
		o.notify = fn
	}
}

// New creates a hidden overlay positioned relative to doc's caret.
func New(doc *document.Document, opts ...Option) *Overlay {
	o := &Overlay{doc: doc}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrDiscard(o.logger)
	return o
}

// SetSink replaces the input sink.
func (o *Overlay) SetSink(w io.Writer) {
	o.sink = w
}

// Candidates extracts completion candidates from captured shell output.
func Candidates(text string) []string {
	text = strings.TrimSpace(xansi.Strip(text))
	if text == "" || text == InvalidInput {
		return nil
	}
	return strings.Fields(text)
}

// Remainder returns the part of candidate not already at the end of
// inputLine: the longest prefix of candidate that inputLine ends with is
// dropped. With no overlap the whole candidate is returned.
func Remainder(inputLine, candidate string) string {
	overlap := 0
	for i := range candidate {
		if i > 0 && strings.HasSuffix(inputLine, candidate[:i]) {
			overlap = i
		}
	}
	if strings.HasSuffix(inputLine, candidate) {
		overlap = len(candidate)
	}
	return candidate[overlap:]
}

// PostAction is the capture callback for a completion request.
func (o *Overlay) PostAction(r capture.Result) error {
	items := Candidates(r.Text)
	if len(items) < 2 {
		o.logger.Debug("completion not shown", "candidates", len(items))
		return nil
	}
	o.Show(items, r.InputLine)
	return nil
}

// Show displays items below the caret. inputLine is the text the user has
// typed so far.
func (o *Overlay) Show(items []string, inputLine string) {
	o.items = append(o.items[:0], items...)
	o.inputLine = inputLine
	o.selected = 0
	o.top = 0
	o.rows = min(MaxRows, len(items))
	o.anchor = document.Point{}
	if p, err := o.doc.OffsetToPoint(o.doc.Caret()); err == nil {
		o.anchor = p
	}
	o.visible = len(items) > 0
	o.changed()
}

// Visible reports whether the overlay is showing.
func (o *Overlay) Visible() bool {
	return o.visible
}

// Items returns all candidates.
func (o *Overlay) Items() []string {
	return o.items
}

// Selected returns the index of the highlighted candidate.
func (o *Overlay) Selected() int {
	return o.selected
}

// SelectedItem returns the highlighted candidate, or "" when hidden.
func (o *Overlay) SelectedItem() string {
	if !o.visible || len(o.items) == 0 {
		return ""
	}
	return o.items[o.selected]
}

// Rows returns how many candidates fit in the popup.
func (o *Overlay) Rows() int {
	return o.rows
}

// Window returns the candidates currently scrolled into view and the index
// of the first one.
func (o *Overlay) Window() ([]string, int) {
	if !o.visible {
		return nil, 0
	}
	end := min(o.top+o.rows, len(o.items))
	return o.items[o.top:end], o.top
}

// Anchor returns the caret position the popup hangs below.
func (o *Overlay) Anchor() document.Point {
	return o.anchor
}

// InputLine returns the input line the candidates complete.
func (o *Overlay) InputLine() string {
	return o.inputLine
}

// Width returns the display width of the widest candidate.
func (o *Overlay) Width() int {
	w := 0
	for _, item := range o.items {
		w = max(w, runewidth.StringWidth(item))
	}
	return w
}

// Up moves the selection up, wrapping to the last candidate.
func (o *Overlay) Up() {
	o.move(-1)
}

// Down moves the selection down, wrapping to the first candidate.
func (o *Overlay) Down() {
	o.move(1)
}

func (o *Overlay) move(delta int) {
	if !o.visible || len(o.items) == 0 {
		return
	}
	n := len(o.items)
	o.selected = ((o.selected+delta)%n + n) % n
	switch {
	case o.selected < o.top:
		o.top = o.selected
	case o.selected >= o.top+o.rows:
		o.top = o.selected - o.rows + 1
	}
	o.changed()
}

// Confirm sends the untyped remainder of the selected candidate to the input
// sink and hides the overlay.
func (o *Overlay) Confirm() error {
	if !o.visible {
		return nil
	}
	rest := Remainder(o.inputLine, o.SelectedItem())
	o.Cancel()
	if rest == "" {
		return nil
	}
	if o.sink == nil {
		return ErrNoSink
	}
	if _, err := io.WriteString(o.sink, rest); err != nil {
		return fmt.Errorf("send completion: %w", err)
	}
	return nil
}

// Cancel hides the overlay.
func (o *Overlay) Cancel() {
	if !o.visible {
		return
	}
	o.visible = false
	o.items = o.items[:0]
	o.selected = 0
	o.top = 0
	o.rows = 0
	o.changed()
}

func (o *Overlay) changed() {
	if o.notify != nil {
		o.notify()
	}
}
