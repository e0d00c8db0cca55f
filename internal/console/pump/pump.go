// Package pump moves process output from producer goroutines into the
// console document, which only the UI goroutine may touch.
//
// Producers call Write (or WriteString) followed by Flush. Flush drains the
// buffered text atomically, splits it into complete lines plus the trailing
// partial line, and posts a render step to the UI executor. The partial line
// stays buffered so the next flush re-renders it in place together with any
// new text. Commit is a flush that consumes the partial line as well; it is
// used before cursor, erase and style commands.
//
// After a flush's render step the pump records whether the console is
// waiting for input (the partial line is non-empty) and, if a capture is in
// progress, ends it with that line.
package pump

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dshills/termpane/internal/console/capture"
	"github.com/dshills/termpane/internal/console/linereader"
	"github.com/dshills/termpane/internal/console/style"
	"github.com/dshills/termpane/internal/console/writer"
	"github.com/dshills/termpane/internal/logging"
)

// StyleSource reports the style in effect for text buffered so far.
type StyleSource interface {
	CurrentStyle() style.Style
}

// batch is one drained flush, rendered on the UI goroutine.
type batch struct {
	lines   []string
	current string
	style   style.Style
	commit  bool
	after   func()
}

// Pump is the boundary between producer goroutines and the UI goroutine.
type Pump struct {
	exec     Executor
	writer   *writer.Writer
	capturer *capture.Capturer
	styles   StyleSource
	logger   *log.Logger

	// Producer side, guarded by mu.
	mu     sync.Mutex
	buf    strings.Builder
	dirty  bool
	closed bool

	// UI side, only touched by render steps and BeginCapture.
	anchor     int
	prefix     string
	skipPrompt bool

	// Published by render steps.
	stateMu     sync.RWMutex
	waiting     bool
	currentLine string
}

// Option configures a Pump.
type Option func(*Pump)

// WithCapturer forwards completed lines to c while it is active.
func WithCapturer(c *capture.Capturer) Option {
	return func(p *Pump) {
		p.capturer = c
	}
}

// WithStyleSource sets where flushes snapshot their style from.
func WithStyleSource(s StyleSource) Option {
	return func(p *Pump) {
		p.styles = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pump) {
		p.logger = l
	}
}

// New creates a pump rendering into w on exec's consumer goroutine.
func New(exec Executor, w *writer.Writer, opts ...Option) *Pump {
	p := &Pump{
		exec:   exec,
		writer: w,
		anchor: -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.WithComponent(p.logger, "pump")
	if p.capturer == nil {
		p.capturer = capture.New(p.logger)
	}
	return p
}

// Capturer returns the capture buffer fed by this pump.
func (p *Pump) Capturer() *capture.Capturer {
	return p.capturer
}

// Write buffers raw output without parsing it.
func (p *Pump) Write(b []byte) (int, error) {
	return p.WriteString(string(b))
}

// WriteString buffers raw output without parsing it.
func (p *Pump) WriteString(s string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}
	if s == "" {
		return 0, nil
	}
	p.buf.WriteString(s)
	p.dirty = true
	return len(s), nil
}

// Flush schedules rendering of everything written since the last flush.
// after, if non-nil, runs on the UI goroutine once the text is written.
// Flush does nothing when no new output arrived.
func (p *Pump) Flush(after func()) {
	p.flush(false, after)
}

// Commit is Flush that also consumes the partial line, so that text written
// afterwards starts at wherever the caret is moved next.
func (p *Pump) Commit(after func()) {
	p.flush(true, after)
}

func (p *Pump) flush(commit bool, after func()) {
	p.mu.Lock()
	if !p.dirty && !(commit && p.buf.Len() > 0) {
		p.mu.Unlock()
		if after != nil {
			p.exec.Post(after)
		}
		return
	}

	lines, current := linereader.Read(p.buf.String())
	p.buf.Reset()
	if !commit {
		p.buf.WriteString(current)
	}
	p.dirty = false

	b := batch{
		lines:   lines,
		current: current,
		style:   p.snapshotStyle(),
		commit:  commit,
		after:   after,
	}
	p.mu.Unlock()

	p.exec.Post(func() { p.render(b) })
}

func (p *Pump) snapshotStyle() style.Style {
	if p.styles == nil {
		return style.Default()
	}
	return p.styles.CurrentStyle()
}

// Post schedules fn against the writer on the UI goroutine, ordered after
// every previously scheduled flush.
func (p *Pump) Post(fn func(w *writer.Writer)) {
	p.exec.Post(func() {
		if err := p.guard(func() { fn(p.writer) }); err != nil {
			p.logger.Error("ui operation failed", "err", err)
		}
	})
}

// BeginCapture starts a capture session. The line completing the prompt
// already on screen is not recorded. Call it on the UI goroutine.
func (p *Pump) BeginCapture(postAction capture.PostAction) {
	p.skipPrompt = p.CurrentLine() != "" || p.prefix != ""
	p.capturer.Capture(postAction)
}

// WaitingForInput reports whether the last render left an unterminated line.
func (p *Pump) WaitingForInput() bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.waiting
}

// CurrentLine returns the unterminated line as of the last render.
func (p *Pump) CurrentLine() string {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.currentLine
}

// Close rejects further writes. Render steps already posted still run.
func (p *Pump) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Pump) render(b batch) {
	if err := p.guard(func() { p.writeBatch(b) }); err != nil {
		p.logger.Error("render step failed", "err", err)
	}
	if b.commit {
		return
	}

	line := p.prefix + b.current
	waiting := line != ""

	p.stateMu.Lock()
	p.waiting = waiting
	p.currentLine = line
	p.stateMu.Unlock()

	if waiting && p.capturer.Active() {
		p.capturer.EndWith(line)
	}
}

func (p *Pump) writeBatch(b batch) {
	w := p.writer
	w.SetCurrentStyle(b.style)

	// Re-render the partial line from where it started last time.
	// The partial may have moved the caret left of where it started.
	if p.anchor >= 0 {
		w.SetCaret(p.anchor)
	}

	for _, line := range b.lines {
		w.WriteLine(line)
		p.forward(line)
	}
	if len(b.lines) > 0 {
		p.prefix = ""
	}

	if b.commit {
		p.anchor = -1
		p.prefix += b.current
	} else {
		p.anchor = w.Caret()
	}
	w.WriteNonTerminatedLine(b.current)

	if b.after != nil {
		b.after()
	}
}

func (p *Pump) forward(line string) {
	if !p.capturer.Active() {
		p.skipPrompt = false
		return
	}
	if p.skipPrompt {
		p.skipPrompt = false
		return
	}
	p.capturer.Append(line)
}

func (p *Pump) guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}
