package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dshills/termpane/internal/console/ansi"
	"github.com/dshills/termpane/internal/console/completion"
	"github.com/dshills/termpane/internal/console/document"
	"github.com/dshills/termpane/internal/console/input"
	"github.com/dshills/termpane/internal/console/pump"
	"github.com/dshills/termpane/internal/console/style"
	"github.com/dshills/termpane/internal/console/writer"
	"github.com/dshills/termpane/internal/logging"
)

// Options configures a Console.
type Options struct {
	// Name is a human-readable name (default "console").
	Name string

	// Executor runs UI work. When nil the console creates its own
	// pump.Queue, available from Queue.
	Executor pump.Executor

	// Input receives encoded keystrokes, normally the process's stdin. It
	// can also be set later with SetInput.
	Input io.Writer

	// Style is the default text style; Palette maps the eight ANSI colors.
	Style   style.Style
	Palette *style.Palette

	// LineParser highlights complete output lines.
	LineParser writer.LineParser

	// Encoder encodes keys for the process (default input.VTEncoder).
	Encoder input.Encoder

	// CompletionKey asks the shell for completions (default Tab).
	CompletionKey input.Key

	// OnTitle is called with window titles set by the program.
	OnTitle func(title string)

	// OnChange is called on the UI goroutine after the completion popup
	// changes.
	OnChange func()

	Logger *log.Logger
}

// Console is one console pane.
type Console struct {
	id   string
	name string

	doc         *document.Document
	queue       *pump.Queue
	writer      *writer.Writer
	pump        *pump.Pump
	styles      *ansi.State
	interpreter *ansi.Interpreter
	overlay     *completion.Overlay
	keys        *input.Dispatcher
	input       *inputSink
	logger      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	reader atomic.Bool

	mu      sync.RWMutex
	title   string
	onTitle func(string)
	onClose []func()
	closed  atomic.Bool
}

// New creates a console. It renders nothing until output is written.
func New(opts Options) *Console {
	if opts.Name == "" {
		opts.Name = "console"
	}
	if opts.Style == (style.Style{}) {
		opts.Style = style.Default()
	}
	palette := style.DefaultPalette()
	if opts.Palette != nil {
		palette = *opts.Palette
	}
	if opts.CompletionKey == input.KeyNone {
		opts.CompletionKey = input.KeyTab
	}

	logger := logging.WithComponent(opts.Logger, "console")
	ctx, cancel := context.WithCancel(context.Background())

	c := &Console{
		id:      uuid.NewString(),
		name:    opts.Name,
		doc:     document.New(),
		input:   &inputSink{w: opts.Input},
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		onTitle: opts.OnTitle,
	}

	exec := opts.Executor
	if exec == nil {
		c.queue = pump.NewQueue(logger)
		exec = c.queue
	}

	var wopts []writer.Option
	if opts.LineParser != nil {
		wopts = append(wopts, writer.WithLineParser(opts.LineParser))
	}
	c.writer = writer.New(c.doc, wopts...)
	c.writer.SetCurrentStyle(opts.Style)

	c.styles = ansi.NewState(opts.Style, palette)
	c.pump = pump.New(exec, c.writer,
		pump.WithStyleSource(c.styles),
		pump.WithLogger(logger),
	)
	c.interpreter = ansi.New(c.pump, c.styles,
		ansi.WithTitleFunc(c.setTitle),
		ansi.WithLogger(logger),
	)

	overlayOpts := []completion.Option{
		completion.WithSink(c.input),
		completion.WithLogger(logger),
	}
	if opts.OnChange != nil {
		overlayOpts = append(overlayOpts, completion.WithNotify(opts.OnChange))
	}
	c.overlay = completion.New(c.doc, overlayOpts...)

	keyOpts := []input.Option{
		input.WithPopup(c.overlay),
		input.WithCompletion(opts.CompletionKey, c.Complete),
		input.WithLogger(logger),
	}
	if opts.Encoder != nil {
		keyOpts = append(keyOpts, input.WithEncoder(opts.Encoder))
	}
	c.keys = input.NewDispatcher(c.input, keyOpts...)

	return c
}

// ID returns the console's unique identifier.
func (c *Console) ID() string {
	return c.id
}

// Name returns the console's display name.
func (c *Console) Name() string {
	return c.name
}

// Title returns the last window title set by the program.
func (c *Console) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.title
}

func (c *Console) setTitle(title string) {
	c.mu.Lock()
	c.title = title
	fn := c.onTitle
	c.mu.Unlock()
	if fn != nil {
		fn(title)
	}
}

// Document returns the document output is rendered into. Read it on the UI
// goroutine only.
func (c *Console) Document() *document.Document {
	return c.doc
}

// Queue returns the console's own UI queue, or nil when an executor was
// supplied in Options.
func (c *Console) Queue() *pump.Queue {
	return c.queue
}

// Pump returns the output pump.
func (c *Console) Pump() *pump.Pump {
	return c.pump
}

// Overlay returns the completion popup.
func (c *Console) Overlay() *completion.Overlay {
	return c.overlay
}

// Styles returns the ANSI style state.
func (c *Console) Styles() *ansi.State {
	return c.styles
}

// SetDefaults changes the default style and palette for later output.
func (c *Console) SetDefaults(st style.Style, palette style.Palette) {
	c.styles.SetDefaults(st, palette)
}

// Write feeds program output to the console. It is safe to call from any
// goroutine.
func (c *Console) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	n, err := c.interpreter.Write(p)
	if err != nil {
		if errors.Is(err, pump.ErrClosed) {
			return n, ErrClosed
		}
		return n, err
	}
	c.pump.Flush(nil)
	return n, nil
}

// WriteString is Write for strings.
func (c *Console) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// Attach copies r into the console on a new goroutine until r is exhausted
// or the console is closed. Only one reader may be attached.
func (c *Console) Attach(r io.Reader) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.reader.Swap(true) {
		return errors.New("console: reader already attached")
	}
	go c.readLoop(r)
	return nil
}

// Done is closed when the attached reader finishes.
func (c *Console) Done() <-chan struct{} {
	return c.done
}

func (c *Console) readLoop(r io.Reader) {
	defer close(c.done)

	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if c.ctx.Err() != nil {
			return
		}
		if n > 0 {
			if _, werr := c.Write(buf[:n]); werr != nil {
				c.logger.Debug("reader stopped", "err", werr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("read output", "err", err)
			}
			return
		}
	}
}

// SetInput replaces the sink keystrokes are written to.
func (c *Console) SetInput(w io.Writer) {
	c.input.set(w)
}

// HandleKey dispatches a key event. Call it on the UI goroutine.
func (c *Console) HandleKey(ev input.Event) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.keys.Dispatch(ev)
}

// AddKeyListener registers fn to see key events before the process does.
func (c *Console) AddKeyListener(fn input.Listener) (detach func()) {
	return c.keys.AddListener(fn)
}

// Complete starts capturing output for a completion popup. The dispatcher
// calls it when the completion key is pressed; call it on the UI goroutine.
func (c *Console) Complete() {
	c.pump.BeginCapture(c.overlay.PostAction)
}

// Clear empties the document.
func (c *Console) Clear() {
	c.pump.Post(func(w *writer.Writer) {
		w.Document().Clear()
	})
}

// OnClose registers fn to run once the console is closed.
func (c *Console) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = append(c.onClose, fn)
}

// Closed reports whether Close has been called.
func (c *Console) Closed() bool {
	return c.closed.Load()
}

// Close stops the attached reader, detaches key listeners and closes the
// input sink. UI work already posted still runs.
func (c *Console) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()
	c.keys.Close()
	c.pump.Close()
	c.pump.Post(func(*writer.Writer) {
		c.overlay.Cancel()
		c.pump.Capturer().Discard()
	})

	err := c.input.close()

	c.mu.Lock()
	callbacks := c.onClose
	c.onClose = nil
	c.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}

	if err != nil {
		return fmt.Errorf("close console input: %w", err)
	}
	return nil
}

// inputSink forwards keystrokes to a replaceable writer.
type inputSink struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

func (s *inputSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.w == nil {
		return 0, ErrNoInput
	}
	return s.w.Write(p)
}

func (s *inputSink) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *inputSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
