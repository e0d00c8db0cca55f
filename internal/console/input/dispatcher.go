package input

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dshills/termpane/internal/logging"
)

// Popup is the completion overlay as seen by the dispatcher.
type Popup interface {
	Visible() bool
	Up()
	Down()
	Confirm() error
	Cancel()
}

// Listener observes events before they are encoded. Returning true consumes
// the event.
type Listener func(ev Event) bool

type listenerEntry struct {
	fn Listener
}

// Dispatcher routes key events to listeners, the completion popup and the
// process input.
type Dispatcher struct {
	mu        sync.Mutex
	sink      io.Writer
	encoder   Encoder
	popup     Popup
	trigger   func()
	complete  Key
	listeners []*listenerEntry
	closed    bool
	logger    *log.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEncoder replaces the default VTEncoder.
func WithEncoder(e Encoder) Option {
	return func(d *Dispatcher) {
		d.encoder = e
	}
}

// WithPopup routes navigation keys to p while it is visible.
func WithPopup(p Popup) Option {
	return func(d *Dispatcher) {
		d.popup = p
	}
}

// WithCompletion runs trigger when k is pressed without modifiers, before the
// key itself is sent. The default key is Tab.
func WithCompletion(k Key, trigger func()) Option {
	return func(d *Dispatcher) {
		d.complete = k
		d.trigger = trigger
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a dispatcher writing encoded keys to sink.
func NewDispatcher(sink io.Writer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:     sink,
		encoder:  VTEncoder{},
		complete: KeyTab,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrDiscard(d.logger)
	return d
}

// AddListener registers fn and returns a function that removes it.
func (d *Dispatcher) AddListener(fn Listener) (detach func()) {
	entry := &listenerEntry{fn: fn}
	d.mu.Lock()
	d.listeners = append(d.listeners, entry)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, e := range d.listeners {
			if e == entry {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

// Listeners returns the number of registered listeners.
func (d *Dispatcher) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// Dispatch handles one event on the UI goroutine.
func (d *Dispatcher) Dispatch(ev Event) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	listeners := make([]*listenerEntry, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	for _, l := range listeners {
		if l.fn(ev) {
			return nil
		}
	}

	if d.popup != nil && d.popup.Visible() {
		handled, err := d.routePopup(ev)
		if handled || err != nil {
			return err
		}
	}

	if ev.Modifiers.Has(ModAction) {
		return nil
	}

	if d.trigger != nil && ev.Is(d.complete, ModNone) {
		d.trigger()
	}

	seq, ok := d.encoder.Encode(ev)
	if !ok {
		d.logger.Debug("key not encoded", "event", ev.String())
		return nil
	}
	if _, err := d.sink.Write(seq); err != nil {
		return fmt.Errorf("send key %s: %w", ev, err)
	}
	return nil
}

// routePopup applies navigation keys to the visible popup. Any other key
// dismisses it and continues to the process.
func (d *Dispatcher) routePopup(ev Event) (bool, error) {
	switch {
	case ev.Is(KeyUp, ModNone):
		d.popup.Up()
	case ev.Is(KeyDown, ModNone):
		d.popup.Down()
	case ev.Is(KeyEnter, ModNone), ev.Is(KeyTab, ModNone):
		if err := d.popup.Confirm(); err != nil {
			return true, fmt.Errorf("confirm completion: %w", err)
		}
	case ev.Is(KeyEscape, ModNone):
		d.popup.Cancel()
	default:
		d.popup.Cancel()
		return false, nil
	}
	return true, nil
}

// Close detaches all listeners. Later events are rejected.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.listeners = nil
}
