package console

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/termpane/internal/console/input"
	"github.com/dshills/termpane/internal/logging"
	"github.com/dshills/termpane/internal/process"
)

// Event types published by a Manager.
const (
	EventCreated = "console.created"
	EventClosed  = "console.closed"
	EventTitle   = "console.title"
	EventExited  = "console.process.exited"
)

// EventPublisher publishes console events.
type EventPublisher interface {
	Publish(eventType string, data map[string]any)
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Defaults is applied to every console. Name, Input and OnTitle are
	// per console and ignored here.
	Defaults Options

	// GracePeriod is how long a launched process may take to exit after
	// its console closes (default 2s).
	GracePeriod time.Duration

	// EventBus receives lifecycle events.
	EventBus EventPublisher

	Logger *log.Logger
}

// Manager tracks consoles and the processes attached to them.
type Manager struct {
	mu       sync.RWMutex
	consoles map[string]*Console

	defaults Options
	grace    time.Duration
	eventBus EventPublisher
	logger   *log.Logger

	closed atomic.Bool
}

// NewManager creates a console manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 2 * time.Second
	}
	return &Manager{
		consoles: make(map[string]*Console),
		defaults: cfg.Defaults,
		grace:    cfg.GracePeriod,
		eventBus: cfg.EventBus,
		logger:   logging.WithComponent(cfg.Logger, "console-manager"),
	}
}

// Create creates a console that is not attached to any process.
func (m *Manager) Create(name string) (*Console, error) {
	return m.create(name, m.defaults)
}

func (m *Manager) create(name string, opts Options) (*Console, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	opts.Name = name
	opts.Input = nil
	if opts.Logger == nil {
		opts.Logger = m.logger
	}

	var c *Console
	opts.OnTitle = func(title string) {
		m.publishEvent(EventTitle, map[string]any{
			"id":    c.ID(),
			"title": title,
		})
	}
	c = New(opts)

	m.mu.Lock()
	m.consoles[c.ID()] = c
	m.mu.Unlock()

	c.OnClose(func() {
		m.mu.Lock()
		delete(m.consoles, c.ID())
		m.mu.Unlock()

		m.publishEvent(EventClosed, map[string]any{
			"id":   c.ID(),
			"name": c.Name(),
		})
	})

	m.publishEvent(EventCreated, map[string]any{
		"id":   c.ID(),
		"name": c.Name(),
	})
	return c, nil
}

// Launch creates a console and starts a process writing into it. Keystrokes
// go to the process; closing the console terminates it.
func (m *Manager) Launch(ctx context.Context, popts process.Options) (*Console, *process.Process, error) {
	name := popts.Name
	if name == "" {
		name = popts.Command
	}
	opts := m.defaults
	if opts.Encoder == nil && popts.Mode == process.ModePipe {
		opts.Encoder = input.VTEncoder{LineFeed: true}
	}
	c, err := m.create(name, opts)
	if err != nil {
		return nil, nil, err
	}

	if popts.Logger == nil {
		popts.Logger = m.logger
	}
	proc, err := process.Start(ctx, c, popts)
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("launch %s: %w", name, err)
	}
	c.SetInput(proc.Stdin())

	c.OnClose(func() {
		if err := proc.Close(m.grace); err != nil {
			m.logger.Warn("close process", "id", c.ID(), "err", err)
		}
	})

	go func() {
		<-proc.Done()
		m.publishEvent(EventExited, map[string]any{
			"id":       c.ID(),
			"pid":      proc.PID(),
			"exitCode": proc.ExitCode(),
		})
	}()

	return c, proc, nil
}

// Get returns a console by ID.
func (m *Manager) Get(id string) (*Console, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.consoles[id]
	return c, ok
}

// List returns all open consoles.
func (m *Manager) List() []*Console {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Console, 0, len(m.consoles))
	for _, c := range m.consoles {
		result = append(result, c)
	}
	return result
}

// Count returns the number of open consoles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.consoles)
}

// Close closes a console by ID.
func (m *Manager) Close(id string) error {
	c, ok := m.Get(id)
	if !ok {
		return ErrNotFound
	}
	return c.Close()
}

// Shutdown closes every console and rejects new ones.
func (m *Manager) Shutdown() {
	if m.closed.Swap(true) {
		return
	}
	for _, c := range m.List() {
		if err := c.Close(); err != nil {
			m.logger.Warn("close console", "id", c.ID(), "err", err)
		}
	}
}

func (m *Manager) publishEvent(eventType string, data map[string]any) {
	if m.eventBus == nil {
		return
	}
	if data == nil {
		data = make(map[string]any)
	}
	data["timestamp"] = time.Now().UnixMilli()
	m.eventBus.Publish(eventType, data)
}
