package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termpane/internal/config"
	"github.com/dshills/termpane/internal/console"
	"github.com/dshills/termpane/internal/console/input"
	"github.com/dshills/termpane/internal/console/luaparser"
	"github.com/dshills/termpane/internal/console/pump"
	"github.com/dshills/termpane/internal/console/writer"
	"github.com/dshills/termpane/internal/process"
	"github.com/dshills/termpane/internal/view"
)

var errQuit = errors.New("quit")

var quitKey = input.Typed('q', input.ModCtrl)

// app drives one console on a tcell screen. Everything except the event
// publisher and config watcher runs on the goroutine that calls run.
type app struct {
	cfg    *config.Config
	screen tcell.Screen
	logger *log.Logger

	queue   *pump.Queue
	manager *console.Manager
	parser  *luaparser.Parser
	con     *console.Console
	proc    *process.Process
	view    *view.View

	mode   process.Mode
	title  string
	exited bool
}

func newApp(cfg *config.Config, screen tcell.Screen, logger *log.Logger) *app {
	return &app{
		cfg:    cfg,
		screen: screen,
		logger: logger,
		queue:  pump.NewQueue(logger),
	}
}

// Publish receives console lifecycle events from the manager.
func (a *app) Publish(eventType string, data map[string]any) {
	a.logger.Debug("event", "type", eventType, "data", data)
	if eventType != console.EventTitle {
		return
	}
	title, _ := data["title"].(string)
	a.queue.Post(func() {
		a.title = title
		a.updateStatus()
	})
}

func (a *app) start(ctx context.Context) error {
	st, palette, err := a.cfg.Styles()
	if err != nil {
		return err
	}

	var parser writer.LineParser
	if a.cfg.Parser.Script != "" {
		a.parser, err = luaparser.NewFromFile(expandHome(a.cfg.Parser.Script),
			luaparser.WithFunction(a.cfg.Parser.Function),
			luaparser.WithTimeout(a.cfg.ParserTimeout()),
			luaparser.WithPalette(palette),
			luaparser.WithLogger(a.logger),
		)
		if err != nil {
			return err
		}
		parser = a.parser
	}

	a.manager = console.NewManager(console.ManagerConfig{
		Defaults: console.Options{
			Executor:      a.queue,
			Style:         st,
			Palette:       &palette,
			LineParser:    parser,
			CompletionKey: a.cfg.CompletionKey(),
		},
		GracePeriod: a.cfg.GracePeriod(),
		EventBus:    a,
		Logger:      a.logger,
	})

	a.mode = a.cfg.ProcessMode()
	w, h := a.screen.Size()
	a.con, a.proc, err = a.manager.Launch(ctx, process.Options{
		Command: a.cfg.Process.Command,
		Args:    a.cfg.Process.Args,
		Env:     a.cfg.Process.Env,
		Dir:     a.cfg.Process.Dir,
		Mode:    a.mode,
		Charset: a.cfg.Process.Charset,
		Cols:    uint16(max(w, 1)),
		Rows:    uint16(max(h-1, 1)),
	})
	if err != nil {
		return err
	}

	a.view = view.New(a.con.Document(), a.con.Overlay())
	a.updateStatus()
	return nil
}

// run processes screen events and UI work until the user quits or ctx is
// done.
func (a *app) run(ctx context.Context) error {
	events := make(chan tcell.Event, 32)
	quit := make(chan struct{})
	defer close(quit)
	go a.screen.ChannelEvents(events, quit)

	exited := a.proc.Done()
	a.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-a.queue.Ready():
			a.queue.Drain()

		case <-exited:
			exited = nil
			a.exited = true
			msg := fmt.Sprintf("\r\n[process exited with code %d, press Ctrl+Q to close]\r\n", a.proc.ExitCode())
			if _, err := a.con.WriteString(msg); err != nil {
				a.logger.Debug("exit message", "err", err)
			}
			a.updateStatus()

		case ev, ok := <-events:
			if !ok {
				return errQuit
			}
			if err := a.handleEvent(ev); err != nil {
				return err
			}
		}
		a.draw()
	}
}

func (a *app) handleEvent(ev tcell.Event) error {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.resize(ev.Size())
		a.screen.Sync()

	case *tcell.EventKey:
		return a.handleKey(ev)
	}
	return nil
}

func (a *app) handleKey(ev *tcell.EventKey) error {
	key, ok := input.FromTcell(ev)
	if !ok {
		return nil
	}

	_, h := a.screen.Size()
	rows := max(h-1, 1)
	switch {
	case key == quitKey:
		return errQuit
	case key.Is(input.KeyPageUp, input.ModShift):
		a.view.Scroll(-rows/2, rows)
		return nil
	case key.Is(input.KeyPageDown, input.ModShift):
		a.view.Scroll(rows/2, rows)
		return nil
	}

	a.view.Follow()
	if err := a.con.HandleKey(key); err != nil {
		a.logger.Debug("key not delivered", "key", key.String(), "err", err)
	}
	return nil
}

func (a *app) resize(w, h int) {
	rows := max(h-1, 1)
	if err := a.proc.Resize(uint16(max(w, 1)), uint16(rows)); err != nil && !errors.Is(err, process.ErrNotPTY) {
		a.logger.Warn("resize", "err", err)
	}
}

func (a *app) draw() {
	a.view.Draw(a.screen)
}

func (a *app) updateStatus() {
	name := a.title
	if name == "" {
		name = a.con.Name()
	}
	parts := []string{" " + name, a.mode.String()}
	if a.exited {
		parts = append(parts, fmt.Sprintf("exited %d", a.proc.ExitCode()))
	} else {
		parts = append(parts, fmt.Sprintf("pid %d", a.proc.PID()))
	}
	parts = append(parts, "Ctrl+Q quit")
	a.view.SetStatus(strings.Join(parts, " | "))
}

// watchConfig applies configuration file changes. override reapplies the
// command-line flags.
func (a *app) watchConfig(ctx context.Context, path string, override func(*config.Config) error) {
	err := config.Watch(ctx, path, func(cfg *config.Config) {
		if err := override(cfg); err != nil {
			a.logger.Warn("reloaded config rejected", "err", err)
			return
		}
		a.queue.Post(func() { a.applyConfig(cfg) })
	}, config.WithWatchLogger(a.logger))
	if err != nil {
		a.logger.Warn("config watch stopped", "err", err)
	}
}

// applyConfig updates the settings that can change while running. Process
// settings take effect on the next start.
func (a *app) applyConfig(cfg *config.Config) {
	st, palette, err := cfg.Styles()
	if err != nil {
		a.logger.Warn("reloaded colors rejected", "err", err)
		return
	}
	a.con.SetDefaults(st, palette)
	a.logger.SetLevel(cfg.LogLevel())
	a.cfg = cfg
	a.updateStatus()
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Shutdown()
	}
	a.queue.Drain()
	if a.parser != nil {
		if err := a.parser.Close(); err != nil {
			a.logger.Debug("close parser", "err", err)
		}
	}
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
