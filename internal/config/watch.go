package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dshills/termpane/internal/logging"
)

// DefaultDebounce is how long Watch waits after the last change before
// reloading.
const DefaultDebounce = 100 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	logger   *log.Logger
	onError  func(error)
}

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for reload failures.
func WithWatchLogger(l *log.Logger) WatchOption {
	return func(o *watchOptions) {
		o.logger = l
	}
}

// WithErrorHandler is called when a changed file fails to load. The
// previous configuration stays in effect.
func WithErrorHandler(fn func(error)) WatchOption {
	return func(o *watchOptions) {
		o.onError = fn
	}
}

// Watch calls fn with the reloaded configuration each time the file at path
// changes, until ctx is done. The containing directory is watched so files
// replaced by rename are picked up. Watch blocks; run it on its own
// goroutine.
func Watch(ctx context.Context, path string, fn func(*Config), opts ...WatchOption) error {
	o := watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.WithComponent(o.logger, "config")

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	// pending fires once the file has been quiet for the debounce period.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !relevant(ev.Op) {
				continue
			}
			logger.Debug("config changed", "path", abs, "op", ev.Op.String())
			pending = time.After(o.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher", "err", err)

		case <-pending:
			pending = nil
			cfg, err := Load(abs)
			if err != nil {
				logger.Warn("reload config", "path", abs, "err", err)
				if o.onError != nil {
					o.onError(err)
				}
				continue
			}
			logger.Info("config reloaded", "path", abs)
			fn(cfg)
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename) || op.Has(fsnotify.Remove)
}
