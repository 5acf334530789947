package manager

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/ganymede/pkg/config"
)

// sourceWatcher watches a single Caddyfile source for changes and triggers
// a reload after a quiet period. It watches the parent directory rather
// than the file itself so that editors which replace the file on save
// (write to temp, rename over) keep triggering events.
type sourceWatcher struct {
	fsw      *fsnotify.Watcher
	path     string
	debounce *debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newSourceWatcher(cfg *config.WatchConfig, logger *slog.Logger) (*sourceWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	interval := cfg.Debounce
	if interval <= 0 {
		interval = config.DefaultWatchDebounce
	}

	return &sourceWatcher{
		fsw:      fsw,
		path:     filepath.Clean(cfg.Path),
		debounce: newDebouncer(interval),
		logger:   logger.With("component", "watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// watch blocks processing filesystem events until stop is called. Events
// for anything other than the configured source file are ignored.
func (w *sourceWatcher) watch(onChange func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("watching source file",
		"path", w.path,
		"debounce_ms", w.debounce.interval.Milliseconds(),
	)

	for {
		select {
		case <-w.stopCh:
			w.logger.Info("source watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			w.logger.Debug("source file changed", "op", event.Op.String())

			w.debounce.trigger(func() {
				w.logger.Info("reloading source file", "path", w.path)
				if err := onChange(); err != nil {
					w.logger.Error("source reload failed", "error", err)
				}
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// stop terminates the watch loop and waits for it to drain. Safe to call
// when watch was never started.
func (w *sourceWatcher) stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	if running {
		<-w.doneCh
	}
	w.debounce.stop()
	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("closing fsnotify watcher: %w", err)
	}
	return nil
}

// debouncer coalesces rapid triggers into a single callback after a quiet
// interval.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

// trigger schedules fn after the quiet interval, replacing any pending
// callback.
func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

// stop cancels any pending callback.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
