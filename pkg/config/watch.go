package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a changed file is re-read.
const DefaultDebounceInterval = 100 * time.Millisecond

// Watcher re-reads a configuration file when it changes and hands the
// result to a callback. Only the callback decides what to apply; the
// gateway applies the log level and nothing else.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for the file at path. A zero interval uses
// DefaultDebounceInterval.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	if logger == nil {
		logger = slog.Default().With("component", "config")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Editors replace files by rename, so the directory is watched rather
	// than the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &Watcher{
		path:     filepath.Clean(path),
		interval: interval,
		logger:   logger,
		watcher:  fw,
	}, nil
}

// Watch blocks until ctx is cancelled, calling onChange with the freshly
// parsed file after each debounced change. Files that fail to parse or
// validate are logged and skipped.
func (w *Watcher) Watch(ctx context.Context, onChange func(*Config)) error {
	defer w.stop()

	w.logger.Info("config watcher started",
		"path", w.path,
		"debounce_ms", w.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path || event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			w.trigger(onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) trigger(onChange func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, func() {
		cfg, err := w.reload()
		if err != nil {
			w.logger.Error("config reload failed", "path", w.path, "error", err)
			return
		}
		w.logger.Info("config reloaded", "path", w.path)
		onChange(cfg)
	})
}

func (w *Watcher) reload() (*Config, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	w.watcher.Close()
}
