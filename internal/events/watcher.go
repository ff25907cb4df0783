package events

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads the calendar overlay when the file changes.
// Editors replace files with rename+create sequences, so events are
// debounced before reloading.
type Watcher struct {
	calendar *Calendar
	logger   *slog.Logger
	path     string
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches path's directory for changes to the overlay
// file.
func NewWatcher(cal *Calendar, path string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating overlay watcher: %w", err)
	}
	// Watch the directory, not the file: renames would detach a
	// file-level watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		calendar: cal,
		logger:   logger.With(slog.String("component", "event_watcher")),
		path:     path,
		debounce: 300 * time.Millisecond,
		fsw:      fsw,
	}, nil
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("overlay watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.calendar.LoadOverlay(w.path); err != nil {
			w.logger.Error("overlay reload failed",
				slog.String("path", w.path),
				slog.String("error", err.Error()))
			return
		}
		w.logger.Info("overlay reloaded", slog.String("path", w.path))
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
