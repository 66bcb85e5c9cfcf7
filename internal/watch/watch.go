// Package watch re-runs a function when any of a set of files changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long Run waits for further events before acting on a
// change. Editors often write a file in several steps.
const DefaultDelay = 100 * time.Millisecond

// Watcher calls OnChange after any of Files is written or re-created.
type Watcher struct {
	Files    []string
	OnChange func(ctx context.Context) error

	// Delay overrides DefaultDelay.
	Delay  time.Duration
	Logger *slog.Logger

	ready func() // called once the directories are watched
}

// Run watches until ctx is done. OnChange runs on the calling goroutine, so
// runs never overlap. An OnChange error is logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := w.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories rather than files so atomic saves (write to a temp
	// file, rename over the original) keep being seen.
	targets := make(map[string]bool, len(w.Files))
	dirs := make(map[string]bool)
	for _, f := range w.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("watch %s: %w", f, err)
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		dirs[dir] = true
		logger.Info("watching for changes", slog.String("path", abs))
	}

	if w.ready != nil {
		w.ready()
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("file changed",
				slog.String("event", event.Op.String()),
				slog.String("file", event.Name),
			)
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.OnChange(ctx); err != nil {
				logger.Error("regeneration failed", slog.Any("error", err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("file watcher error", slog.Any("error", err))

		case <-ctx.Done():
			return nil
		}
	}
}
