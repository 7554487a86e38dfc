// Package watch re-runs reconciliation when the storage directory changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// DefaultDebounce coalesces bursts of filesystem events into a single
// reconciliation pass. Editors commonly emit several events per save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher observes one storage directory and triggers reconciliation
// after relevant changes settle.
type Watcher struct {
	dir       string
	debounce  time.Duration
	reconcile driving.ReconcileService
}

// New creates a watcher for the given storage directory.
// A non-positive debounce selects DefaultDebounce.
func New(dir string, debounce time.Duration, reconcile driving.ReconcileService) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:       dir,
		debounce:  debounce,
		reconcile: reconcile,
	}
}

// Run watches until the context is cancelled. Reconciliation failures
// are logged and watching continues: a transient embedder outage must
// not kill the watch loop.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	logger.Info("watch: observing %s (debounce %s)", w.dir, w.debounce)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("watch: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if _, err := w.reconcile.Reconcile(ctx); err != nil {
				logger.Warn("watch: reconciliation failed: %v", err)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// relevant reports whether an event should schedule a reconciliation.
// Only markdown files matter; hidden files and Chmod-only events are
// noise.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) &&
		!event.Op.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".md")
}
