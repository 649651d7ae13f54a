package restrict

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor produces on save
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads the rule file whenever it changes, until ctx is cancelled.
// The directory is watched so files replaced by rename are picked up.
func (l *List) Watch(ctx context.Context, debounce time.Duration) error {
	if l.path == "" {
		return fmt.Errorf("no restrict file to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(l.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	l.logger.Info("Watching restrict file", logger.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			l.logger.Debug("Restrict file changed", logger.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := l.Reload(); err != nil {
				l.logger.Error("Failed to reload restrict file", logger.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("Watcher error", logger.Error(err))
		}
	}
}
