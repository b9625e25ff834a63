package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 300 * time.Millisecond

// Watch reloads changed template files in dir until ctx is cancelled.
// Rapid writes to the same file are coalesced.
func (s *Store) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go s.watchLoop(ctx, w)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	pending := make(map[string]time.Time)
	tick := time.NewTicker(watchDebounce / 3)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !isTemplateFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				pending[ev.Name] = time.Now()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("template watcher error", zap.Error(err))

		case now := <-tick.C:
			for path, seen := range pending {
				if now.Sub(seen) < watchDebounce {
					continue
				}
				delete(pending, path)
				if _, err := os.Stat(path); err != nil {
					continue
				}
				if err := s.loadFile(path); err != nil {
					s.logger.Warn("template reload failed", zap.String("file", filepath.Base(path)), zap.Error(err))
					continue
				}
				s.logger.Info("template reloaded", zap.String("archetype", stem(path)))
			}
		}
	}
}
