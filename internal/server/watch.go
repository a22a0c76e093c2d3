package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/insightql/internal/server/notifier"
)

// watchDebounce waits for writes to an archive to settle before reading it.
const watchDebounce = 100 * time.Millisecond

func (s *Server) newWatcher() (*fsnotify.Watcher, error) {
	if err := os.MkdirAll(s.watchDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create watch directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(s.watchDir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.watchDir, err)
	}
	return watcher, nil
}

// watch adds every .zip archive written to the watch directory as a
// dataset named after the file.
func (s *Server) watch(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer func() { _ = watcher.Close() }()

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	s.logger.Info("watching for archives", "dir", s.watchDir, "kind", s.watchKind)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".zip") {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				delete(timers, path)
				mu.Unlock()
				s.addFromFile(ctx, path)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func (s *Server) addFromFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	content, err := os.ReadFile(path) //nolint:gosec // path comes from the watched directory
	if err != nil {
		s.logger.Warn("failed to read archive", "file", path, "error", err)
		return
	}

	if _, err := s.engine.AddDataset(ctx, id, content, s.watchKind); err != nil {
		s.logger.Warn("failed to add archive", "file", path, "id", id, "error", err)
		return
	}
	s.logger.Info("added dataset from archive", "file", path, "id", id)
	s.notifier.Broadcast(notifier.Event{Op: notifier.OpAdded, ID: id})
}
