package indexer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchManifest refreshes the store whenever manifest.json in the index
// directory is replaced, which is how commits from another process become
// visible. The directory must exist; callers fall back to StartRefreshLoop
// when watching cannot start.
func (s *Store) WatchManifest(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}
	s.logger.Info("watching for commits", "dir", s.dir)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != manifestFile || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
					continue
				}
				if err := s.Refresh(); err != nil {
					s.logger.Error("refresh after commit failed", "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error("index watcher error", "error", err)
			}
		}
	}()
	return nil
}
