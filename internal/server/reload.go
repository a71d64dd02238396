package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/logging"
)

// Reloadable is anything that can rebuild its state from disk.
type Reloadable interface {
	Reload(ctx context.Context) error
}

// Reloader watches catalog, policy and denylist files and triggers a reload.
// It watches the parent directories so files replaced by rename (atomic
// saves) stay watched.
type Reloader struct {
	watcher  *fsnotify.Watcher
	target   Reloadable
	paths    []string
	files    map[string]bool
	logger   *zap.Logger
	debounce time.Duration
}

// NewReloader creates a file watcher for the given paths. Empty paths and
// paths whose directory does not exist are skipped. A file that does not
// exist yet is picked up when it is created.
func NewReloader(target Reloadable, paths []string, logger *zap.Logger) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	var watched []string
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		dir := filepath.Dir(p)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
			}
			dirs[dir] = true
		}
		if !files[p] {
			files[p] = true
			watched = append(watched, p)
		}
	}

	return &Reloader{
		watcher:  watcher,
		target:   target,
		paths:    watched,
		files:    files,
		logger:   logging.OrNop(logger),
		debounce: 500 * time.Millisecond,
	}, nil
}

// Paths returns the files actually being watched.
func (r *Reloader) Paths() []string {
	return r.paths
}

// relevant reports whether event changes one of the watched files.
func (r *Reloader) relevant(event fsnotify.Event) bool {
	if !r.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Wait for writes to settle before reloading.
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if r.relevant(event) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(r.debounce, func() {
					if err := r.target.Reload(ctx); err != nil {
						r.logger.Error("hot-reload failed", zap.String("file", event.Name), zap.Error(err))
					} else {
						r.logger.Info("hot-reload complete", zap.String("file", event.Name))
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}
