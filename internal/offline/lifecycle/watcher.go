package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 500 * time.Millisecond

// ReloadFunc applies a freshly loaded manifest.
type ReloadFunc func(ctx context.Context, manifest []string) error

// Watcher reloads the manifest file when it changes on disk.
type Watcher struct {
	path   string
	reload ReloadFunc

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer

	log *slog.Logger
}

// NewWatcher creates a watcher for the manifest at path.
func NewWatcher(path string, reload ReloadFunc) *Watcher {
	return &Watcher{
		path:   filepath.Clean(path),
		reload: reload,
		log:    slog.Default().With("component", "manifest-watcher"),
	}
}

// Start watches the manifest's directory so atomic replaces are seen too.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	go w.processEvents(ctx, watcher)
	w.log.Info("Watching manifest", "path", w.path)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("Manifest changed", "op", event.Op.String())

			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(reloadDelay, func() { w.trigger(ctx) })
			w.mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	manifest, err := LoadManifest(w.path)
	if err != nil {
		w.log.Error("Failed to reload manifest", "error", err)
		return
	}
	if err := w.reload(ctx, manifest); err != nil {
		w.log.Error("Failed to apply manifest", "error", err)
		return
	}
	w.log.Info("Manifest reloaded", "files", len(manifest))
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}
