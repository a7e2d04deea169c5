package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher rescans the registry when plugin directories change
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	onScan   func()
}

// NewWatcher creates a watcher for the registry root
func NewWatcher(registry *Registry) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		registry: registry,
		watcher:  fsWatcher,
	}, nil
}

// OnScan registers a callback run after every rescan
func (w *Watcher) OnScan(fn func()) {
	w.onScan = fn
}

// Start watches the root and its first-level directories
func (w *Watcher) Start(ctx context.Context) error {
	root := w.registry.Root()
	if err := w.watcher.Add(root); err != nil {
		return err
	}

	entries, err := os.ReadDir(root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
				_ = w.watcher.Add(filepath.Join(root, entry.Name()))
			}
		}
	}

	w.registry.logger.Info("Watching plugins directory", "path", root)

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.registry.logger.Error("Plugin watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// new plugin directories need their own watch to pick up settings edits
	if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == w.registry.Root() {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(event.Name)
		}
	}

	if !w.relevant(event.Name) {
		return
	}

	if err := w.registry.Scan(); err != nil {
		w.registry.logger.Error("Failed to rescan plugins", "error", err)
		return
	}
	w.registry.logger.Info("Plugins rescanned", "trigger", event.Name, "count", len(w.registry.List()))

	if w.onScan != nil {
		w.onScan()
	}
}

func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(name)
	for _, f := range SettingsFiles {
		if base == f {
			return true
		}
	}
	return filepath.Dir(name) == w.registry.Root()
}
