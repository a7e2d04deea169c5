package plugins

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
)

// ignoredDirs are never treated as plugin directories in multi-plugin mode
var ignoredDirs = []string{"node_modules", "public", "design-system", "scripts"}

// Registry scans the plugins root and maintains an in-memory plugin index
type Registry struct {
	root    string
	plugins map[string]*Plugin // keyed by plugin ID
	single  bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewRegistry creates a new plugin registry
func NewRegistry(root string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		root:    root,
		plugins: make(map[string]*Plugin),
		logger:  logger.With("component", "plugin_registry"),
	}
}

// Root returns the plugins root directory
func (r *Registry) Root() string {
	return r.root
}

// Scan rebuilds the index. When the root itself holds a settings file the
// registry is in single-plugin mode and the only plugin has id ".".
func (r *Registry) Scan() error {
	plugins := make(map[string]*Plugin)

	if IsPluginDir(r.root) {
		p, err := describe(CurrentDirID, r.root, filepath.Base(r.root))
		if err != nil {
			r.logger.Warn("Failed to read plugin settings", "dir", r.root, "error", err)
		} else {
			plugins[p.ID] = p
		}

		r.mu.Lock()
		r.plugins = plugins
		r.single = true
		r.mu.Unlock()
		return nil
	}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return fmt.Errorf("failed to read plugins directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || slices.Contains(ignoredDirs, name) {
			continue
		}

		dir := filepath.Join(r.root, name)
		if !IsPluginDir(dir) {
			continue
		}

		p, err := describe(name, dir, name)
		if err != nil {
			r.logger.Warn("Failed to read plugin settings", "plugin", name, "error", err)
			continue
		}
		plugins[p.ID] = p

		r.logger.Debug("Loaded plugin", "id", p.ID, "name", p.Name)
	}

	r.mu.Lock()
	r.plugins = plugins
	r.single = false
	r.mu.Unlock()

	return nil
}

func describe(id, dir, fallbackName string) (*Plugin, error) {
	settings, err := LoadSettings(dir)
	if err != nil {
		return nil, err
	}

	name := settings.Name
	if name == "" {
		name = fallbackName
	}
	return &Plugin{
		ID:        id,
		Name:      name,
		PublicURL: settings.URL,
		Dir:       dir,
	}, nil
}

// SingleMode reports whether the plugins root is itself a plugin
func (r *Registry) SingleMode() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.single
}

// DefaultID returns "." in single-plugin mode and "" otherwise
func (r *Registry) DefaultID() string {
	if IsPluginDir(r.root) {
		return CurrentDirID
	}
	return ""
}

// Dir resolves a plugin id to its directory. It does not require a prior Scan.
func (r *Registry) Dir(id string) (string, error) {
	if id == CurrentDirID {
		return r.root, nil
	}
	if id == "" || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPluginID, id)
	}
	return filepath.Join(r.root, id), nil
}

// List returns the scanned plugins sorted by id, without the "all" entry
func (r *Registry) List() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Plugin, 0, len(r.plugins))
	for _, plugin := range r.plugins {
		result = append(result, plugin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Listing returns the plugin list as served to the UI: the "all" pseudo
// plugin comes first when more than one plugin exists
func (r *Registry) Listing() []*Plugin {
	list := r.List()
	if len(list) <= 1 {
		return list
	}
	return append([]*Plugin{{ID: AllPluginsID, Name: "All Plugins"}}, list...)
}
