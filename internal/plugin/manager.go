package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ManifestFile is the file that marks a directory as a plugin.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrUnsupportedAction is returned when a plugin does not list the requested action.
	ErrUnsupportedAction = errors.New("plugin does not support action")
)

// Manager discovers plugins in a directory and runs them by name.
type Manager struct {
	dir string

	mu       sync.RWMutex
	plugins  map[string]*Plugin
	settings map[string]json.RawMessage
}

// NewManager creates a Manager for plugins under dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:      dir,
		plugins:  make(map[string]*Plugin),
		settings: make(map[string]json.RawMessage),
	}
}

// Configure sets the settings sent as Request.Config to the named plugin.
// It applies to plugins discovered before and after the call.
func (m *Manager) Configure(name string, settings json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[name] = settings
	if p, ok := m.plugins[name]; ok {
		p.Config = settings
	}
}

// Discover rescans the plugin directory. Each subdirectory holding a valid
// manifest is one plugin; broken ones are logged and skipped. A missing
// directory simply yields no plugins.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("scan plugins: %w", err)
	}

	found := make(map[string]*Plugin)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(m.dir, entry.Name()))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			slog.Warn("skipping plugin", "dir", entry.Name(), "err", err)
			continue
		}
		if _, dup := found[p.Manifest.Name]; dup {
			slog.Warn("skipping duplicate plugin", "name", p.Manifest.Name, "dir", entry.Name())
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, p := range found {
		p.Config = m.settings[name]
	}
	m.plugins = found
	return nil
}

// loadPlugin reads the manifest in dir.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}
	if strings.ContainsRune(manifest.Executable, os.PathSeparator) {
		return nil, fmt.Errorf("executable %q must be a file in the plugin directory", manifest.Executable)
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns a plugin by name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// List returns all discovered plugins ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	slices.SortFunc(plugins, func(a, b *Plugin) int {
		return strings.Compare(a.Manifest.Name, b.Manifest.Name)
	})
	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.dir
}

// Run executes req with the named plugin. The plugin's configured settings
// fill Request.Config when the caller left it empty. A plugin that reports
// failure is returned as an error.
func (m *Manager) Run(ctx context.Context, executor *Executor, name string, req *Request) (*Response, error) {
	p, err := m.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !p.Manifest.Supports(req.Action) {
		return nil, fmt.Errorf("%s %q: %w", name, req.Action, ErrUnsupportedAction)
	}

	if len(req.Config) == 0 && len(p.Config) > 0 {
		withConfig := *req
		withConfig.Config = p.Config
		req = &withConfig
	}

	resp, err := executor.Execute(ctx, p, req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s: %s", name, resp.Error)
	}
	return resp, nil
}
