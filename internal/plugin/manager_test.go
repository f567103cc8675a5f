package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir string, manifest Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(dir, manifest.Name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}

	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifestBytes, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()

	pluginDir := writeManifest(t, tmpDir, Manifest{
		Name:        "speech",
		Version:     "1.0.0",
		Description: "Speaks words aloud",
		Executable:  "speech",
		Actions:     []string{ActionWord},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "speech" {
		t.Errorf("expected plugin name 'speech', got %q", plugin.Manifest.Name)
	}
	if plugin.Manifest.Description != "Speaks words aloud" {
		t.Errorf("expected description 'Speaks words aloud', got %q", plugin.Manifest.Description)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if plugin.Executable != filepath.Join(pluginDir, "speech") {
		t.Errorf("expected executable inside plugin dir, got %q", plugin.Executable)
	}
}

func TestManager_Discover_MultiplePlugins(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"speech", "keyboard"} {
		writeManifest(t, tmpDir, Manifest{Name: name, Version: "1.0.0", Executable: name, Actions: []string{ActionWord}})
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "keyboard" || plugins[1].Manifest.Name != "speech" {
		t.Errorf("expected plugins ordered by name, got %s, %s", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}
}

func TestManager_Discover_EmptyDir(t *testing.T) {
	manager := NewManager(t.TempDir())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on empty dir: %v", err)
	}

	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	badDir := filepath.Join(tmpDir, "bad-plugin")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badDir, "plugin.json"), []byte("not valid json"), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	// Missing executable.
	writeManifest(t, tmpDir, Manifest{Name: "incomplete"})

	// Directory without a manifest.
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}

	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected invalid plugins to be skipped, got %d", len(plugins))
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist")

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}

	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "keyboard", Version: "2.0.0", Executable: "keyboard", Actions: []string{ActionWord}})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("keyboard")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", plugin.Manifest.Version)
	}

	if _, err := manager.Get("nonexistent-plugin"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	pluginDir := "/path/to/plugins"
	manager := NewManager(pluginDir)

	if manager.PluginDir() != pluginDir {
		t.Errorf("expected plugin dir %q, got %q", pluginDir, manager.PluginDir())
	}
}

func TestManager_Run(t *testing.T) {
	ok := writePlugin(t, "ok", `echo '{"success":true}'
`)
	failing := writePlugin(t, "failing", `echo '{"success":false,"error":"no voice"}'
`)
	other := writePlugin(t, "other", `echo '{"success":true}'
`, "gesture")

	manager := NewManager("")
	manager.plugins = map[string]*Plugin{"ok": ok, "failing": failing, "other": other}
	executor := NewExecutor(5000)
	ctx := context.Background()
	req := &Request{Action: ActionWord, Word: "HI"}

	if _, err := manager.Run(ctx, executor, "ok", req); err != nil {
		t.Errorf("Run(ok) error = %v", err)
	}

	resp, err := manager.Run(ctx, executor, "failing", req)
	if err == nil || resp == nil || resp.Error != "no voice" {
		t.Errorf("Run(failing) = %+v, %v; want plugin error", resp, err)
	}

	if _, err := manager.Run(ctx, executor, "other", req); !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("Run(other) error = %v, want ErrUnsupportedAction", err)
	}

	if _, err := manager.Run(ctx, executor, "missing", req); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Run(missing) error = %v, want ErrPluginNotFound", err)
	}
}

func TestManifest_Supports(t *testing.T) {
	m := Manifest{Actions: []string{"word", "clear"}}

	if !m.Supports("word") || !m.Supports("clear") {
		t.Error("expected listed actions to be supported")
	}
	if m.Supports("gesture") {
		t.Error("unlisted action should not be supported")
	}
}

func TestManager_Configure(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, Manifest{Name: "keyboard", Executable: "keyboard", Actions: []string{ActionWord}})
	writeManifest(t, dir, Manifest{Name: "speech", Executable: "speech", Actions: []string{ActionWord}})

	manager := NewManager(dir)
	manager.Configure("keyboard", json.RawMessage(`{"lowercase":true}`))
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	kb, _ := manager.Get("keyboard")
	if string(kb.Config) != `{"lowercase":true}` {
		t.Errorf("keyboard config = %s, want settings set before discovery", kb.Config)
	}

	manager.Configure("speech", json.RawMessage(`{"voice":"Alex"}`))
	sp, _ := manager.Get("speech")
	if string(sp.Config) != `{"voice":"Alex"}` {
		t.Errorf("speech config = %s, want settings set after discovery", sp.Config)
	}

	// Settings survive a rescan.
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	sp, _ = manager.Get("speech")
	if string(sp.Config) != `{"voice":"Alex"}` {
		t.Errorf("speech config after rescan = %s", sp.Config)
	}
}

func TestManager_Run_Config(t *testing.T) {
	echo := writePlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)
	manager := NewManager("")
	manager.plugins = map[string]*Plugin{"echo": echo}
	manager.Configure("echo", json.RawMessage(`{"lowercase":true}`))

	tests := []struct {
		name string
		req  *Request
		want string
	}{
		{"configured settings", &Request{Action: ActionWord, Word: "HI"}, `{"lowercase":true}`},
		{"request config wins", &Request{Action: ActionWord, Word: "HI", Config: json.RawMessage(`{"lowercase":false}`)}, `{"lowercase":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := manager.Run(context.Background(), NewExecutor(5000), "echo", tt.req)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			var got Request
			if err := json.Unmarshal(resp.Data, &got); err != nil {
				t.Fatal(err)
			}
			if string(got.Config) != tt.want {
				t.Errorf("config = %s, want %s", got.Config, tt.want)
			}
		})
	}

	if tests[0].req.Config != nil {
		t.Error("Run should not modify the caller's request")
	}
}

func TestLoadPlugin_RejectsEscapingExecutable(t *testing.T) {
	dir := writeManifest(t, t.TempDir(), Manifest{Name: "sneaky", Executable: "../../bin/sh"})

	if _, err := loadPlugin(dir); err == nil {
		t.Error("loadPlugin() should reject an executable outside the plugin directory")
	}
}
