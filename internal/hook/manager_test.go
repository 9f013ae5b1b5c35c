package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()

	hookDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return hookDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	hookDir := writeManifest(t, tmpDir, Manifest{
		Name:        "notify",
		Version:     "1.0.0",
		Description: "Desktop notification",
		Executable:  "notify.sh",
		Events:      []string{EventAlertStart},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	hooks := manager.List()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	h := hooks[0]
	if h.Manifest.Name != "notify" {
		t.Errorf("expected hook name 'notify', got %q", h.Manifest.Name)
	}
	if h.Path != hookDir {
		t.Errorf("expected path %q, got %q", hookDir, h.Path)
	}
	if h.Executable != filepath.Join(hookDir, "notify.sh") {
		t.Errorf("unexpected executable %q", h.Executable)
	}
}

func TestManager_Discover_MultipleSorted(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"zeta", "alpha"} {
		writeManifest(t, tmpDir, Manifest{Name: name, Executable: name})
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	hooks := manager.List()
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(hooks))
	}
	if hooks[0].Manifest.Name != "alpha" || hooks[1].Manifest.Name != "zeta" {
		t.Errorf("expected hooks sorted by name, got %q, %q", hooks[0].Manifest.Name, hooks[1].Manifest.Name)
	}
}

func TestManager_Discover_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	badDir := filepath.Join(tmpDir, "bad")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badDir, ManifestFile), []byte("not valid json"), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Fatalf("expected 0 hooks, got %d", n)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist")
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Fatalf("expected 0 hooks, got %d", n)
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "lights", Version: "2.0.0", Executable: "lights"})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	h, err := manager.Get("lights")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if h.Manifest.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", h.Manifest.Version)
	}

	if _, err := manager.Get("missing"); err != ErrHookNotFound {
		t.Errorf("expected ErrHookNotFound, got %v", err)
	}
}

func TestManager_For(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "start-only", Executable: "x", Events: []string{EventAlertStart}})
	writeManifest(t, tmpDir, Manifest{Name: "stop-only", Executable: "x", Events: []string{EventAlertStop}})
	writeManifest(t, tmpDir, Manifest{Name: "everything", Executable: "x"})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	start := manager.For(EventAlertStart)
	if len(start) != 2 {
		t.Fatalf("expected 2 alert_start hooks, got %d", len(start))
	}
	if start[0].Manifest.Name != "everything" || start[1].Manifest.Name != "start-only" {
		t.Errorf("unexpected alert_start hooks: %q, %q", start[0].Manifest.Name, start[1].Manifest.Name)
	}

	stop := manager.For(EventAlertStop)
	if len(stop) != 2 {
		t.Fatalf("expected 2 alert_stop hooks, got %d", len(stop))
	}
}

func TestManager_Dir(t *testing.T) {
	manager := NewManager("/path/to/hooks")
	if manager.Dir() != "/path/to/hooks" {
		t.Errorf("expected dir %q, got %q", "/path/to/hooks", manager.Dir())
	}
}
