package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureLayoutCreatesSkeleton(t *testing.T) {
	ws := New(filepath.Join(t.TempDir(), "sfc-home"))
	if ws.IsInitialized() {
		t.Fatalf("fresh root must not report initialized")
	}
	if err := ws.EnsureLayout(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	if !ws.IsInitialized() {
		t.Fatalf("workspace must report initialized after EnsureLayout")
	}
	for _, path := range []string{
		ws.StoreDir(),
		ws.LinksDir(),
		ws.ContainersDir(),
		filepath.Join(ws.MetaDir(), "containers"),
		ws.ToolchainsDir(),
	} {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			t.Fatalf("missing workspace directory %s: %v", path, err)
		}
	}
	if _, err := os.Stat(filepath.Join(ws.Root, ".gitignore")); err != nil {
		t.Fatalf("gitignore not seeded: %v", err)
	}
	if _, err := os.Stat(ws.SettingsPath()); err != nil {
		t.Fatalf("settings not seeded: %v", err)
	}
}

func TestEnsureLayoutIdempotent(t *testing.T) {
	ws := New(t.TempDir())
	if err := ws.EnsureLayout(); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	marker := filepath.Join(ws.Root, ".gitignore")
	if err := os.WriteFile(marker, []byte("custom\n"), 0o600); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if err := ws.EnsureLayout(); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	content, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if string(content) != "custom\n" {
		t.Fatalf("EnsureLayout overwrote an existing .gitignore")
	}
}

func TestCurrentContainerPointer(t *testing.T) {
	ws := New(t.TempDir())
	if err := ws.EnsureLayout(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}

	current, err := ws.CurrentContainer()
	if err != nil {
		t.Fatalf("read empty pointer: %v", err)
	}
	if current != "" {
		t.Fatalf("fresh workspace has current container %q", current)
	}

	if err := ws.SetCurrentContainer("demo"); err != nil {
		t.Fatalf("set pointer: %v", err)
	}
	current, err = ws.CurrentContainer()
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if current != "demo" {
		t.Fatalf("pointer = %q, want demo", current)
	}

	if err := ws.ClearCurrentContainer(); err != nil {
		t.Fatalf("clear pointer: %v", err)
	}
	if err := ws.ClearCurrentContainer(); err != nil {
		t.Fatalf("clearing an absent pointer must be a no-op: %v", err)
	}
	current, err = ws.CurrentContainer()
	if err != nil || current != "" {
		t.Fatalf("pointer after clear = %q, %v", current, err)
	}
}

func TestListContainers(t *testing.T) {
	ws := New(t.TempDir())
	if err := ws.EnsureLayout(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	names, err := ws.ListContainers()
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("fresh workspace lists containers: %v", names)
	}

	for _, name := range []string{"zeta", "alpha"} {
		if err := os.MkdirAll(ws.ContainerDir(name), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	// Files in containers/ are ignored.
	if err := os.WriteFile(filepath.Join(ws.ContainersDir(), "stray"), nil, 0o600); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	names, err = ws.ListContainers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("list = %v, want [alpha zeta]", names)
	}
}

func TestDefaultHonorsHomeOverride(t *testing.T) {
	t.Setenv("SFC_HOME", "/tmp/custom-sfc")
	ws, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if ws.Root != "/tmp/custom-sfc" {
		t.Fatalf("root = %q, want /tmp/custom-sfc", ws.Root)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspace.toml")
	settings := Settings{DefaultShell: "/bin/zsh", StowEnabled: false, AutoCleanup: true, Notes: []string{"scratch"}}
	if err := settings.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.DefaultShell != "/bin/zsh" || loaded.StowEnabled || !loaded.AutoCleanup {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if len(loaded.Notes) != 1 || loaded.Notes[0] != "scratch" {
		t.Fatalf("notes mismatch: %v", loaded.Notes)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	loaded, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if loaded.DefaultShell == "" {
		t.Fatalf("missing file must yield defaults")
	}
}
