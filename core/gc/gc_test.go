package gc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/davidahmann/sfc/core/workspace"
)

func testWorkspace(t *testing.T) workspace.Workspace {
	t.Helper()
	ws := workspace.New(t.TempDir())
	if err := ws.EnsureLayout(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	return ws
}

func makeSnapshot(t *testing.T, ws workspace.Workspace, name string) string {
	t.Helper()
	dir := filepath.Join(ws.StoreDir(), name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func link(t *testing.T, ws workspace.Workspace, alias, snapshotName string) {
	t.Helper()
	if err := os.Symlink(filepath.Join("..", "store", snapshotName), filepath.Join(ws.LinksDir(), alias)); err != nil {
		t.Fatalf("symlink %s: %v", alias, err)
	}
}

func TestCleanRemovesDanglingLinksAndOrphans(t *testing.T) {
	ws := testWorkspace(t)
	kept := makeSnapshot(t, ws, "aaaaaaaaaaaa-new")
	orphan := makeSnapshot(t, ws, "bbbbbbbbbbbb-new")
	link(t, ws, "demo-stable", "aaaaaaaaaaaa-new")
	link(t, ws, "demo-temp-20260301100000", "gone-missing-dir")

	report, err := New(ws).Clean()
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(report.RemovedLinks) != 1 || report.RemovedLinks[0] != "demo-temp-20260301100000" {
		t.Fatalf("removed links = %v", report.RemovedLinks)
	}
	if len(report.RemovedSnapshots) != 1 || report.RemovedSnapshots[0] != "bbbbbbbbbbbb-new" {
		t.Fatalf("removed snapshots = %v", report.RemovedSnapshots)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("referenced snapshot removed: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan snapshot survived")
	}
}

func TestCleanIdempotent(t *testing.T) {
	ws := testWorkspace(t)
	makeSnapshot(t, ws, "aaaaaaaaaaaa-new")
	makeSnapshot(t, ws, "bbbbbbbbbbbb-new")
	link(t, ws, "demo-stable", "aaaaaaaaaaaa-new")
	link(t, ws, "demo-temp-20260301100000", "missing")

	collector := New(ws)
	if _, err := collector.Clean(); err != nil {
		t.Fatalf("first clean: %v", err)
	}
	report, err := collector.Clean()
	if err != nil {
		t.Fatalf("second clean: %v", err)
	}
	if len(report.RemovedLinks) != 0 || len(report.RemovedSnapshots) != 0 {
		t.Fatalf("second clean removed %v / %v, want nothing", report.RemovedLinks, report.RemovedSnapshots)
	}
}

func TestCleanReferentialIntegrity(t *testing.T) {
	ws := testWorkspace(t)
	makeSnapshot(t, ws, "aaaaaaaaaaaa-new")
	makeSnapshot(t, ws, "bbbbbbbbbbbb-temp")
	makeSnapshot(t, ws, "cccccccccccc-new")
	link(t, ws, "demo-stable", "aaaaaaaaaaaa-new")
	link(t, ws, "demo-temp-20260301100000", "bbbbbbbbbbbb-temp")
	link(t, ws, "stray", "dddddddddddd-gone")

	if _, err := New(ws).Clean(); err != nil {
		t.Fatalf("clean: %v", err)
	}

	// Every surviving link resolves; every surviving snapshot is referenced.
	links, err := os.ReadDir(ws.LinksDir())
	if err != nil {
		t.Fatalf("read links: %v", err)
	}
	referenced := make(map[string]bool)
	for _, entry := range links {
		target, err := os.Readlink(filepath.Join(ws.LinksDir(), entry.Name()))
		if err != nil {
			t.Fatalf("surviving link unreadable: %v", err)
		}
		resolved := filepath.Join(ws.LinksDir(), target)
		if _, err := os.Stat(resolved); err != nil {
			t.Fatalf("surviving link %s dangles: %v", entry.Name(), err)
		}
		referenced[filepath.Base(target)] = true
	}
	snapshots, err := os.ReadDir(ws.StoreDir())
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	for _, entry := range snapshots {
		if !referenced[entry.Name()] {
			t.Fatalf("surviving snapshot %s is unreferenced", entry.Name())
		}
	}
}

func TestRemoveStoreIfOrphan(t *testing.T) {
	ws := testWorkspace(t)
	shared := makeSnapshot(t, ws, "aaaaaaaaaaaa-temp")
	link(t, ws, "demo-stable", "aaaaaaaaaaaa-temp")

	collector := New(ws)
	// Still referenced by demo-stable: must stay.
	if err := collector.RemoveStoreIfOrphan(filepath.Join("..", "store", "aaaaaaaaaaaa-temp")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(shared); err != nil {
		t.Fatalf("referenced snapshot removed: %v", err)
	}

	if err := os.Remove(filepath.Join(ws.LinksDir(), "demo-stable")); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if err := collector.RemoveStoreIfOrphan(filepath.Join("..", "store", "aaaaaaaaaaaa-temp")); err != nil {
		t.Fatalf("remove orphan: %v", err)
	}
	if _, err := os.Stat(shared); !os.IsNotExist(err) {
		t.Fatalf("orphan snapshot survived")
	}
}

func TestRemoveStoreIfOrphanMissingTarget(t *testing.T) {
	ws := testWorkspace(t)
	if err := New(ws).RemoveStoreIfOrphan(filepath.Join("..", "store", "never-existed")); err != nil {
		t.Fatalf("missing target must be tolerated: %v", err)
	}
}
