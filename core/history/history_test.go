package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/davidahmann/sfc/core/container"
)

func testConfig(name string) container.Config {
	config := container.NewConfig(name)
	config.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	config.Shell = "/bin/bash"
	return config
}

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := Load(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ledger
}

func TestAddEntryChainsPerContainer(t *testing.T) {
	ledger := testLedger(t)
	demo := testConfig("demo")

	first, err := ledger.AddEntry(demo, OpCreate, "Created container demo")
	if err != nil {
		t.Fatalf("first entry: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("hash length = %d", len(first))
	}

	demo.AddPackage(container.PackageSpec{Name: "curl"})
	second, err := ledger.AddEntry(demo, OpAddPackage, "Added curl")
	if err != nil {
		t.Fatalf("second entry: %v", err)
	}

	other := testConfig("other")
	third, err := ledger.AddEntry(other, OpCreate, "Created container other")
	if err != nil {
		t.Fatalf("third entry: %v", err)
	}

	entries := ledger.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].ParentHash != "" {
		t.Fatalf("first entry has parent %q", entries[0].ParentHash)
	}
	if entries[1].ParentHash != first {
		t.Fatalf("second entry parent = %q, want %q", entries[1].ParentHash, first)
	}
	// Chains are per container: other's first entry has no parent.
	if entries[2].ParentHash != "" {
		t.Fatalf("other container chained onto demo: parent %q", entries[2].ParentHash)
	}
	if second == third {
		t.Fatalf("distinct containers produced the same hash")
	}
}

func TestLedgerPersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	ledger, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	demo := testConfig("demo")
	hash, err := ledger.AddEntry(demo, OpCreate, "Created container demo")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	entries := reloaded.Entries()
	if len(entries) != 1 || entries[0].Hash != hash || entries[0].Operation != OpCreate {
		t.Fatalf("reloaded entries = %+v", entries)
	}
}

func TestLoadRejectsMalformedLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	malformed := `[{"hash": "short", "container_name": "demo", "timestamp": "2026-03-01T10:00:00Z", "message": "x", "operation": "create"}]`
	if err := os.WriteFile(path, []byte(malformed), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed ledger accepted")
	}
}

func TestFindByHashFirstMatch(t *testing.T) {
	ledger := testLedger(t)
	demo := testConfig("demo")
	hash, err := ledger.AddEntry(demo, OpCreate, "Created container demo")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	entry, ok := ledger.FindByHash(hash[:8])
	if !ok || entry.Hash != hash {
		t.Fatalf("find = %+v, %v", entry, ok)
	}
	if _, ok := ledger.FindByHash("ffffffff"); ok {
		t.Fatalf("absent prefix matched")
	}
}

func TestLogNewestFirstCapped(t *testing.T) {
	ledger := testLedger(t)
	demo := testConfig("demo")
	for i := 0; i < 25; i++ {
		demo.AddPackage(container.PackageSpec{Name: "pkg", Version: strings.Repeat("x", i+1)})
		if _, err := ledger.AddEntry(demo, OpModifyPackage, "Bumped pkg"); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	lines := ledger.Log("demo")
	if len(lines) != 20 {
		t.Fatalf("log lines = %d, want 20", len(lines))
	}
	entries := ledger.Entries()
	newest := entries[len(entries)-1]
	if !strings.HasPrefix(lines[0], newest.Hash[:8]) {
		t.Fatalf("log not newest-first: %q", lines[0])
	}
	if !strings.Contains(lines[0], "MODIFY") || !strings.Contains(lines[0], "[demo]") {
		t.Fatalf("log row format: %q", lines[0])
	}
}

func TestLogEmpty(t *testing.T) {
	ledger := testLedger(t)
	lines := ledger.Log("")
	if len(lines) != 1 || lines[0] != "No history entries found" {
		t.Fatalf("empty log = %v", lines)
	}
}

func TestGraphRendersChain(t *testing.T) {
	ledger := testLedger(t)
	demo := testConfig("demo")
	if _, err := ledger.AddEntry(demo, OpCreate, "Created container demo"); err != nil {
		t.Fatalf("add: %v", err)
	}
	demo.AddPackage(container.PackageSpec{Name: "curl"})
	if _, err := ledger.AddEntry(demo, OpAddPackage, "Added curl"); err != nil {
		t.Fatalf("add: %v", err)
	}
	demo.AddPackage(container.PackageSpec{Name: "jq"})
	if _, err := ledger.AddEntry(demo, OpAddPackage, "Added jq"); err != nil {
		t.Fatalf("add: %v", err)
	}

	lines := ledger.Graph("demo")
	if len(lines) != 3 {
		t.Fatalf("graph lines = %v", lines)
	}
	if !strings.HasPrefix(lines[0], "└── ") {
		t.Fatalf("root line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "    └── ") {
		t.Fatalf("child line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "        └── ") {
		t.Fatalf("grandchild line = %q", lines[2])
	}
}

func TestGraphRepeatedStateTerminates(t *testing.T) {
	// A promote that changes no package or toolchain metadata produces an
	// entry with the same hash as its parent. The walk must still finish
	// and show both entries.
	ledger := testLedger(t)
	demo := testConfig("demo")
	hash, err := ledger.AddEntry(demo, OpCreate, "Created container demo")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	same, err := ledger.AddEntry(demo, OpPromote, "Promoted demo-temp-20260301100500")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if hash != same {
		t.Fatalf("expected identical hashes, got %s and %s", hash, same)
	}

	lines := ledger.Graph("demo")
	if len(lines) != 2 {
		t.Fatalf("graph lines = %v", lines)
	}
	if !strings.Contains(lines[0], "Created container demo") {
		t.Fatalf("root line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Promoted demo-temp-20260301100500") {
		t.Fatalf("child line = %q", lines[1])
	}
}

func TestGraphFilterScopesParents(t *testing.T) {
	ledger := testLedger(t)
	demo := testConfig("demo")
	other := testConfig("other")
	if _, err := ledger.AddEntry(demo, OpCreate, "Created container demo"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ledger.AddEntry(other, OpCreate, "Created container other"); err != nil {
		t.Fatalf("add: %v", err)
	}

	lines := ledger.Graph("other")
	if len(lines) != 1 || !strings.Contains(lines[0], "Created container other") {
		t.Fatalf("filtered graph = %v", lines)
	}
}
