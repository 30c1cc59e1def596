package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/davidahmann/sfc/core/hashx"
	"github.com/davidahmann/sfc/core/linker"
	"github.com/davidahmann/sfc/core/workspace"
)

func setTestWorkspace(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "sfc-home")
	t.Setenv("SFC_HOME", root)
	return root
}

func TestRunWithoutArgumentsPrintsVersion(t *testing.T) {
	setTestWorkspace(t)
	if code := run([]string{"sfc"}); code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if code := run([]string{"sfc", "version"}); code != exitOK {
		t.Fatalf("version exit code = %d, want %d", code, exitOK)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	setTestWorkspace(t)
	if code := run([]string{"sfc", "frobnicate"}); code != exitInvalidInput {
		t.Fatalf("exit code = %d, want %d", code, exitInvalidInput)
	}
}

func TestInitCreatesWorkspace(t *testing.T) {
	root := setTestWorkspace(t)
	if code := run([]string{"sfc", "init"}); code != exitOK {
		t.Fatalf("init exit code = %d", code)
	}
	for _, sub := range []string{"store", "links", "containers", ".sfc"} {
		if _, err := os.Stat(filepath.Join(root, sub)); err != nil {
			t.Errorf("workspace directory %s missing: %v", sub, err)
		}
	}
}

func TestCreateFlow(t *testing.T) {
	root := setTestWorkspace(t)
	if code := run([]string{"sfc", "create", "demo"}); code != exitOK {
		t.Fatalf("create exit code = %d", code)
	}
	if _, err := os.Stat(filepath.Join(root, "containers", "demo", "src")); err != nil {
		t.Errorf("container tree missing: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(root, "links", "demo-stable")); err != nil {
		t.Errorf("stable alias missing: %v", err)
	}

	ws := workspace.New(root)
	current, err := ws.CurrentContainer()
	if err != nil {
		t.Fatalf("CurrentContainer: %v", err)
	}
	if current != "demo" {
		t.Errorf("current container = %q, want demo", current)
	}

	if code := run([]string{"sfc", "create", "demo"}); code != exitAlreadyExists {
		t.Errorf("duplicate create exit code = %d, want %d", code, exitAlreadyExists)
	}
	if code := run([]string{"sfc", "create", "bad name!"}); code != exitInvalidInput {
		t.Errorf("invalid name exit code = %d, want %d", code, exitInvalidInput)
	}
	if code := run([]string{"sfc", "create"}); code != exitInvalidInput {
		t.Errorf("missing name exit code = %d, want %d", code, exitInvalidInput)
	}
}

func TestTempPromoteDiscardFlow(t *testing.T) {
	root := setTestWorkspace(t)
	if code := run([]string{"sfc", "create", "demo"}); code != exitOK {
		t.Fatalf("create exit code = %d", code)
	}
	if code := run([]string{"sfc", "promote"}); code != exitNotFound {
		t.Errorf("promote without temp exit code = %d, want %d", code, exitNotFound)
	}
	if code := run([]string{"sfc", "temp"}); code != exitOK {
		t.Fatalf("temp exit code = %d", code)
	}
	if code := run([]string{"sfc", "promote"}); code != exitOK {
		t.Fatalf("promote exit code = %d", code)
	}
	// Temp alias timestamps have second granularity; a second branch in the
	// same second would reuse the first alias name.
	time.Sleep(1100 * time.Millisecond)
	if code := run([]string{"sfc", "temp"}); code != exitOK {
		t.Fatalf("second temp exit code = %d", code)
	}
	if code := run([]string{"sfc", "discard"}); code != exitOK {
		t.Fatalf("discard exit code = %d", code)
	}

	ws := workspace.New(root)
	alias, err := linker.LatestTempAlias(ws, "demo")
	if err != nil {
		t.Fatalf("LatestTempAlias: %v", err)
	}
	// The promoted alias survives; the discarded one is gone.
	entries, _ := os.ReadDir(ws.LinksDir())
	tempCount := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "demo-temp-") {
			tempCount++
		}
	}
	if tempCount != 1 {
		t.Errorf("temp alias count = %d, want 1 (promoted alias %q retained)", tempCount, alias)
	}
}

func TestDeleteRequiresForceForCurrent(t *testing.T) {
	root := setTestWorkspace(t)
	if code := run([]string{"sfc", "create", "demo"}); code != exitOK {
		t.Fatalf("create exit code = %d", code)
	}
	if code := run([]string{"sfc", "delete", "demo"}); code != exitInvalidInput {
		t.Errorf("delete current exit code = %d, want %d", code, exitInvalidInput)
	}
	if code := run([]string{"sfc", "delete", "--force", "demo"}); code != exitOK {
		t.Fatalf("forced delete exit code = %d", code)
	}
	if _, err := os.Stat(filepath.Join(root, "containers", "demo")); !os.IsNotExist(err) {
		t.Error("container survived forced delete")
	}
	if code := run([]string{"sfc", "delete", "--force", "ghost"}); code != exitNotFound {
		t.Errorf("delete missing exit code = %d, want %d", code, exitNotFound)
	}
}

func TestSwitchCommand(t *testing.T) {
	setTestWorkspace(t)
	if code := run([]string{"sfc", "create", "one"}); code != exitOK {
		t.Fatalf("create one exit code = %d", code)
	}
	if code := run([]string{"sfc", "create", "two"}); code != exitOK {
		t.Fatalf("create two exit code = %d", code)
	}
	if code := run([]string{"sfc", "switch", "one"}); code != exitOK {
		t.Fatalf("switch exit code = %d", code)
	}
	if code := run([]string{"sfc", "switch", "ghost"}); code != exitNotFound {
		t.Errorf("switch missing exit code = %d, want %d", code, exitNotFound)
	}
	if code := run([]string{"sfc", "switch"}); code != exitInvalidInput {
		t.Errorf("switch without name exit code = %d, want %d", code, exitInvalidInput)
	}
}

func TestDeleteSnapshotRefusesActiveStable(t *testing.T) {
	root := setTestWorkspace(t)
	if code := run([]string{"sfc", "create", "demo"}); code != exitOK {
		t.Fatalf("create exit code = %d", code)
	}
	ws := workspace.New(root)
	stableDir, err := linker.ResolveSymlink(filepath.Join(ws.LinksDir(), "demo-stable"))
	if err != nil {
		t.Fatalf("resolve stable: %v", err)
	}
	hash, err := hashx.ComputeSnapshotHash(stableDir)
	if err != nil {
		t.Fatalf("ComputeSnapshotHash: %v", err)
	}

	if code := run([]string{"sfc", "delete-snapshot", hashx.ShortHash(hash)}); code != exitInvalidInput {
		t.Errorf("delete active stable exit code = %d, want %d", code, exitInvalidInput)
	}
	if code := run([]string{"sfc", "delete-snapshot", "--force", hashx.ShortHash(hash)}); code != exitOK {
		t.Fatalf("forced snapshot delete exit code = %d", code)
	}
	if _, statErr := os.Stat(stableDir); !os.IsNotExist(statErr) {
		t.Error("snapshot directory survived forced delete")
	}
}

func TestStatusAndListAndHistory(t *testing.T) {
	setTestWorkspace(t)
	if code := run([]string{"sfc", "status"}); code != exitOK {
		t.Errorf("status without container exit code = %d", code)
	}
	if code := run([]string{"sfc", "list"}); code != exitOK {
		t.Errorf("empty list exit code = %d", code)
	}
	if code := run([]string{"sfc", "create", "demo"}); code != exitOK {
		t.Fatalf("create exit code = %d", code)
	}
	if code := run([]string{"sfc", "status", "--json"}); code != exitOK {
		t.Errorf("status exit code = %d", code)
	}
	if code := run([]string{"sfc", "history", "log"}); code != exitOK {
		t.Errorf("history log exit code = %d", code)
	}
	if code := run([]string{"sfc", "history", "graph", "-c", "demo"}); code != exitOK {
		t.Errorf("history graph exit code = %d", code)
	}
	if code := run([]string{"sfc", "history"}); code != exitInvalidInput {
		t.Errorf("bare history exit code = %d, want %d", code, exitInvalidInput)
	}
}

func TestShareCommand(t *testing.T) {
	setTestWorkspace(t)
	if code := run([]string{"sfc", "create", "demo"}); code != exitOK {
		t.Fatalf("create exit code = %d", code)
	}
	if code := run([]string{"sfc", "share", "--json"}); code != exitOK {
		t.Errorf("share exit code = %d", code)
	}
	if code := run([]string{"sfc", "share", "--snapshot", "000000"}); code != exitNotFound {
		t.Errorf("share missing snapshot exit code = %d, want %d", code, exitNotFound)
	}
}

func TestCleanCommand(t *testing.T) {
	root := setTestWorkspace(t)
	if code := run([]string{"sfc", "init"}); code != exitOK {
		t.Fatalf("init exit code = %d", code)
	}
	if err := os.Symlink("../store/gone", filepath.Join(root, "links", "dangling")); err != nil {
		t.Fatal(err)
	}
	if code := run([]string{"sfc", "clean"}); code != exitOK {
		t.Fatalf("clean exit code = %d", code)
	}
	if _, err := os.Lstat(filepath.Join(root, "links", "dangling")); !os.IsNotExist(err) {
		t.Error("dangling link survived clean")
	}
}

func TestOperationalTelemetryStream(t *testing.T) {
	setTestWorkspace(t)
	logPath := filepath.Join(t.TempDir(), "ops.jsonl")
	t.Setenv("SFC_OPERATIONAL_LOG", logPath)

	if code := run([]string{"sfc", "version"}); code != exitOK {
		t.Fatalf("version exit code = %d", code)
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read telemetry log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("telemetry lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"phase":"start"`) || !strings.Contains(lines[1], `"phase":"end"`) {
		t.Errorf("unexpected telemetry phases: %v", lines)
	}
	for _, line := range lines {
		if !strings.Contains(line, `"schema_id":"sfc.telemetry.operational"`) {
			t.Errorf("telemetry line missing schema id: %s", line)
		}
	}
}

func TestNormalizeCommand(t *testing.T) {
	cases := []struct {
		arguments []string
		want      string
	}{
		{[]string{"sfc"}, "version"},
		{[]string{"sfc", "--version"}, "version"},
		{[]string{"sfc", "create", "demo"}, "create"},
		{[]string{"sfc", "history", "log"}, "history log"},
		{[]string{"sfc", "history", "--json"}, "history"},
		{[]string{"sfc", ""}, "unknown"},
	}
	for _, tc := range cases {
		if got := normalizeCommand(tc.arguments); got != tc.want {
			t.Errorf("normalizeCommand(%v) = %q, want %q", tc.arguments, got, tc.want)
		}
	}
}
