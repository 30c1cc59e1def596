package pkgmgr

import (
	"testing"

	"github.com/davidahmann/sfc/core/container"
	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/history"
	"github.com/davidahmann/sfc/core/workspace"
)

type fakeInstaller struct {
	installed []string
	removed   []string
	fail      bool
}

func (installer *fakeInstaller) Install(spec container.PackageSpec, installDir string) error {
	if installer.fail {
		return sfcerrors.Command("fake install "+spec.Name, 1, "boom")
	}
	installer.installed = append(installer.installed, spec.Name)
	return nil
}

func (installer *fakeInstaller) Remove(name string, installDir string) error {
	if installer.fail {
		return sfcerrors.Command("fake remove "+name, 1, "boom")
	}
	installer.removed = append(installer.removed, name)
	return nil
}

func testManager(t *testing.T) (Manager, *fakeInstaller, workspace.Workspace) {
	t.Helper()
	ws := workspace.New(t.TempDir())
	if err := ws.EnsureLayout(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	installer := &fakeInstaller{}
	return New(ws, installer), installer, ws
}

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec("ripgrep@14.1.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Name != "ripgrep" || spec.Version != "14.1.0" {
		t.Fatalf("spec = %+v", spec)
	}

	bare, err := ParseSpec("jq")
	if err != nil {
		t.Fatalf("parse bare: %v", err)
	}
	if bare.Name != "jq" || bare.Version != "" {
		t.Fatalf("bare spec = %+v", bare)
	}

	if _, err := ParseSpec(""); err == nil {
		t.Fatalf("empty spec accepted")
	}
	if _, err := ParseSpec("@1.0"); err == nil {
		t.Fatalf("nameless spec accepted")
	}
}

func TestAddRecordsHistoryAndConfig(t *testing.T) {
	manager, installer, ws := testManager(t)
	config := container.NewConfig("demo")

	hash, err := manager.Add(&config, container.PackageSpec{Name: "curl", Version: "8.6.0"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(hash) != 64 {
		t.Fatalf("hash = %q", hash)
	}
	if len(installer.installed) != 1 || installer.installed[0] != "curl" {
		t.Fatalf("installer calls = %v", installer.installed)
	}

	loaded, err := container.Load(ws, "demo")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, ok := loaded.FindPackage("curl"); !ok {
		t.Fatalf("package not persisted: %+v", loaded.Packages)
	}

	ledger, err := history.Load(ws.HistoryPath())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	entries := ledger.Entries()
	if len(entries) != 1 || entries[0].Operation != history.OpAddPackage {
		t.Fatalf("ledger = %+v", entries)
	}
	if entries[0].Message != "Install curl@8.6.0" {
		t.Fatalf("message = %q", entries[0].Message)
	}
}

func TestAddExistingPackageRecordsModify(t *testing.T) {
	manager, _, ws := testManager(t)
	config := container.NewConfig("demo")
	if _, err := manager.Add(&config, container.PackageSpec{Name: "curl", Version: "8.5.0"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := manager.Add(&config, container.PackageSpec{Name: "curl", Version: "8.6.0"}); err != nil {
		t.Fatalf("second add: %v", err)
	}

	ledger, err := history.Load(ws.HistoryPath())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	entries := ledger.Entries()
	if len(entries) != 2 || entries[1].Operation != history.OpModifyPackage {
		t.Fatalf("ledger = %+v", entries)
	}
	if entries[1].ParentHash != entries[0].Hash {
		t.Fatalf("modify entry not chained to add entry")
	}
	if len(config.Packages) != 1 || config.Packages[0].Version != "8.6.0" {
		t.Fatalf("config = %+v", config.Packages)
	}
}

func TestAddFailedInstallLeavesConfigUntouched(t *testing.T) {
	manager, installer, ws := testManager(t)
	installer.fail = true
	config := container.NewConfig("demo")

	_, err := manager.Add(&config, container.PackageSpec{Name: "curl"})
	if err == nil {
		t.Fatalf("failed install must error")
	}
	if sfcerrors.CategoryOf(err) != sfcerrors.CategoryCommand {
		t.Fatalf("error category = %v", sfcerrors.CategoryOf(err))
	}
	if len(config.Packages) != 0 {
		t.Fatalf("failed install mutated the config: %+v", config.Packages)
	}
	ledger, err := history.Load(ws.HistoryPath())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(ledger.Entries()) != 0 {
		t.Fatalf("failed install recorded history")
	}
}

func TestRemove(t *testing.T) {
	manager, installer, ws := testManager(t)
	config := container.NewConfig("demo")
	if _, err := manager.Add(&config, container.PackageSpec{Name: "curl"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := manager.Remove(&config, "curl"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(installer.removed) != 1 || installer.removed[0] != "curl" {
		t.Fatalf("installer calls = %v", installer.removed)
	}
	if len(config.Packages) != 0 {
		t.Fatalf("package still declared: %+v", config.Packages)
	}

	ledger, err := history.Load(ws.HistoryPath())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	entries := ledger.Entries()
	if len(entries) != 2 || entries[1].Operation != history.OpRemovePackage {
		t.Fatalf("ledger = %+v", entries)
	}

	if _, err := manager.Remove(&config, "absent"); !sfcerrors.IsNotFound(err) {
		t.Fatalf("removing an undeclared package = %v", err)
	}
}
