// Package lifecycle drives the generation lifecycle of a container: creating
// it with a seeded stable snapshot, branching a temp snapshot, promoting or
// discarding the branch, rolling the stable alias back to an older snapshot,
// and deleting the container outright. Every operation goes through the alias
// layer so the store itself stays append-only until garbage collection runs.
package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidahmann/sfc/core/container"
	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/gc"
	"github.com/davidahmann/sfc/core/hashx"
	"github.com/davidahmann/sfc/core/history"
	"github.com/davidahmann/sfc/core/linker"
	"github.com/davidahmann/sfc/core/store"
	"github.com/davidahmann/sfc/core/toolchain"
	"github.com/davidahmann/sfc/core/workspace"
)

// Manager bundles the collaborators every lifecycle operation needs. Build
// one per command invocation; it carries no state beyond the workspace
// handles.
type Manager struct {
	ws         workspace.Workspace
	snapshots  store.Store
	links      linker.Linker
	collector  gc.Collector
	toolchains toolchain.Installer
}

// New wires a Manager over ws with the default collaborators: the stow
// linker when stow is on PATH, volta/rustup for toolchains.
func New(ws workspace.Workspace) *Manager {
	return &Manager{
		ws:         ws,
		snapshots:  store.New(ws),
		links:      linker.Detect(ws),
		collector:  gc.New(ws),
		toolchains: toolchain.NewExec(ws),
	}
}

// NewWithInstaller is New with the toolchain installer swapped out, for
// callers that must not shell out.
func NewWithInstaller(ws workspace.Workspace, installer toolchain.Installer) *Manager {
	manager := New(ws)
	manager.toolchains = installer
	return manager
}

// Result reports one container's outcome within a batch operation.
type Result struct {
	Name string `json:"name"`
	Hash string `json:"hash,omitempty"`
	Err  error  `json:"-"`
}

// Create creates each named container with its own stable snapshot. A
// failure on one name does not abort the rest; the returned error is non-nil
// when at least one container failed. When exactly one container was created
// it becomes the current container.
func (manager *Manager) Create(names []string, fromHash string) ([]Result, error) {
	if len(names) == 0 {
		return nil, sfcerrors.Validation("names", "", "at least one container name is required")
	}
	results := make([]Result, 0, len(names))
	failed := 0
	for _, name := range names {
		hash, err := manager.createOne(name, fromHash)
		if err != nil {
			failed++
		}
		results = append(results, Result{Name: name, Hash: hash, Err: err})
	}
	if failed > 0 {
		return results, sfcerrors.Validation("create", strings.Join(names, ","),
			fmt.Sprintf("%d of %d containers failed", failed, len(names)))
	}
	if len(names) == 1 {
		if err := manager.ws.SetCurrentContainer(names[0]); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (manager *Manager) createOne(name, fromHash string) (hash string, err error) {
	if err := container.ValidateName(name); err != nil {
		return "", err
	}
	containerDir := manager.ws.ContainerDir(name)
	if _, statErr := os.Lstat(containerDir); statErr == nil {
		return "", sfcerrors.AlreadyExists("container", name)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(containerDir)
		}
	}()
	for _, sub := range []string{"src", "temp"} {
		if mkErr := os.MkdirAll(filepath.Join(containerDir, sub), 0o750); mkErr != nil {
			return "", sfcerrors.IO(mkErr, "create container directory "+name)
		}
	}

	var snapshotDir string
	config := container.NewConfig(name)
	if fromHash != "" {
		snapshotDir, err = manager.snapshots.CopySnapshot(fromHash, store.KindRecreated)
		if err != nil {
			return "", err
		}
		toolchains, tcErr := store.SnapshotToolchains(snapshotDir)
		if tcErr != nil {
			return "", tcErr
		}
		if len(toolchains) > 0 {
			config.Toolchains = toolchains
		}
	} else {
		snapshotDir, err = manager.snapshots.CreateSnapshotDir(store.KindNew)
		if err != nil {
			return "", err
		}
		if err = manager.snapshots.SeedLockfiles(snapshotDir); err != nil {
			return "", err
		}
	}

	stableAlias := name + "-stable"
	if err = manager.links.LinkAlias(stableAlias, relStoreTarget(snapshotDir)); err != nil {
		return "", err
	}
	// The container-level stable symlink lets tools inside the container
	// reach the active snapshot without knowing the links/ layout.
	if err = linker.CreateOrUpdateSymlink(
		filepath.Join("..", "..", "links", stableAlias),
		filepath.Join(containerDir, "stable"),
	); err != nil {
		return "", err
	}

	if err = config.Save(manager.ws); err != nil {
		return "", err
	}
	ledger, err := history.Load(manager.ws.HistoryPath())
	if err != nil {
		return "", err
	}
	return ledger.AddEntry(config, history.OpCreate, "Created container "+name)
}

// TempResult describes a newly branched temp snapshot.
type TempResult struct {
	Container string `json:"container"`
	Alias     string `json:"alias"`
	Directory string `json:"directory"`
	// Warning is set when a requested toolchain install failed; the
	// snapshot itself is still valid.
	Warning string `json:"warning,omitempty"`
}

// Temp branches a temp snapshot off the container's stable snapshot and
// publishes it under a timestamped alias. Toolchain installation is best
// effort: a failure surfaces as a warning, never as an error.
func (manager *Manager) Temp(name string, request toolchain.Request) (TempResult, error) {
	name, err := manager.resolveName(name)
	if err != nil {
		return TempResult{}, err
	}
	stableDir, err := manager.resolveStableSnapshot(name)
	if err != nil {
		return TempResult{}, err
	}
	tempDir, err := manager.snapshots.CreateSnapshotDir(store.KindTemp)
	if err != nil {
		return TempResult{}, err
	}
	if err := manager.snapshots.CopyLockfiles(stableDir, tempDir); err != nil {
		return TempResult{}, err
	}

	warning := ""
	if !request.IsEmpty() {
		if installErr := manager.toolchains.Install(tempDir, request); installErr != nil {
			warning = "toolchain install failed: " + installErr.Error()
		}
	}

	alias := fmt.Sprintf("%s-temp-%s", name, time.Now().UTC().Format("20060102150405"))
	if err := manager.links.LinkAlias(alias, relStoreTarget(tempDir)); err != nil {
		return TempResult{}, err
	}
	return TempResult{Container: name, Alias: alias, Directory: tempDir, Warning: warning}, nil
}

// PromoteResult reports which alias was promoted and the lockfile change
// summary between the outgoing and incoming stable snapshots.
type PromoteResult struct {
	Container string `json:"container"`
	Alias     string `json:"alias"`
	Message   string `json:"message"`
}

// Promote repoints the container's stable alias at a temp snapshot. With an
// empty tempAlias the most recently created temp alias is promoted. The temp
// alias itself is left in place; clean removes it once the stable alias moves
// on and nothing else references its snapshot.
func (manager *Manager) Promote(name, tempAlias string) (PromoteResult, error) {
	name, err := manager.resolveName(name)
	if err != nil {
		return PromoteResult{}, err
	}
	tempAlias, err = manager.resolveTempAlias(name, tempAlias)
	if err != nil {
		return PromoteResult{}, err
	}
	newDir, err := linker.ResolveSymlink(filepath.Join(manager.ws.LinksDir(), tempAlias))
	if err != nil {
		return PromoteResult{}, err
	}

	oldDir, oldHash := manager.stableState(name)
	newHash, err := hashx.ComputeSnapshotHash(newDir)
	if err != nil {
		return PromoteResult{}, err
	}
	message := buildChangeMessage(oldDir, newDir, oldHash, newHash)

	if err := manager.links.LinkAlias(name+"-stable", relStoreTarget(newDir)); err != nil {
		return PromoteResult{}, err
	}
	if err := manager.record(name, history.OpPromote, "Promoted "+tempAlias); err != nil {
		return PromoteResult{}, err
	}
	return PromoteResult{Container: name, Alias: tempAlias, Message: message}, nil
}

// Discard removes a temp alias and reclaims its snapshot when nothing else
// references it. With an empty tempAlias the most recent temp alias goes.
func (manager *Manager) Discard(name, tempAlias string) (string, error) {
	name, err := manager.resolveName(name)
	if err != nil {
		return "", err
	}
	tempAlias, err = manager.resolveTempAlias(name, tempAlias)
	if err != nil {
		return "", err
	}
	relTarget, err := linker.ReadSymlinkTarget(filepath.Join(manager.ws.LinksDir(), tempAlias))
	if err != nil {
		return "", err
	}
	if err := manager.links.UnlinkAlias(tempAlias); err != nil {
		return "", err
	}
	if err := manager.collector.RemoveStoreIfOrphan(relTarget); err != nil {
		return "", err
	}
	return tempAlias, nil
}

// RollbackResult reports the snapshot the stable alias now points at and the
// lockfile change summary of the move.
type RollbackResult struct {
	Container string `json:"container"`
	Target    string `json:"target"`
	Message   string `json:"message"`
}

// Rollback repoints the container's stable alias at an existing store
// directory named by target.
func (manager *Manager) Rollback(name, target string) (RollbackResult, error) {
	name, err := manager.resolveName(name)
	if err != nil {
		return RollbackResult{}, err
	}
	candidate := filepath.Join(manager.ws.StoreDir(), target)
	if _, statErr := os.Lstat(candidate); statErr != nil {
		return RollbackResult{}, sfcerrors.NotFound("snapshot", target)
	}
	newDir, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return RollbackResult{}, sfcerrors.IO(err, "resolve snapshot "+target)
	}

	oldDir, oldHash := manager.stableState(name)
	newHash, err := hashx.ComputeSnapshotHash(newDir)
	if err != nil {
		return RollbackResult{}, err
	}
	message := buildChangeMessage(oldDir, newDir, oldHash, newHash)

	if err := manager.links.LinkAlias(name+"-stable", filepath.Join("..", "store", target)); err != nil {
		return RollbackResult{}, err
	}
	if err := manager.record(name, history.OpRollback, "Rolled back to "+target); err != nil {
		return RollbackResult{}, err
	}
	return RollbackResult{Container: name, Target: target, Message: message}, nil
}

// Delete removes each named container: its working tree, its config, its
// stable and temp aliases, and the current-container pointer when it points
// at a deleted name. A failure on one name does not abort the rest. Garbage
// collection always runs afterwards so the deleted containers' snapshots are
// reclaimed in the same call.
func (manager *Manager) Delete(names []string, force bool) ([]Result, gc.Report, error) {
	if len(names) == 0 {
		return nil, gc.Report{}, sfcerrors.Validation("names", "", "at least one container name is required")
	}
	current, err := manager.ws.CurrentContainer()
	if err != nil {
		return nil, gc.Report{}, err
	}
	existing, err := manager.ws.ListContainers()
	if err != nil {
		return nil, gc.Report{}, err
	}

	results := make([]Result, 0, len(names))
	failed := 0
	for _, name := range names {
		deleteErr := manager.deleteOne(name, current, existing, force)
		if deleteErr != nil {
			failed++
		}
		results = append(results, Result{Name: name, Err: deleteErr})
	}

	report, cleanErr := manager.collector.Clean()
	if cleanErr != nil {
		return results, report, cleanErr
	}
	if failed > 0 {
		return results, report, sfcerrors.Validation("delete", strings.Join(names, ","),
			fmt.Sprintf("%d of %d containers failed", failed, len(names)))
	}
	return results, report, nil
}

func (manager *Manager) deleteOne(name, current string, existing []string, force bool) error {
	if !containsName(existing, name) {
		return sfcerrors.NotFound("container", name)
	}
	if name == current && !force {
		return sfcerrors.Validation("name", name,
			"cannot delete the current container; switch away first or force the deletion")
	}

	if err := os.RemoveAll(manager.ws.ContainerDir(name)); err != nil {
		return sfcerrors.IO(err, "remove container directory "+name)
	}
	if err := container.Remove(manager.ws, name); err != nil {
		return err
	}
	if err := manager.links.UnlinkAlias(name + "-stable"); err != nil {
		return err
	}
	entries, err := os.ReadDir(manager.ws.LinksDir())
	if err != nil && !os.IsNotExist(err) {
		return sfcerrors.IO(err, "read links directory")
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), name+"-temp-") {
			if err := manager.links.UnlinkAlias(entry.Name()); err != nil {
				return err
			}
		}
	}
	if name == current {
		if err := manager.ws.ClearCurrentContainer(); err != nil {
			return err
		}
	}
	return nil
}

// resolveName falls back to the current container when name is empty.
func (manager *Manager) resolveName(name string) (string, error) {
	if name != "" {
		if _, err := os.Lstat(manager.ws.ContainerDir(name)); err != nil {
			return "", sfcerrors.NotFound("container", name)
		}
		return name, nil
	}
	current, err := manager.ws.CurrentContainer()
	if err != nil {
		return "", err
	}
	if current == "" {
		return "", sfcerrors.Validation("name", "",
			"no container selected; name one or switch to a container first")
	}
	return current, nil
}

func (manager *Manager) resolveTempAlias(name, tempAlias string) (string, error) {
	if tempAlias != "" {
		return tempAlias, nil
	}
	latest, err := linker.LatestTempAlias(manager.ws, name)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", sfcerrors.NotFound("temp snapshot for container", name)
	}
	return latest, nil
}

func (manager *Manager) resolveStableSnapshot(name string) (string, error) {
	dir, err := linker.ResolveSymlink(filepath.Join(manager.ws.LinksDir(), name+"-stable"))
	if err != nil {
		return "", sfcerrors.NotFound("stable snapshot for container", name)
	}
	return dir, nil
}

// stableState reports the current stable snapshot directory and hash, or
// empty strings when the container has no resolvable stable alias yet.
func (manager *Manager) stableState(name string) (string, string) {
	dir, err := manager.resolveStableSnapshot(name)
	if err != nil {
		return "", ""
	}
	hash, err := hashx.ComputeSnapshotHash(dir)
	if err != nil {
		return dir, ""
	}
	return dir, hash
}

func (manager *Manager) record(name, operation, message string) error {
	config, err := container.Load(manager.ws, name)
	if err != nil {
		return err
	}
	ledger, err := history.Load(manager.ws.HistoryPath())
	if err != nil {
		return err
	}
	_, err = ledger.AddEntry(config, operation, message)
	return err
}

// relStoreTarget turns an absolute store directory into the relative alias
// target recorded in links/.
func relStoreTarget(snapshotDir string) string {
	return filepath.Join("..", "store", filepath.Base(snapshotDir))
}

// buildChangeMessage summarizes what moving the stable alias from oldDir to
// newDir changes: a generation header followed by per-lockfile added and
// removed entry counts. Entries are the distinct non-blank, non-comment
// lines of each branch lockfile.
func buildChangeMessage(oldDir, newDir, oldHash, newHash string) string {
	var builder strings.Builder
	if oldHash != "" {
		builder.WriteString(fmt.Sprintf("Switching generation %s -> %s",
			hashx.ShortHash(oldHash), hashx.ShortHash(newHash)))
	} else {
		builder.WriteString("Switching to generation " + hashx.ShortHash(newHash))
	}

	changed := false
	for _, name := range store.BranchLockfiles {
		// Only lockfiles present in the new snapshot are summarized.
		if _, err := os.Stat(filepath.Join(newDir, name)); err != nil {
			continue
		}
		oldEntries := lockfileEntries(oldDir, name)
		newEntries := lockfileEntries(newDir, name)
		added := countMissing(newEntries, oldEntries)
		removed := countMissing(oldEntries, newEntries)
		if added == 0 && removed == 0 {
			continue
		}
		changed = true
		builder.WriteString("\n" + name + ":")
		if added > 0 {
			builder.WriteString(fmt.Sprintf("\n  + %d entries", added))
		}
		if removed > 0 {
			builder.WriteString(fmt.Sprintf("\n  - %d entries", removed))
		}
	}
	if !changed {
		builder.WriteString("\nNo lockfile changes detected")
	}
	return builder.String()
}

func lockfileEntries(dir, name string) map[string]bool {
	entries := make(map[string]bool)
	if dir == "" {
		return entries
	}
	content, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- name comes from the fixed branch set.
	if err != nil {
		return entries
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries[line] = true
	}
	return entries
}

func countMissing(entries, other map[string]bool) int {
	count := 0
	for entry := range entries {
		if !other[entry] {
			count++
		}
	}
	return count
}

func containsName(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}
