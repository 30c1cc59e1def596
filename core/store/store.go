// Package store manages the immutable snapshot directories under
// <workspace>/store. A snapshot is written once at creation and only ever
// removed, never mutated; its identity comes from core/hashx.
package store

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/fsx"
	"github.com/davidahmann/sfc/core/hashx"
	"github.com/davidahmann/sfc/core/workspace"
)

// Snapshot kinds used as directory-name suffixes.
const (
	KindNew       = "new"
	KindTemp      = "temp"
	KindRecreated = "recreated"
)

// BranchLockfiles is the narrow lock-file set copied when branching a temp
// snapshot and diffed when switching generations. It is deliberately smaller
// than hashx.LockfileWhitelist; the two sets are never merged.
var BranchLockfiles = []string{
	"requirements.txt",
	"rockspec.lock",
	"Cargo.lock",
}

var seedContents = map[string][]byte{
	"requirements.txt":  []byte("# pinned python deps\n"),
	"rockspec.lock":     []byte("# pinned luarocks deps\n"),
	"Cargo.lock":        []byte("# pinned cargo lock placeholder\n"),
	"package-lock.json": []byte("{\n  \"name\": \"sfc-container\",\n  \"lockfileVersion\": 2\n}\n"),
}

const nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomName() (string, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return "", sfcerrors.Internal(err, "generate snapshot name")
	}
	for i, b := range raw {
		raw[i] = nameAlphabet[int(b)%len(nameAlphabet)]
	}
	return string(raw), nil
}

// Store addresses the snapshot directories of one workspace.
type Store struct {
	ws workspace.Workspace
}

// New returns a Store over ws.
func New(ws workspace.Workspace) Store {
	return Store{ws: ws}
}

// CreateSnapshotDir allocates store/<random12>-<kind>/. A collision on the
// random name is an error, not a silent reuse of the existing directory.
func (store Store) CreateSnapshotDir(kind string) (string, error) {
	if err := os.MkdirAll(store.ws.StoreDir(), 0o750); err != nil {
		return "", sfcerrors.IO(err, "create store directory")
	}
	random, err := randomName()
	if err != nil {
		return "", err
	}
	name := random + "-" + kind
	dir := filepath.Join(store.ws.StoreDir(), name)
	if err := os.Mkdir(dir, 0o750); err != nil {
		if os.IsExist(err) {
			return "", sfcerrors.AlreadyExists("snapshot directory", name)
		}
		return "", sfcerrors.IO(err, "create snapshot directory "+dir)
	}
	return dir, nil
}

// SeedLockfiles writes placeholder lock files into dir, skipping any that
// already exist.
func (store Store) SeedLockfiles(dir string) error {
	for _, name := range []string{"requirements.txt", "rockspec.lock", "Cargo.lock", "package-lock.json"} {
		path := filepath.Join(dir, name)
		if _, err := os.Lstat(path); err == nil {
			continue
		}
		if err := fsx.WriteFileAtomic(path, seedContents[name], 0o600); err != nil {
			return err
		}
	}
	return nil
}

// CopyLockfiles copies the narrow branch set from one snapshot to another,
// skipping files absent in the source.
func (store Store) CopyLockfiles(from, to string) error {
	for _, name := range BranchLockfiles {
		src := filepath.Join(from, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := fsx.CopyFile(src, filepath.Join(to, name)); err != nil {
			return err
		}
	}
	return nil
}

// CopySnapshot deep-copies the snapshot matching sourceHash into a fresh
// directory of the given kind and returns the new directory.
func (store Store) CopySnapshot(sourceHash, kind string) (string, error) {
	source, err := store.FindSnapshotByHash(sourceHash)
	if err != nil {
		return "", err
	}
	dir, err := store.CreateSnapshotDir(kind)
	if err != nil {
		return "", err
	}
	if err := fsx.CopyDir(source, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// FindSnapshotByHash scans the store and returns the first directory whose
// identity hash starts with prefix. Unlike hashx.FindHashByPrefix this does
// not reject ambiguous prefixes; the first hit in directory order wins.
func (store Store) FindSnapshotByHash(prefix string) (string, error) {
	entries, err := os.ReadDir(store.ws.StoreDir())
	if err != nil {
		if os.IsNotExist(err) {
			return "", sfcerrors.NotFound("snapshot", prefix)
		}
		return "", sfcerrors.IO(err, "read store directory")
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(store.ws.StoreDir(), entry.Name())
		hash, err := hashx.ComputeSnapshotHash(dir)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(hash, prefix) {
			return dir, nil
		}
	}
	return "", sfcerrors.NotFound("snapshot", prefix)
}

// DeleteSnapshot removes the snapshot matching hash along with every alias
// whose target names its directory. Refusing deletion of the active stable
// snapshot is the caller's job; this is the unconditional removal primitive.
func (store Store) DeleteSnapshot(hash string) error {
	dir, err := store.FindSnapshotByHash(hash)
	if err != nil {
		return err
	}
	basename := filepath.Base(dir)

	if entries, err := os.ReadDir(store.ws.LinksDir()); err == nil {
		for _, entry := range entries {
			link := filepath.Join(store.ws.LinksDir(), entry.Name())
			info, err := os.Lstat(link)
			if err != nil || info.Mode()&os.ModeSymlink == 0 {
				continue
			}
			target, err := os.Readlink(link)
			if err != nil {
				continue
			}
			if filepath.Base(target) == basename {
				if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
					return sfcerrors.IO(err, "remove alias "+entry.Name())
				}
			}
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return sfcerrors.IO(err, "remove snapshot directory "+dir)
	}
	return nil
}

// Info describes one snapshot as seen from a container's alias set.
type Info struct {
	Hash        string            `json:"hash"`
	Directory   string            `json:"directory"`
	ModifiedAt  time.Time         `json:"modified_at"`
	Description string            `json:"description"`
	IsActive    bool              `json:"is_active"`
	Toolchains  map[string]string `json:"toolchains,omitempty"`
}

// ListContainerSnapshots returns the snapshots referenced by any alias
// carrying the container's name prefix, newest first, flagging the one the
// stable alias currently resolves to.
func (store Store) ListContainerSnapshots(containerName string) ([]Info, error) {
	referenced, err := store.referencedSnapshots(containerName)
	if err != nil {
		return nil, err
	}

	currentHash := ""
	if stable, err := store.resolveAlias(containerName + "-stable"); err == nil {
		if hash, err := hashx.ComputeSnapshotHash(stable); err == nil {
			currentHash = hash
		}
	}

	entries, err := os.ReadDir(store.ws.StoreDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sfcerrors.IO(err, "read store directory")
	}

	var snapshots []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !referenced[entry.Name()] {
			continue
		}
		dir := filepath.Join(store.ws.StoreDir(), entry.Name())
		hash, err := hashx.ComputeSnapshotHash(dir)
		if err != nil {
			return nil, err
		}
		info := Info{
			Hash:        hash,
			Directory:   entry.Name(),
			Description: "snapshot",
			IsActive:    currentHash != "" && hash == currentHash,
		}
		if info.IsActive {
			info.Description = "current stable"
		}
		if stat, err := os.Stat(dir); err == nil {
			info.ModifiedAt = stat.ModTime()
		}
		if toolchains, err := SnapshotToolchains(dir); err == nil && len(toolchains) > 0 {
			info.Toolchains = toolchains
		}
		snapshots = append(snapshots, info)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ModifiedAt.After(snapshots[j].ModifiedAt)
	})
	return snapshots, nil
}

func (store Store) referencedSnapshots(containerName string) (map[string]bool, error) {
	referenced := make(map[string]bool)
	entries, err := os.ReadDir(store.ws.LinksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return referenced, nil
		}
		return nil, sfcerrors.IO(err, "read links directory")
	}
	prefix := containerName + "-"
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		link := filepath.Join(store.ws.LinksDir(), entry.Name())
		info, err := os.Lstat(link)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		target, err := os.Readlink(link)
		if err != nil {
			continue
		}
		referenced[filepath.Base(target)] = true
	}
	return referenced, nil
}

func (store Store) resolveAlias(alias string) (string, error) {
	link := filepath.Join(store.ws.LinksDir(), alias)
	target, err := os.Readlink(link)
	if err != nil {
		return "", sfcerrors.IO(err, "read alias "+alias)
	}
	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(store.ws.LinksDir(), resolved)
	}
	abs, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		return "", sfcerrors.IO(err, "resolve alias "+alias)
	}
	return abs, nil
}

// SnapshotToolchains reads the toolchain marker files a snapshot carries.
func SnapshotToolchains(dir string) (map[string]string, error) {
	toolchains := make(map[string]string)
	markers := map[string]string{
		"node": "node_version",
		"rust": "rust_version",
	}
	for tool, marker := range markers {
		content, err := os.ReadFile(filepath.Join(dir, marker)) // #nosec G304 -- marker names are fixed.
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, sfcerrors.IO(err, "read toolchain marker "+marker)
		}
		toolchains[tool] = strings.TrimSpace(string(content))
	}
	return toolchains, nil
}
