// Package linker manages the alias symlinks under <workspace>/links. Aliases
// are the only roots the garbage collector honors, so every lifecycle
// transition funnels through a Linker.
//
// Two implementations exist: DirectLinker writes plain symlinks, StowLinker
// routes alias management through GNU stow packages under .sfc/stow-pkgs and
// falls back to direct symlinks when stow misbehaves. Select with Detect.
package linker

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/workspace"
)

// Linker creates and removes named alias pointers under links/.
type Linker interface {
	// LinkAlias points links/<alias> at relTarget, a path relative to the
	// links directory (normally ../store/<dir>).
	LinkAlias(alias string, relTarget string) error
	// UnlinkAlias removes links/<alias>; an absent alias is not an error.
	UnlinkAlias(alias string) error
}

// Detect probes for GNU stow and returns the stow-backed linker when the
// probe succeeds, the direct linker otherwise. Only the direct linker is
// required for correctness.
func Detect(ws workspace.Workspace) Linker {
	if stowAvailable() {
		return StowLinker{ws: ws}
	}
	return DirectLinker{ws: ws}
}

func stowAvailable() bool {
	return exec.Command("stow", "--version").Run() == nil
}

// DirectLinker manages aliases as plain symlinks.
type DirectLinker struct {
	ws workspace.Workspace
}

// NewDirect returns a DirectLinker over ws.
func NewDirect(ws workspace.Workspace) DirectLinker {
	return DirectLinker{ws: ws}
}

func (linker DirectLinker) LinkAlias(alias string, relTarget string) error {
	return CreateOrUpdateSymlink(relTarget, filepath.Join(linker.ws.LinksDir(), alias))
}

func (linker DirectLinker) UnlinkAlias(alias string) error {
	return removeAliasFile(filepath.Join(linker.ws.LinksDir(), alias))
}

// StowLinker stages a one-entry stow package per alias and restows it into
// links/. Any stow failure degrades to a direct symlink.
type StowLinker struct {
	ws workspace.Workspace
}

// NewStow returns a StowLinker over ws without probing for the tool.
func NewStow(ws workspace.Workspace) StowLinker {
	return StowLinker{ws: ws}
}

func (linker StowLinker) LinkAlias(alias string, relTarget string) error {
	pkgDir := filepath.Join(linker.ws.StowPkgsDir(), alias)
	if err := os.MkdirAll(pkgDir, 0o750); err != nil {
		return sfcerrors.IO(err, "create stow package directory "+pkgDir)
	}
	// The package holds a single entry named after the alias, itself a
	// symlink at the desired target.
	pkgLink := filepath.Join(pkgDir, alias)
	if err := removeAliasFile(pkgLink); err != nil {
		return err
	}
	if err := os.Symlink(relTarget, pkgLink); err != nil {
		return sfcerrors.IO(err, "create stow package symlink "+pkgLink)
	}
	if err := os.MkdirAll(linker.ws.LinksDir(), 0o750); err != nil {
		return sfcerrors.IO(err, "create links directory")
	}

	restow := exec.Command("stow", "-d", linker.ws.StowPkgsDir(), "-t", linker.ws.LinksDir(), "-R", alias)
	if restow.Run() == nil {
		return nil
	}
	return DirectLinker{ws: linker.ws}.LinkAlias(alias, relTarget)
}

func (linker StowLinker) UnlinkAlias(alias string) error {
	unstow := exec.Command("stow", "-d", linker.ws.StowPkgsDir(), "-t", linker.ws.LinksDir(), "-D", alias)
	if unstow.Run() == nil {
		return nil
	}
	return removeAliasFile(filepath.Join(linker.ws.LinksDir(), alias))
}

func removeAliasFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return sfcerrors.IO(err, "remove alias "+path)
	}
	return nil
}

// CreateOrUpdateSymlink replaces link with a symlink at target. The remove
// and create are two separate filesystem operations; a crash between them
// leaves no alias, which downstream code treats as dangling.
func CreateOrUpdateSymlink(target, link string) error {
	if err := removeAliasFile(link); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(link), 0o750); err != nil {
		return sfcerrors.IO(err, "create link parent directory")
	}
	if err := os.Symlink(target, link); err != nil {
		return sfcerrors.IO(err, "create symlink "+link)
	}
	return nil
}

// ReadSymlinkTarget returns the raw target of a symlink.
func ReadSymlinkTarget(link string) (string, error) {
	info, err := os.Lstat(link)
	if err != nil {
		return "", sfcerrors.IO(err, "stat symlink "+link)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", sfcerrors.Validation("path", link, "not a symlink")
	}
	target, err := os.Readlink(link)
	if err != nil {
		return "", sfcerrors.IO(err, "read symlink "+link)
	}
	return target, nil
}

// ResolveSymlink returns the absolute, fully resolved target of a symlink.
func ResolveSymlink(link string) (string, error) {
	target, err := ReadSymlinkTarget(link)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", sfcerrors.IO(err, "resolve symlink "+link)
	}
	return resolved, nil
}

// ValidateSymlinkTarget rejects targets escaping the workspace root. Used
// when materializing untrusted inputs such as recreate flows.
func ValidateSymlinkTarget(root, target string) error {
	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(root, resolved)
	}
	canonicalTarget, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		return sfcerrors.IO(err, "resolve symlink target "+target)
	}
	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return sfcerrors.IO(err, "resolve workspace root")
	}
	relative, err := filepath.Rel(canonicalRoot, canonicalTarget)
	if err != nil || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return sfcerrors.Validation("symlink target", target, "target is outside workspace bounds")
	}
	return nil
}

// LatestTempAlias returns the most recently modified temp alias for a
// container, or "" when none exist. Equal modification times break on
// directory iteration order.
func LatestTempAlias(ws workspace.Workspace, containerName string) (string, error) {
	entries, err := os.ReadDir(ws.LinksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", sfcerrors.IO(err, "read links directory")
	}
	prefix := containerName + "-temp-"
	latest := ""
	var latestMod int64
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		link := filepath.Join(ws.LinksDir(), entry.Name())
		info, err := os.Lstat(link)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if modified := info.ModTime().UnixNano(); latest == "" || modified > latestMod {
			latest = entry.Name()
			latestMod = modified
		}
	}
	return latest, nil
}
