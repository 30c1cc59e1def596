// Package workspace owns the on-disk layout of an sfc workspace and the
// current-container pointer. All other core packages address the store,
// links, and container trees through a Workspace handle so that the root can
// be relocated (SFC_HOME) without touching call sites.
package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/fsx"
)

// MetaDirName is the workspace-private metadata directory.
const MetaDirName = ".sfc"

// Workspace is a handle on one workspace root. The zero value is not usable;
// construct with New or Default.
type Workspace struct {
	Root string
}

// New returns a handle on the workspace rooted at root. The root is not
// required to exist yet; EnsureLayout creates it.
func New(root string) Workspace {
	return Workspace{Root: root}
}

// Default resolves the workspace root: SFC_HOME when set, otherwise ~/.sfc.
func Default() (Workspace, error) {
	if override := strings.TrimSpace(os.Getenv("SFC_HOME")); override != "" {
		return New(override), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Workspace{}, sfcerrors.Internal(err, "resolve home directory")
	}
	return New(filepath.Join(home, MetaDirName)), nil
}

// StoreDir returns <root>/store.
func (workspace Workspace) StoreDir() string {
	return filepath.Join(workspace.Root, "store")
}

// LinksDir returns <root>/links.
func (workspace Workspace) LinksDir() string {
	return filepath.Join(workspace.Root, "links")
}

// ContainersDir returns <root>/containers.
func (workspace Workspace) ContainersDir() string {
	return filepath.Join(workspace.Root, "containers")
}

// MetaDir returns <root>/.sfc.
func (workspace Workspace) MetaDir() string {
	return filepath.Join(workspace.Root, MetaDirName)
}

// ContainerDir returns <root>/containers/<name>.
func (workspace Workspace) ContainerDir(name string) string {
	return filepath.Join(workspace.ContainersDir(), name)
}

// ContainerConfigPath returns <root>/.sfc/containers/<name>.toml.
func (workspace Workspace) ContainerConfigPath(name string) string {
	return filepath.Join(workspace.MetaDir(), "containers", name+".toml")
}

// HistoryPath returns <root>/.sfc/history.json.
func (workspace Workspace) HistoryPath() string {
	return filepath.Join(workspace.MetaDir(), "history.json")
}

// StowPkgsDir returns <root>/.sfc/stow-pkgs.
func (workspace Workspace) StowPkgsDir() string {
	return filepath.Join(workspace.MetaDir(), "stow-pkgs")
}

// ToolchainsDir returns <root>/.sfc/toolchains.
func (workspace Workspace) ToolchainsDir() string {
	return filepath.Join(workspace.MetaDir(), "toolchains")
}

// SettingsPath returns <root>/.sfc/workspace.toml.
func (workspace Workspace) SettingsPath() string {
	return filepath.Join(workspace.MetaDir(), "workspace.toml")
}

var gitignoreSeed = strings.Join([]string{
	"store/",
	".sfc/toolchains/",
	"**/target/",
	"**/.sfc-cache/",
	"**/.DS_Store",
}, "\n") + "\n"

// EnsureLayout creates the workspace directory skeleton when missing. It is
// idempotent and never truncates existing files.
func (workspace Workspace) EnsureLayout() error {
	for _, sub := range []string{"store", "containers", "links", MetaDirName} {
		path := filepath.Join(workspace.Root, sub)
		if err := os.MkdirAll(path, 0o750); err != nil {
			return sfcerrors.IO(err, "create workspace directory "+path)
		}
	}
	for _, sub := range []string{"containers", "toolchains"} {
		path := filepath.Join(workspace.MetaDir(), sub)
		if err := os.MkdirAll(path, 0o750); err != nil {
			return sfcerrors.IO(err, "create metadata directory "+path)
		}
	}

	gitignore := filepath.Join(workspace.Root, ".gitignore")
	if _, err := os.Lstat(gitignore); os.IsNotExist(err) {
		if err := fsx.WriteFileAtomic(gitignore, []byte(gitignoreSeed), 0o600); err != nil {
			return err
		}
	}

	if _, err := os.Lstat(workspace.SettingsPath()); os.IsNotExist(err) {
		if err := DefaultSettings().Save(workspace.SettingsPath()); err != nil {
			return err
		}
	}
	return nil
}

// IsInitialized reports whether the workspace skeleton exists.
func (workspace Workspace) IsInitialized() bool {
	for _, sub := range []string{MetaDirName, "store", "containers", "links"} {
		if _, err := os.Stat(filepath.Join(workspace.Root, sub)); err != nil {
			return false
		}
	}
	return true
}

func (workspace Workspace) currentPath() string {
	return filepath.Join(workspace.MetaDir(), "current")
}

// CurrentContainer reads the current-container pointer. An absent pointer is
// a valid state and returns "" with no error.
func (workspace Workspace) CurrentContainer() (string, error) {
	content, err := os.ReadFile(workspace.currentPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", sfcerrors.IO(err, "read current container pointer")
	}
	return strings.TrimSpace(string(content)), nil
}

// SetCurrentContainer replaces the current-container pointer.
func (workspace Workspace) SetCurrentContainer(name string) error {
	if err := os.MkdirAll(workspace.MetaDir(), 0o750); err != nil {
		return sfcerrors.IO(err, "create metadata directory")
	}
	return fsx.WriteFileAtomic(workspace.currentPath(), []byte(name), 0o600)
}

// ClearCurrentContainer removes the pointer; clearing an absent pointer is a
// no-op.
func (workspace Workspace) ClearCurrentContainer() error {
	if err := os.Remove(workspace.currentPath()); err != nil && !os.IsNotExist(err) {
		return sfcerrors.IO(err, "remove current container pointer")
	}
	return nil
}

// ListContainers returns the sorted names of all container directories.
func (workspace Workspace) ListContainers() ([]string, error) {
	entries, err := os.ReadDir(workspace.ContainersDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sfcerrors.IO(err, "read containers directory")
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
