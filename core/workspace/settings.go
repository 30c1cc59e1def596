package workspace

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/fsx"
)

// Settings is the persisted workspace configuration at .sfc/workspace.toml.
type Settings struct {
	DefaultShell string   `toml:"default_shell"`
	StowEnabled  bool     `toml:"stow_enabled"`
	AutoCleanup  bool     `toml:"auto_cleanup"`
	Notes        []string `toml:"notes,omitempty"`
}

// DefaultSettings returns the settings written into a fresh workspace.
func DefaultSettings() Settings {
	shell := strings.TrimSpace(os.Getenv("SHELL"))
	if shell == "" {
		shell = "/bin/bash"
	}
	return Settings{
		DefaultShell: shell,
		StowEnabled:  true,
		AutoCleanup:  true,
	}
}

// LoadSettings reads workspace settings; a missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	// #nosec G304 -- settings path is derived from the local workspace root.
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, sfcerrors.IO(err, "read workspace settings")
	}
	settings := DefaultSettings()
	if err := toml.Unmarshal(content, &settings); err != nil {
		return Settings{}, sfcerrors.Validation("workspace settings", path, err.Error())
	}
	if strings.TrimSpace(settings.DefaultShell) == "" {
		settings.DefaultShell = DefaultSettings().DefaultShell
	}
	return settings, nil
}

// Save writes settings atomically.
func (settings Settings) Save(path string) error {
	content, err := toml.Marshal(settings)
	if err != nil {
		return sfcerrors.Internal(err, "encode workspace settings")
	}
	return fsx.WriteFileAtomic(path, content, 0o600)
}
