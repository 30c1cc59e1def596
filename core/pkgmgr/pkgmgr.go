// Package pkgmgr mutates a container's declared package set and records every
// change in the history ledger. The actual installation is delegated to an
// Installer collaborator; the core only consumes its success or failure and
// the files it wrote into the container tree.
package pkgmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidahmann/sfc/core/container"
	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/history"
	"github.com/davidahmann/sfc/core/workspace"
)

// Installer provisions or removes one package below installDir.
type Installer interface {
	Install(spec container.PackageSpec, installDir string) error
	Remove(name string, installDir string) error
}

// ParseSpec splits a name[@version] argument into a PackageSpec.
func ParseSpec(raw string) (container.PackageSpec, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return container.PackageSpec{}, sfcerrors.Validation("package spec", raw, "spec cannot be empty")
	}
	name, version, _ := strings.Cut(trimmed, "@")
	if name == "" {
		return container.PackageSpec{}, sfcerrors.Validation("package spec", raw, "package name cannot be empty")
	}
	return container.PackageSpec{
		Name:    name,
		Version: version,
		Channel: "stable",
		Source:  "system",
	}, nil
}

// Manager orchestrates package mutations for one workspace.
type Manager struct {
	ws        workspace.Workspace
	installer Installer
}

// New returns a Manager installing through installer.
func New(ws workspace.Workspace, installer Installer) Manager {
	return Manager{ws: ws, installer: installer}
}

func (manager Manager) packagesDir(containerName string) string {
	return filepath.Join(manager.ws.ContainerDir(containerName), "packages")
}

// Add installs spec into the container's package directory, updates the
// persisted config, and appends an add_package (or modify_package, when the
// package was already declared) history entry. Returns the new entry hash.
func (manager Manager) Add(config *container.Config, spec container.PackageSpec) (string, error) {
	installDir := manager.packagesDir(config.Name)
	if err := os.MkdirAll(installDir, 0o750); err != nil {
		return "", sfcerrors.IO(err, "create package directory "+installDir)
	}
	if err := manager.installer.Install(spec, installDir); err != nil {
		return "", err
	}

	_, existed := config.FindPackage(spec.Name)
	config.AddPackage(spec)
	if err := config.Save(manager.ws); err != nil {
		return "", err
	}

	ledger, err := history.Load(manager.ws.HistoryPath())
	if err != nil {
		return "", err
	}
	operation := history.OpAddPackage
	if existed {
		operation = history.OpModifyPackage
	}
	message := "Install " + spec.Name
	if spec.Version != "" {
		message = fmt.Sprintf("Install %s@%s", spec.Name, spec.Version)
	}
	return ledger.AddEntry(*config, operation, message)
}

// Remove drops the named package from the config and the container tree and
// appends a remove_package entry. A package absent from the config is an
// error; a missing installed tree is not.
func (manager Manager) Remove(config *container.Config, name string) (string, error) {
	if !config.RemovePackage(name) {
		return "", sfcerrors.NotFound("package", name)
	}
	if err := manager.installer.Remove(name, manager.packagesDir(config.Name)); err != nil {
		return "", err
	}
	if err := config.Save(manager.ws); err != nil {
		return "", err
	}
	ledger, err := history.Load(manager.ws.HistoryPath())
	if err != nil {
		return "", err
	}
	return ledger.AddEntry(*config, history.OpRemovePackage, "Remove "+name)
}
