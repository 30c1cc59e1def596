package pkgmgr

import (
	"os/exec"
	"strings"

	"github.com/davidahmann/sfc/core/container"
	sfcerrors "github.com/davidahmann/sfc/core/errors"
)

// SystemInstaller shells out to the host's package manager, probed once at
// construction in preference order: brew, apt-get, dnf, yum, pacman.
type SystemInstaller struct {
	manager string
}

// DetectSystem probes for a usable system package manager. The boolean is
// false when none of the known managers is on PATH.
func DetectSystem() (SystemInstaller, bool) {
	for _, candidate := range []string{"brew", "apt-get", "dnf", "yum", "pacman"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return SystemInstaller{manager: candidate}, true
		}
	}
	return SystemInstaller{}, false
}

// Manager returns the detected package-manager binary name.
func (installer SystemInstaller) Manager() string {
	return installer.manager
}

func (installer SystemInstaller) Install(spec container.PackageSpec, installDir string) error {
	// Snapshot-local install trees are a brew-only feature; the other
	// managers install system-wide and the container records the intent.
	_ = installDir
	name := spec.Name
	if spec.Version != "" && installer.manager == "brew" {
		name = spec.Name + "@" + spec.Version
	}
	var args []string
	switch installer.manager {
	case "brew":
		args = []string{"install", name}
	case "apt-get":
		args = []string{"install", "-y", name}
	case "dnf", "yum":
		args = []string{"install", "-y", name}
	case "pacman":
		args = []string{"-Sy", "--noconfirm", name}
	default:
		return sfcerrors.Validation("package manager", installer.manager, "no supported package manager detected")
	}
	return runManager(installer.manager, args)
}

func (installer SystemInstaller) Remove(name string, installDir string) error {
	_ = installDir
	var args []string
	switch installer.manager {
	case "brew":
		args = []string{"uninstall", name}
	case "apt-get":
		args = []string{"remove", "-y", name}
	case "dnf", "yum":
		args = []string{"remove", "-y", name}
	case "pacman":
		args = []string{"-R", "--noconfirm", name}
	default:
		return sfcerrors.Validation("package manager", installer.manager, "no supported package manager detected")
	}
	return runManager(installer.manager, args)
}

func runManager(manager string, args []string) error {
	command := exec.Command(manager, args...)
	output, err := command.CombinedOutput()
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return sfcerrors.Command(manager+" "+strings.Join(args, " "), exitCode, strings.TrimSpace(string(output)))
	}
	return nil
}
