// Package toolchain installs language toolchains into a snapshot and records
// what was installed via marker files. Installation during a temp branch is
// best effort: a failing installer degrades to a warning at the call site and
// never invalidates the snapshot.
package toolchain

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/fsx"
	"github.com/davidahmann/sfc/core/workspace"
)

// Request names the toolchain versions to install. Empty fields are skipped.
type Request struct {
	Node string
	NPM  string
	Rust string
}

// IsEmpty reports whether the request asks for nothing.
func (request Request) IsEmpty() bool {
	return request.Node == "" && request.NPM == "" && request.Rust == ""
}

// Installer provisions toolchains into a snapshot directory.
type Installer interface {
	Install(snapshotDir string, request Request) error
}

// ExecInstaller shells out to volta and rustup, homed under the workspace's
// .sfc/toolchains tree so installs never touch the user's global state.
type ExecInstaller struct {
	ws workspace.Workspace
}

// NewExec returns an ExecInstaller over ws.
func NewExec(ws workspace.Workspace) ExecInstaller {
	return ExecInstaller{ws: ws}
}

func (installer ExecInstaller) Install(snapshotDir string, request Request) error {
	env, err := installer.toolchainEnv()
	if err != nil {
		return err
	}
	if request.Node != "" {
		if err := runTool(env, "volta", "install", "node@"+request.Node); err != nil {
			return err
		}
		if err := WriteMarker(snapshotDir, "node", request.Node); err != nil {
			return err
		}
	}
	if request.NPM != "" {
		if err := runTool(env, "volta", "install", "npm@"+request.NPM); err != nil {
			return err
		}
	}
	if request.Rust != "" {
		if err := runTool(env, "rustup", "toolchain", "install", request.Rust); err != nil {
			return err
		}
		if err := runTool(env, "rustup", "default", request.Rust); err != nil {
			return err
		}
		if err := WriteMarker(snapshotDir, "rust", request.Rust); err != nil {
			return err
		}
	}
	return nil
}

func (installer ExecInstaller) toolchainEnv() ([]string, error) {
	root := installer.ws.ToolchainsDir()
	voltaHome := filepath.Join(root, "volta")
	rustupHome := filepath.Join(root, "rustup")
	cargoHome := filepath.Join(root, "cargo")
	for _, dir := range []string{voltaHome, rustupHome, cargoHome} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, sfcerrors.IO(err, "create toolchain directory "+dir)
		}
	}
	path := filepath.Join(voltaHome, "bin") + string(os.PathListSeparator) +
		filepath.Join(cargoHome, "bin") + string(os.PathListSeparator) +
		os.Getenv("PATH")
	env := append(os.Environ(),
		"VOLTA_HOME="+voltaHome,
		"RUSTUP_HOME="+rustupHome,
		"CARGO_HOME="+cargoHome,
		"PATH="+path,
	)
	return env, nil
}

func runTool(env []string, name string, args ...string) error {
	command := exec.Command(name, args...)
	command.Env = env
	output, err := command.CombinedOutput()
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return sfcerrors.Command(name+" "+strings.Join(args, " "), exitCode, strings.TrimSpace(string(output)))
	}
	return nil
}

// WriteMarker records an installed toolchain version inside the snapshot as
// <tool>_version, the marker core/store reads back for share summaries.
func WriteMarker(snapshotDir, tool, version string) error {
	name := fmt.Sprintf("%s_version", tool)
	return fsx.WriteFileAtomic(filepath.Join(snapshotDir, name), []byte(version+"\n"), 0o600)
}
