package main

import (
	"github.com/davidahmann/sfc/core/workspace"
)

// openWorkspace resolves the workspace root and ensures the on-disk layout
// exists. EnsureLayout is idempotent, so every command can call this without
// an explicit init first; init merely makes the step visible.
func openWorkspace() (workspace.Workspace, error) {
	ws, err := workspace.Default()
	if err != nil {
		return workspace.Workspace{}, err
	}
	if err := ws.EnsureLayout(); err != nil {
		return workspace.Workspace{}, err
	}
	return ws, nil
}
