package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/hashx"
	"github.com/davidahmann/sfc/core/linker"
	"github.com/davidahmann/sfc/core/store"
	"github.com/davidahmann/sfc/core/workspace"
)

type snapshotItem struct {
	Hash        string            `json:"hash"`
	Directory   string            `json:"directory"`
	ModifiedAt  string            `json:"modified_at"`
	Description string            `json:"description"`
	Active      bool              `json:"active"`
	Toolchains  map[string]string `json:"toolchains,omitempty"`
}

type snapshotsOutput struct {
	OK        bool           `json:"ok"`
	Container string         `json:"container,omitempty"`
	Snapshots []snapshotItem `json:"snapshots"`
	errorFields
}

func runSnapshots(arguments []string) int {
	flagSet := flag.NewFlagSet("snapshots", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeSnapshotsOutput(jsonOutput, snapshotsOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeSnapshotsOutput(jsonOutput, snapshotsOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	if containerName == "" {
		containerName, err = ws.CurrentContainer()
		if err != nil {
			return writeSnapshotsOutput(jsonOutput, snapshotsOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
		}
		if containerName == "" {
			noContainer := sfcerrors.Validation("container", "", "no container selected; name one with --container")
			return writeSnapshotsOutput(jsonOutput, snapshotsOutput{OK: false, errorFields: classify(noContainer)}, exitInvalidInput)
		}
	}

	infos, err := store.New(ws).ListContainerSnapshots(containerName)
	if err != nil {
		return writeSnapshotsOutput(jsonOutput, snapshotsOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	output := snapshotsOutput{OK: true, Container: containerName, Snapshots: make([]snapshotItem, 0, len(infos))}
	for _, info := range infos {
		output.Snapshots = append(output.Snapshots, snapshotItem{
			Hash:        hashx.ShortHash(info.Hash),
			Directory:   filepath.Base(info.Directory),
			ModifiedAt:  info.ModifiedAt.Format("2006-01-02 15:04:05"),
			Description: info.Description,
			Active:      info.IsActive,
			Toolchains:  info.Toolchains,
		})
	}
	return writeSnapshotsOutput(jsonOutput, output, exitOK)
}

func writeSnapshotsOutput(jsonOutput bool, output snapshotsOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	if len(output.Snapshots) == 0 {
		fmt.Printf("no snapshots for container %s\n", output.Container)
		return exitCode
	}
	for _, item := range output.Snapshots {
		marker := " "
		if item.Active {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s %s %s (%s)", marker, item.Hash, item.ModifiedAt, item.Directory, item.Description)
		if len(item.Toolchains) > 0 {
			pairs := make([]string, 0, len(item.Toolchains))
			for tool, toolVersion := range item.Toolchains {
				pairs = append(pairs, tool+"@"+toolVersion)
			}
			line += " [" + strings.Join(pairs, " ") + "]"
		}
		fmt.Println(line)
	}
	return exitCode
}

type deleteSnapshotOutput struct {
	OK   bool   `json:"ok"`
	Hash string `json:"hash,omitempty"`
	errorFields
}

func runDeleteSnapshot(arguments []string) int {
	flagSet := flag.NewFlagSet("delete-snapshot", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var force bool
	var jsonOutput bool
	flagSet.BoolVar(&force, "force", false, "delete even the active stable snapshot")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeDeleteSnapshotOutput(jsonOutput, deleteSnapshotOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}
	if flagSet.NArg() != 1 {
		return writeDeleteSnapshotOutput(jsonOutput, deleteSnapshotOutput{OK: false, errorFields: errorFields{Error: "exactly one snapshot hash is required"}}, exitInvalidInput)
	}
	prefix := flagSet.Arg(0)

	ws, err := openWorkspace()
	if err != nil {
		return writeDeleteSnapshotOutput(jsonOutput, deleteSnapshotOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	snapshots := store.New(ws)

	if !force {
		if active, activeErr := snapshotIsActiveStable(ws, snapshots, prefix); activeErr == nil && active {
			refused := sfcerrors.Validation("hash", prefix,
				"snapshot is an active stable snapshot; promote or rollback first, or force the deletion")
			return writeDeleteSnapshotOutput(jsonOutput, deleteSnapshotOutput{OK: false, errorFields: classify(refused)}, exitInvalidInput)
		}
	}
	if err := snapshots.DeleteSnapshot(prefix); err != nil {
		return writeDeleteSnapshotOutput(jsonOutput, deleteSnapshotOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeDeleteSnapshotOutput(jsonOutput, deleteSnapshotOutput{OK: true, Hash: prefix}, exitOK)
}

// snapshotIsActiveStable reports whether the snapshot matching prefix is the
// target of any container's stable alias.
func snapshotIsActiveStable(ws workspace.Workspace, snapshots store.Store, prefix string) (bool, error) {
	dir, err := snapshots.FindSnapshotByHash(prefix)
	if err != nil {
		return false, err
	}
	entries, err := os.ReadDir(ws.LinksDir())
	if err != nil {
		return false, sfcerrors.IO(err, "read links directory")
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), "-stable") {
			continue
		}
		resolved, err := linker.ResolveSymlink(filepath.Join(ws.LinksDir(), entry.Name()))
		if err != nil {
			continue
		}
		if filepath.Base(resolved) == filepath.Base(dir) {
			return true, nil
		}
	}
	return false, nil
}

func writeDeleteSnapshotOutput(jsonOutput bool, output deleteSnapshotOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	fmt.Printf("deleted snapshot %s\n", output.Hash)
	return exitCode
}
