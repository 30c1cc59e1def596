package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/davidahmann/sfc/core/container"
	"github.com/davidahmann/sfc/core/hashx"
	"github.com/davidahmann/sfc/core/linker"
)

type statusOutput struct {
	OK          bool              `json:"ok"`
	Container   string            `json:"container,omitempty"`
	StableHash  string            `json:"stable_hash,omitempty"`
	StableDir   string            `json:"stable_dir,omitempty"`
	TempAlias   string            `json:"temp_alias,omitempty"`
	Packages    int               `json:"packages"`
	Toolchains  map[string]string `json:"toolchains,omitempty"`
	Initialized bool              `json:"initialized"`
	errorFields
}

func runStatus(arguments []string) int {
	flagSet := flag.NewFlagSet("status", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeStatusOutput(jsonOutput, statusOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeStatusOutput(jsonOutput, statusOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	output := statusOutput{OK: true, Initialized: ws.IsInitialized()}

	current, err := ws.CurrentContainer()
	if err != nil {
		return writeStatusOutput(jsonOutput, statusOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	if current == "" {
		return writeStatusOutput(jsonOutput, output, exitOK)
	}
	output.Container = current

	config, err := container.Load(ws, current)
	if err != nil {
		return writeStatusOutput(jsonOutput, statusOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	output.Packages = len(config.Packages)
	if len(config.Toolchains) > 0 {
		output.Toolchains = config.Toolchains
	}

	if stableDir, err := linker.ResolveSymlink(filepath.Join(ws.LinksDir(), current+"-stable")); err == nil {
		output.StableDir = filepath.Base(stableDir)
		if hash, hashErr := hashx.ComputeSnapshotHash(stableDir); hashErr == nil {
			output.StableHash = hashx.ShortHash(hash)
		}
	}
	if tempAlias, err := linker.LatestTempAlias(ws, current); err == nil {
		output.TempAlias = tempAlias
	}
	return writeStatusOutput(jsonOutput, output, exitOK)
}

func writeStatusOutput(jsonOutput bool, output statusOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	if output.Container == "" {
		fmt.Println("no container selected")
		return exitCode
	}
	fmt.Printf("container: %s\n", output.Container)
	if output.StableHash != "" {
		fmt.Printf("stable: %s (%s)\n", output.StableHash, output.StableDir)
	}
	if output.TempAlias != "" {
		fmt.Printf("temp: %s\n", output.TempAlias)
	}
	fmt.Printf("packages: %d\n", output.Packages)
	if len(output.Toolchains) > 0 {
		pairs := make([]string, 0, len(output.Toolchains))
		for tool, toolVersion := range output.Toolchains {
			pairs = append(pairs, tool+"@"+toolVersion)
		}
		fmt.Printf("toolchains: %s\n", strings.Join(pairs, " "))
	}
	return exitCode
}
