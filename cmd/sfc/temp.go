package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/lifecycle"
	"github.com/davidahmann/sfc/core/toolchain"
)

type tempOutput struct {
	OK        bool   `json:"ok"`
	Container string `json:"container,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Directory string `json:"directory,omitempty"`
	Warning   string `json:"warning,omitempty"`
	errorFields
}

func runTemp(arguments []string) int {
	flagSet := flag.NewFlagSet("temp", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var nodeVersion string
	var npmVersion string
	var rustVersion string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.StringVar(&nodeVersion, "node", "", "node version to install into the temp snapshot")
	flagSet.StringVar(&npmVersion, "npm", "", "npm version to install into the temp snapshot")
	flagSet.StringVar(&rustVersion, "rust", "", "rust toolchain to install into the temp snapshot")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeTempOutput(jsonOutput, tempOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeTempOutput(jsonOutput, tempOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	manager := lifecycle.New(ws)
	result, err := manager.Temp(containerName, toolchain.Request{
		Node: nodeVersion,
		NPM:  npmVersion,
		Rust: rustVersion,
	})
	if err != nil {
		return writeTempOutput(jsonOutput, tempOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeTempOutput(jsonOutput, tempOutput{
		OK:        true,
		Container: result.Container,
		Alias:     result.Alias,
		Directory: result.Directory,
		Warning:   result.Warning,
	}, exitOK)
}

func writeTempOutput(jsonOutput bool, output tempOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	fmt.Printf("created temp snapshot %s\n", output.Alias)
	if output.Warning != "" {
		fmt.Println("warning:", output.Warning)
	}
	return exitCode
}
