package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/workspace"
)

type initOutput struct {
	OK   bool   `json:"ok"`
	Root string `json:"root,omitempty"`
	errorFields
}

func runInit(arguments []string) int {
	flagSet := flag.NewFlagSet("init", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeInitOutput(jsonOutput, initOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := workspace.Default()
	if err != nil {
		return writeInitOutput(jsonOutput, initOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	if err := ws.EnsureLayout(); err != nil {
		return writeInitOutput(jsonOutput, initOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeInitOutput(jsonOutput, initOutput{OK: true, Root: ws.Root}, exitOK)
}

func writeInitOutput(jsonOutput bool, output initOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	fmt.Printf("workspace ready at %s\n", output.Root)
	return exitCode
}
