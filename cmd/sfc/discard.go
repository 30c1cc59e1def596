package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/lifecycle"
)

type discardOutput struct {
	OK    bool   `json:"ok"`
	Alias string `json:"alias,omitempty"`
	errorFields
}

func runDiscard(arguments []string) int {
	flagSet := flag.NewFlagSet("discard", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeDiscardOutput(jsonOutput, discardOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}
	tempAlias := ""
	if flagSet.NArg() > 0 {
		tempAlias = flagSet.Arg(0)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeDiscardOutput(jsonOutput, discardOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	alias, err := lifecycle.New(ws).Discard(containerName, tempAlias)
	if err != nil {
		return writeDiscardOutput(jsonOutput, discardOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeDiscardOutput(jsonOutput, discardOutput{OK: true, Alias: alias}, exitOK)
}

func writeDiscardOutput(jsonOutput bool, output discardOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	fmt.Printf("discarded %s\n", output.Alias)
	return exitCode
}
