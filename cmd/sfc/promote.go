package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/lifecycle"
)

type promoteOutput struct {
	OK        bool   `json:"ok"`
	Container string `json:"container,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Message   string `json:"message,omitempty"`
	errorFields
}

func runPromote(arguments []string) int {
	flagSet := flag.NewFlagSet("promote", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writePromoteOutput(jsonOutput, promoteOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}
	tempAlias := ""
	if flagSet.NArg() > 0 {
		tempAlias = flagSet.Arg(0)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writePromoteOutput(jsonOutput, promoteOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	result, err := lifecycle.New(ws).Promote(containerName, tempAlias)
	if err != nil {
		return writePromoteOutput(jsonOutput, promoteOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writePromoteOutput(jsonOutput, promoteOutput{
		OK:        true,
		Container: result.Container,
		Alias:     result.Alias,
		Message:   result.Message,
	}, exitOK)
}

func writePromoteOutput(jsonOutput bool, output promoteOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	fmt.Println(output.Message)
	fmt.Printf("promoted %s to stable for %s\n", output.Alias, output.Container)
	return exitCode
}
