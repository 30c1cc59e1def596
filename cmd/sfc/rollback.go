package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/lifecycle"
)

type rollbackOutput struct {
	OK        bool   `json:"ok"`
	Container string `json:"container,omitempty"`
	Target    string `json:"target,omitempty"`
	Message   string `json:"message,omitempty"`
	errorFields
}

func runRollback(arguments []string) int {
	flagSet := flag.NewFlagSet("rollback", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeRollbackOutput(jsonOutput, rollbackOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}
	if flagSet.NArg() != 1 {
		return writeRollbackOutput(jsonOutput, rollbackOutput{OK: false, errorFields: errorFields{Error: "exactly one snapshot directory name is required"}}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeRollbackOutput(jsonOutput, rollbackOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	result, err := lifecycle.New(ws).Rollback(containerName, flagSet.Arg(0))
	if err != nil {
		return writeRollbackOutput(jsonOutput, rollbackOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeRollbackOutput(jsonOutput, rollbackOutput{
		OK:        true,
		Container: result.Container,
		Target:    result.Target,
		Message:   result.Message,
	}, exitOK)
}

func writeRollbackOutput(jsonOutput bool, output rollbackOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	fmt.Println(output.Message)
	fmt.Printf("rolled back %s to %s\n", output.Container, output.Target)
	return exitCode
}
