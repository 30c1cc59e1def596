package main

import (
	"flag"
	"fmt"
	"io"
)

type listOutput struct {
	OK         bool     `json:"ok"`
	Containers []string `json:"containers"`
	Current    string   `json:"current,omitempty"`
	errorFields
}

func runList(arguments []string) int {
	flagSet := flag.NewFlagSet("list", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeListOutput(jsonOutput, listOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeListOutput(jsonOutput, listOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	containers, err := ws.ListContainers()
	if err != nil {
		return writeListOutput(jsonOutput, listOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	current, err := ws.CurrentContainer()
	if err != nil {
		return writeListOutput(jsonOutput, listOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeListOutput(jsonOutput, listOutput{OK: true, Containers: containers, Current: current}, exitOK)
}

func writeListOutput(jsonOutput bool, output listOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	if len(output.Containers) == 0 {
		fmt.Println("no containers yet; create one with: sfc create <name>")
		return exitCode
	}
	for _, name := range output.Containers {
		marker := " "
		if name == output.Current {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return exitCode
}
