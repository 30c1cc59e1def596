package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/lifecycle"
)

type deleteContainerResult struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

type deleteOutput struct {
	OK               bool                    `json:"ok"`
	Containers       []deleteContainerResult `json:"containers,omitempty"`
	RemovedLinks     int                     `json:"removed_links"`
	RemovedSnapshots int                     `json:"removed_snapshots"`
	errorFields
}

func runDelete(arguments []string) int {
	flagSet := flag.NewFlagSet("delete", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var force bool
	var jsonOutput bool
	flagSet.BoolVar(&force, "force", false, "delete even the current container")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeDeleteOutput(jsonOutput, deleteOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}
	names := flagSet.Args()
	if len(names) == 0 {
		return writeDeleteOutput(jsonOutput, deleteOutput{OK: false, errorFields: errorFields{Error: "at least one container name is required"}}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeDeleteOutput(jsonOutput, deleteOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	results, report, deleteErr := lifecycle.New(ws).Delete(names, force)

	output := deleteOutput{
		OK:               deleteErr == nil,
		RemovedLinks:     len(report.RemovedLinks),
		RemovedSnapshots: len(report.RemovedSnapshots),
	}
	for _, result := range results {
		item := deleteContainerResult{Name: result.Name}
		if result.Err != nil {
			item.Error = result.Err.Error()
		}
		output.Containers = append(output.Containers, item)
	}
	if deleteErr != nil {
		output.errorFields = classify(deleteErr)
		return writeDeleteOutput(jsonOutput, output, exitCodeForError(firstItemError(results, deleteErr), exitInternalFailure))
	}
	return writeDeleteOutput(jsonOutput, output, exitOK)
}

func writeDeleteOutput(jsonOutput bool, output deleteOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	for _, item := range output.Containers {
		if item.Error != "" {
			fmt.Printf("delete %s: %s\n", item.Name, item.Error)
			continue
		}
		fmt.Printf("deleted container %s\n", item.Name)
	}
	if output.Error != "" && len(output.Containers) == 0 {
		fmt.Println("error:", output.Error)
	}
	if output.RemovedSnapshots > 0 || output.RemovedLinks > 0 {
		fmt.Printf("cleanup reclaimed %d snapshots and %d links\n", output.RemovedSnapshots, output.RemovedLinks)
	}
	return exitCode
}
