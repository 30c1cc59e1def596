package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/gc"
)

type cleanOutput struct {
	OK               bool     `json:"ok"`
	RemovedLinks     []string `json:"removed_links,omitempty"`
	RemovedSnapshots []string `json:"removed_snapshots,omitempty"`
	errorFields
}

func runClean(arguments []string) int {
	flagSet := flag.NewFlagSet("clean", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeCleanOutput(jsonOutput, cleanOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeCleanOutput(jsonOutput, cleanOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	report, err := gc.New(ws).Clean()
	if err != nil {
		return writeCleanOutput(jsonOutput, cleanOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeCleanOutput(jsonOutput, cleanOutput{
		OK:               true,
		RemovedLinks:     report.RemovedLinks,
		RemovedSnapshots: report.RemovedSnapshots,
	}, exitOK)
}

func writeCleanOutput(jsonOutput bool, output cleanOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	if len(output.RemovedLinks) == 0 && len(output.RemovedSnapshots) == 0 {
		fmt.Println("nothing to clean")
		return exitCode
	}
	for _, link := range output.RemovedLinks {
		fmt.Printf("removed dangling link %s\n", link)
	}
	for _, snapshot := range output.RemovedSnapshots {
		fmt.Printf("removed orphan snapshot %s\n", snapshot)
	}
	return exitCode
}
