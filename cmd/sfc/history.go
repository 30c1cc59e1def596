package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/history"
)

type historyOutput struct {
	OK        bool     `json:"ok"`
	Container string   `json:"container,omitempty"`
	Lines     []string `json:"lines"`
	errorFields
}

func runHistory(arguments []string) int {
	if len(arguments) == 0 {
		printUsage()
		return exitInvalidInput
	}
	switch arguments[0] {
	case "log":
		return runHistoryView(arguments[1:], false)
	case "graph":
		return runHistoryView(arguments[1:], true)
	default:
		printUsage()
		return exitInvalidInput
	}
}

func runHistoryView(arguments []string, graph bool) int {
	name := "log"
	if graph {
		name = "graph"
	}
	flagSet := flag.NewFlagSet("history-"+name, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "filter to one container")
	flagSet.StringVar(&containerName, "c", "", "filter to one container (shorthand)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeHistoryOutput(jsonOutput, historyOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeHistoryOutput(jsonOutput, historyOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	ledger, err := history.Load(ws.HistoryPath())
	if err != nil {
		return writeHistoryOutput(jsonOutput, historyOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}

	var lines []string
	if graph {
		lines = ledger.Graph(containerName)
	} else {
		lines = ledger.Log(containerName)
	}
	return writeHistoryOutput(jsonOutput, historyOutput{OK: true, Container: containerName, Lines: lines}, exitOK)
}

func writeHistoryOutput(jsonOutput bool, output historyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	for _, line := range output.Lines {
		fmt.Println(line)
	}
	return exitCode
}
