package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/lifecycle"
)

type createContainerResult struct {
	Name  string `json:"name"`
	Hash  string `json:"hash,omitempty"`
	Error string `json:"error,omitempty"`
}

type createOutput struct {
	OK         bool                    `json:"ok"`
	Containers []createContainerResult `json:"containers,omitempty"`
	errorFields
}

func runCreate(arguments []string) int {
	flagSet := flag.NewFlagSet("create", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var fromHash string
	var jsonOutput bool
	flagSet.StringVar(&fromHash, "from", "", "snapshot hash to recreate the stable snapshot from")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeCreateOutput(jsonOutput, createOutput{errorFields: classify(err), OK: false}, exitInvalidInput)
	}
	names := flagSet.Args()
	if len(names) == 0 {
		return writeCreateOutput(jsonOutput, createOutput{OK: false, errorFields: errorFields{Error: "at least one container name is required"}}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeCreateOutput(jsonOutput, createOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	manager := lifecycle.New(ws)
	results, createErr := manager.Create(names, fromHash)

	output := createOutput{OK: createErr == nil}
	for _, result := range results {
		item := createContainerResult{Name: result.Name, Hash: result.Hash}
		if result.Err != nil {
			item.Error = result.Err.Error()
		}
		output.Containers = append(output.Containers, item)
	}
	if createErr != nil {
		output.errorFields = classify(createErr)
		return writeCreateOutput(jsonOutput, output, exitCodeForError(firstItemError(results, createErr), exitInternalFailure))
	}
	return writeCreateOutput(jsonOutput, output, exitOK)
}

// firstItemError surfaces the first per-container failure so the exit code
// reflects what actually went wrong rather than the batch summary.
func firstItemError(results []lifecycle.Result, fallback error) error {
	for _, result := range results {
		if result.Err != nil {
			return result.Err
		}
	}
	return fallback
}

func writeCreateOutput(jsonOutput bool, output createOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	for _, item := range output.Containers {
		if item.Error != "" {
			fmt.Printf("create %s: %s\n", item.Name, item.Error)
			continue
		}
		fmt.Printf("created container %s\n", item.Name)
	}
	if output.Error != "" && len(output.Containers) == 0 {
		fmt.Println("error:", output.Error)
	}
	return exitCode
}
