package main

import (
	"flag"
	"fmt"
	"io"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/share"
	"github.com/davidahmann/sfc/core/store"
)

type shareOutput struct {
	OK      bool           `json:"ok"`
	Summary *share.Summary `json:"summary,omitempty"`
	errorFields
}

func runShare(arguments []string) int {
	flagSet := flag.NewFlagSet("share", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var snapshotPrefix string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.StringVar(&snapshotPrefix, "snapshot", "", "snapshot hash prefix (defaults to the current stable snapshot)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeShareOutput(jsonOutput, shareOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writeShareOutput(jsonOutput, shareOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	if containerName == "" {
		containerName, err = ws.CurrentContainer()
		if err != nil {
			return writeShareOutput(jsonOutput, shareOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
		}
		if containerName == "" {
			noContainer := sfcerrors.Validation("container", "", "no container selected; name one with --container")
			return writeShareOutput(jsonOutput, shareOutput{OK: false, errorFields: classify(noContainer)}, exitInvalidInput)
		}
	}

	summary, err := share.Generate(ws, store.New(ws), containerName, snapshotPrefix)
	if err != nil {
		return writeShareOutput(jsonOutput, shareOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeShareOutput(jsonOutput, shareOutput{OK: true, Summary: &summary}, exitOK)
}

func writeShareOutput(jsonOutput bool, output shareOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	rendered, err := output.Summary.RenderYAML()
	if err != nil {
		fmt.Println("error:", err)
		return exitCodeForError(err, exitInternalFailure)
	}
	fmt.Print(rendered)
	return exitCode
}
