package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/workspace"
)

type switchOutput struct {
	OK        bool   `json:"ok"`
	Container string `json:"container,omitempty"`
	errorFields
}

func runSwitch(arguments []string) int {
	flagSet := flag.NewFlagSet("switch", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var enter bool
	var jsonOutput bool
	flagSet.BoolVar(&enter, "enter", false, "spawn a shell inside the container after switching")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writeSwitchOutput(jsonOutput, switchOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}
	if flagSet.NArg() != 1 {
		return writeSwitchOutput(jsonOutput, switchOutput{OK: false, errorFields: errorFields{Error: "exactly one container name is required"}}, exitInvalidInput)
	}
	name := flagSet.Arg(0)

	ws, err := openWorkspace()
	if err != nil {
		return writeSwitchOutput(jsonOutput, switchOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	containers, err := ws.ListContainers()
	if err != nil {
		return writeSwitchOutput(jsonOutput, switchOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	if !containsString(containers, name) {
		notFound := sfcerrors.NotFound("container", name)
		return writeSwitchOutput(jsonOutput, switchOutput{OK: false, errorFields: classify(notFound)}, exitNotFound)
	}
	if err := ws.SetCurrentContainer(name); err != nil {
		return writeSwitchOutput(jsonOutput, switchOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}

	exitCode := writeSwitchOutput(jsonOutput, switchOutput{OK: true, Container: name}, exitOK)
	if enter {
		if err := enterContainerShell(ws, name); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return exitCodeForError(err, exitCommandFailed)
		}
	}
	return exitCode
}

// enterContainerShell spawns the configured shell with the container
// directory as the working directory. The shell inherits SFC_CONTAINER and
// SFC_WORKSPACE so prompts and scripts can see where they run.
func enterContainerShell(ws workspace.Workspace, name string) error {
	settings, err := workspace.LoadSettings(ws.SettingsPath())
	if err != nil {
		return err
	}
	shell := settings.DefaultShell
	if shell == "" {
		shell = "/bin/bash"
	}
	command := exec.Command(shell) // #nosec G204 -- shell comes from the user's own settings.
	command.Dir = ws.ContainerDir(name)
	command.Stdin = os.Stdin
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	command.Env = append(os.Environ(),
		"SFC_CONTAINER="+name,
		"SFC_WORKSPACE="+ws.Root,
	)
	if err := command.Run(); err != nil {
		return sfcerrors.Command(shell, exitCodeOf(err), "")
	}
	return nil
}

func exitCodeOf(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func containsString(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}

func writeSwitchOutput(jsonOutput bool, output switchOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	fmt.Printf("switched to container %s\n", output.Container)
	return exitCode
}
