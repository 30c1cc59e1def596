package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/sfc/core/container"
	sfcerrors "github.com/davidahmann/sfc/core/errors"
	"github.com/davidahmann/sfc/core/pkgmgr"
	"github.com/davidahmann/sfc/core/workspace"
)

type packageItem struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Channel string `json:"channel,omitempty"`
	Source  string `json:"source,omitempty"`
	Error   string `json:"error,omitempty"`
	Hash    string `json:"hash,omitempty"`
}

type packagesOutput struct {
	OK        bool          `json:"ok"`
	Container string        `json:"container,omitempty"`
	Packages  []packageItem `json:"packages,omitempty"`
	errorFields
}

func resolvePackageContainer(ws workspace.Workspace, containerName string) (string, error) {
	if containerName != "" {
		return containerName, nil
	}
	current, err := ws.CurrentContainer()
	if err != nil {
		return "", err
	}
	if current == "" {
		return "", sfcerrors.Validation("container", "", "no container selected; name one with --container")
	}
	return current, nil
}

func newPackageManager(ws workspace.Workspace) (pkgmgr.Manager, error) {
	installer, ok := pkgmgr.DetectSystem()
	if !ok {
		return pkgmgr.Manager{}, sfcerrors.Command("package manager detection", -1,
			"no supported package manager found (brew, apt-get, dnf, yum, pacman)")
	}
	return pkgmgr.New(ws, installer), nil
}

func runAdd(arguments []string) int {
	flagSet := flag.NewFlagSet("add", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}
	if flagSet.NArg() == 0 {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: errorFields{Error: "at least one package spec is required"}}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	containerName, err = resolvePackageContainer(ws, containerName)
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInvalidInput))
	}
	manager, err := newPackageManager(ws)
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitCommandFailed))
	}
	config, err := container.Load(ws, containerName)
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}

	output := packagesOutput{OK: true, Container: containerName}
	var firstErr error
	for _, raw := range flagSet.Args() {
		spec, parseErr := pkgmgr.ParseSpec(raw)
		if parseErr != nil {
			output.Packages = append(output.Packages, packageItem{Name: raw, Error: parseErr.Error()})
			if firstErr == nil {
				firstErr = parseErr
			}
			continue
		}
		hash, addErr := manager.Add(&config, spec)
		item := packageItem{Name: spec.Name, Version: spec.Version, Hash: hash}
		if addErr != nil {
			item.Error = addErr.Error()
			if firstErr == nil {
				firstErr = addErr
			}
		}
		output.Packages = append(output.Packages, item)
	}
	if firstErr != nil {
		output.OK = false
		output.errorFields = classify(firstErr)
		return writePackagesOutput(jsonOutput, output, exitCodeForError(firstErr, exitInternalFailure))
	}
	return writePackagesOutput(jsonOutput, output, exitOK)
}

func runRemove(arguments []string) int {
	flagSet := flag.NewFlagSet("remove", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}
	if flagSet.NArg() == 0 {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: errorFields{Error: "at least one package name is required"}}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	containerName, err = resolvePackageContainer(ws, containerName)
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInvalidInput))
	}
	manager, err := newPackageManager(ws)
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitCommandFailed))
	}
	config, err := container.Load(ws, containerName)
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}

	output := packagesOutput{OK: true, Container: containerName}
	var firstErr error
	for _, name := range flagSet.Args() {
		hash, removeErr := manager.Remove(&config, name)
		item := packageItem{Name: name, Hash: hash}
		if removeErr != nil {
			item.Error = removeErr.Error()
			if firstErr == nil {
				firstErr = removeErr
			}
		}
		output.Packages = append(output.Packages, item)
	}
	if firstErr != nil {
		output.OK = false
		output.errorFields = classify(firstErr)
		return writePackagesOutput(jsonOutput, output, exitCodeForError(firstErr, exitInternalFailure))
	}
	return writePackagesOutput(jsonOutput, output, exitOK)
}

func runPackages(arguments []string) int {
	flagSet := flag.NewFlagSet("packages", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var containerName string
	var jsonOutput bool
	flagSet.StringVar(&containerName, "container", "", "container name (defaults to the current container)")
	flagSet.StringVar(&containerName, "c", "", "container name (shorthand)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	if err := flagSet.Parse(arguments); err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitInvalidInput)
	}

	ws, err := openWorkspace()
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}
	containerName, err = resolvePackageContainer(ws, containerName)
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInvalidInput))
	}
	config, err := container.Load(ws, containerName)
	if err != nil {
		return writePackagesOutput(jsonOutput, packagesOutput{OK: false, errorFields: classify(err)}, exitCodeForError(err, exitInternalFailure))
	}

	output := packagesOutput{OK: true, Container: containerName}
	for _, spec := range config.Packages {
		output.Packages = append(output.Packages, packageItem{
			Name:    spec.Name,
			Version: spec.Version,
			Channel: spec.Channel,
			Source:  spec.Source,
		})
	}
	return writePackagesOutput(jsonOutput, output, exitOK)
}

func writePackagesOutput(jsonOutput bool, output packagesOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" && len(output.Packages) == 0 {
		fmt.Println("error:", output.Error)
		return exitCode
	}
	if len(output.Packages) == 0 {
		fmt.Printf("no packages in container %s\n", output.Container)
		return exitCode
	}
	for _, item := range output.Packages {
		if item.Error != "" {
			fmt.Printf("%s: %s\n", item.Name, item.Error)
			continue
		}
		line := item.Name
		if item.Version != "" {
			line += "@" + item.Version
		}
		if item.Channel != "" {
			line += " (" + item.Channel + ")"
		}
		fmt.Println(line)
	}
	return exitCode
}
