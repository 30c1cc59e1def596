package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	startedAt := time.Now()
	correlationID := newCorrelationID(arguments)
	setCurrentCorrelationID(correlationID)
	command := normalizeCommand(arguments)
	writeOperationalEventStart(command, correlationID, startedAt.UTC())
	exitCode := runDispatch(arguments)
	finishedAt := time.Now().UTC()
	writeOperationalEventEnd(command, correlationID, exitCode, time.Since(startedAt), finishedAt)
	setCurrentCorrelationID("")
	return exitCode
}

func runDispatch(arguments []string) int {
	if len(arguments) < 2 {
		fmt.Println("sfc", version)
		return exitOK
	}

	switch arguments[1] {
	case "init":
		return runInit(arguments[2:])
	case "create":
		return runCreate(arguments[2:])
	case "temp":
		return runTemp(arguments[2:])
	case "promote":
		return runPromote(arguments[2:])
	case "discard":
		return runDiscard(arguments[2:])
	case "rollback":
		return runRollback(arguments[2:])
	case "delete":
		return runDelete(arguments[2:])
	case "switch":
		return runSwitch(arguments[2:])
	case "list":
		return runList(arguments[2:])
	case "status":
		return runStatus(arguments[2:])
	case "clean":
		return runClean(arguments[2:])
	case "snapshots":
		return runSnapshots(arguments[2:])
	case "delete-snapshot":
		return runDeleteSnapshot(arguments[2:])
	case "share":
		return runShare(arguments[2:])
	case "add":
		return runAdd(arguments[2:])
	case "remove":
		return runRemove(arguments[2:])
	case "packages":
		return runPackages(arguments[2:])
	case "history":
		return runHistory(arguments[2:])
	case "version", "--version", "-v":
		fmt.Println("sfc", version)
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func normalizeCommand(arguments []string) string {
	if len(arguments) < 2 {
		return "version"
	}
	command := strings.TrimSpace(arguments[1])
	if command == "" {
		return "unknown"
	}
	switch command {
	case "--version", "-v", "version":
		return "version"
	case "history":
		if len(arguments) > 2 {
			subcommand := strings.TrimSpace(arguments[2])
			if subcommand != "" && !strings.HasPrefix(subcommand, "-") {
				return command + " " + subcommand
			}
		}
	}
	return command
}
