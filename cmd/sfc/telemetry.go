package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davidahmann/sfc/core/fsx"
)

// operationalEvent is one line of the optional JSONL telemetry stream.
// Emission is opt-in via SFC_OPERATIONAL_LOG and never fails a command.
type operationalEvent struct {
	SchemaID        string `json:"schema_id"`
	SchemaVersion   string `json:"schema_version"`
	CreatedAt       string `json:"created_at"`
	ProducerVersion string `json:"producer_version"`
	Command         string `json:"command"`
	CorrelationID   string `json:"correlation_id"`
	Phase           string `json:"phase"`
	ExitCode        int    `json:"exit_code"`
	ErrorCategory   string `json:"error_category"`
	ElapsedMS       int64  `json:"elapsed_ms"`
}

func writeOperationalEventStart(command, correlationID string, now time.Time) {
	appendOperationalEvent(operationalEvent{
		SchemaID:        "sfc.telemetry.operational",
		SchemaVersion:   "1.0.0",
		CreatedAt:       now.Format(time.RFC3339Nano),
		ProducerVersion: version,
		Command:         command,
		CorrelationID:   correlationID,
		Phase:           "start",
		ErrorCategory:   "none",
	})
}

func writeOperationalEventEnd(command, correlationID string, exitCode int, elapsed time.Duration, now time.Time) {
	category := "none"
	if exitCode != exitOK {
		category = string(defaultErrorCategory(exitCode))
	}
	elapsedMS := elapsed.Milliseconds()
	if elapsedMS < 0 {
		elapsedMS = 0
	}
	appendOperationalEvent(operationalEvent{
		SchemaID:        "sfc.telemetry.operational",
		SchemaVersion:   "1.0.0",
		CreatedAt:       now.Format(time.RFC3339Nano),
		ProducerVersion: version,
		Command:         command,
		CorrelationID:   correlationID,
		Phase:           "end",
		ExitCode:        exitCode,
		ErrorCategory:   category,
		ElapsedMS:       elapsedMS,
	})
}

func appendOperationalEvent(event operationalEvent) {
	path := strings.TrimSpace(os.Getenv("SFC_OPERATIONAL_LOG"))
	if path == "" {
		return
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		reportTelemetryWriteFailure(err)
		return
	}
	if err := fsx.AppendLineLocked(path, encoded, 0o600); err != nil {
		reportTelemetryWriteFailure(err)
	}
}

func reportTelemetryWriteFailure(err error) {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("SFC_TELEMETRY_WARN")), "off") {
		return
	}
	fmt.Fprintf(os.Stderr, "sfc warning: telemetry write failed: %v\n", err)
}
