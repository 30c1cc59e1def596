package main

import (
	"encoding/json"
	"fmt"
	"strings"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
)

const (
	exitOK               = 0
	exitInternalFailure  = 1
	exitInvalidInput     = 2
	exitNotFound         = 3
	exitAlreadyExists    = 4
	exitCommandFailed    = 5
	exitPermissionDenied = 6
)

func writeJSONOutput(output any, exitCode int) int {
	encoded, err := marshalOutputWithErrorEnvelope(output, exitCode)
	if err != nil {
		fmt.Println(`{"ok":false,"error":"failed to encode output","error_code":"encode_failed","error_category":"internal_failure","retryable":false}`)
		return exitInternalFailure
	}
	fmt.Println(string(encoded))
	return exitCode
}

func marshalOutputWithErrorEnvelope(output any, exitCode int) ([]byte, error) {
	encoded, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(asString(result["correlation_id"])) == "" {
		if correlationID := currentCorrelationID(); correlationID != "" {
			result["correlation_id"] = correlationID
		}
	}
	errorText := strings.TrimSpace(asString(result["error"]))
	if errorText == "" {
		return json.Marshal(result)
	}
	if strings.TrimSpace(asString(result["error_code"])) == "" {
		result["error_code"] = defaultErrorCode(exitCode)
	}
	if strings.TrimSpace(asString(result["error_category"])) == "" {
		result["error_category"] = string(defaultErrorCategory(exitCode))
	}
	if _, exists := result["retryable"]; !exists {
		result["retryable"] = false
	}
	return json.Marshal(result)
}

// errorFields maps a classified error onto the JSON envelope fields shared
// by every command output struct.
type errorFields struct {
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorCategory string `json:"error_category,omitempty"`
	Hint          string `json:"hint,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}

func classify(err error) errorFields {
	if err == nil {
		return errorFields{}
	}
	return errorFields{
		Error:         err.Error(),
		ErrorCode:     sfcerrors.CodeOf(err),
		ErrorCategory: string(sfcerrors.CategoryOf(err)),
		Hint:          sfcerrors.HintOf(err),
		Retryable:     sfcerrors.RetryableOf(err),
	}
}

func exitCodeForError(err error, fallbackExit int) int {
	if err == nil {
		return exitOK
	}
	switch sfcerrors.CategoryOf(err) {
	case sfcerrors.CategoryNotFound:
		return exitNotFound
	case sfcerrors.CategoryAlreadyExists:
		return exitAlreadyExists
	case sfcerrors.CategoryValidation:
		return exitInvalidInput
	case sfcerrors.CategoryCommand:
		return exitCommandFailed
	case sfcerrors.CategoryPermission:
		return exitPermissionDenied
	case sfcerrors.CategoryIOFailure, sfcerrors.CategoryInternal:
		return exitInternalFailure
	}
	return fallbackExit
}

func defaultErrorCategory(exitCode int) sfcerrors.Category {
	switch exitCode {
	case exitInvalidInput:
		return sfcerrors.CategoryValidation
	case exitNotFound:
		return sfcerrors.CategoryNotFound
	case exitAlreadyExists:
		return sfcerrors.CategoryAlreadyExists
	case exitCommandFailed:
		return sfcerrors.CategoryCommand
	case exitPermissionDenied:
		return sfcerrors.CategoryPermission
	default:
		return sfcerrors.CategoryInternal
	}
}

func defaultErrorCode(exitCode int) string {
	switch exitCode {
	case exitInvalidInput:
		return "invalid_input"
	case exitNotFound:
		return "not_found"
	case exitAlreadyExists:
		return "already_exists"
	case exitCommandFailed:
		return "command_failed"
	case exitPermissionDenied:
		return "permission_denied"
	default:
		return "internal_failure"
	}
}

func asString(value any) string {
	text, _ := value.(string)
	return text
}
