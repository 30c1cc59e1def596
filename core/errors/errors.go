package errors

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryNotFound      Category = "not_found"
	CategoryAlreadyExists Category = "already_exists"
	CategoryValidation    Category = "validation"
	CategoryIOFailure     Category = "io_failure"
	CategoryCommand       Category = "command_failed"
	CategoryPermission    Category = "permission_denied"
	CategoryInternal      Category = "internal_failure"
)

type classifiedError struct {
	category  Category
	code      string
	hint      string
	retryable bool
	cause     error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func Wrap(cause error, category Category, code, hint string, retryable bool) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category:  category,
		code:      code,
		hint:      hint,
		retryable: retryable,
		cause:     cause,
	}
}

// NotFound reports a missing container, snapshot, alias, or hash.
func NotFound(resource, identifier string) error {
	return &classifiedError{
		category: CategoryNotFound,
		code:     "not_found",
		cause:    fmt.Errorf("%s %q not found", resource, identifier),
	}
}

// AlreadyExists reports a duplicate container or store entry.
func AlreadyExists(resource, identifier string) error {
	return &classifiedError{
		category: CategoryAlreadyExists,
		code:     "already_exists",
		cause:    fmt.Errorf("%s %q already exists", resource, identifier),
	}
}

// Validation reports a rejected input such as a bad container name or an
// unsafe symlink target.
func Validation(field, value, reason string) error {
	return &classifiedError{
		category: CategoryValidation,
		code:     "validation_failed",
		cause:    fmt.Errorf("invalid %s %q: %s", field, value, reason),
	}
}

// IO wraps a filesystem failure with the operation that triggered it.
func IO(cause error, operation string) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category: CategoryIOFailure,
		code:     "io_failure",
		cause:    fmt.Errorf("%s: %w", operation, cause),
	}
}

// Command reports a failed external process.
func Command(command string, exitCode int, stderr string) error {
	return &classifiedError{
		category: CategoryCommand,
		code:     "command_failed",
		cause:    fmt.Errorf("command %q failed with exit code %d: %s", command, exitCode, stderr),
	}
}

// Permission reports an operation that needs elevated privileges.
func Permission(operation, required string) error {
	return &classifiedError{
		category: CategoryPermission,
		code:     "permission_denied",
		hint:     "re-run with sufficient privileges",
		cause:    fmt.Errorf("permission denied for %s: %s required", operation, required),
	}
}

// Internal wraps everything that has no narrower category.
func Internal(cause error, context string) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category: CategoryInternal,
		code:     "internal_failure",
		cause:    fmt.Errorf("%s: %w", context, cause),
	}
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.hint
	}
	return ""
}

func RetryableOf(err error) bool {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.retryable
	}
	return false
}

func IsNotFound(err error) bool {
	return CategoryOf(err) == CategoryNotFound
}

func IsAlreadyExists(err error) bool {
	return CategoryOf(err) == CategoryAlreadyExists
}
