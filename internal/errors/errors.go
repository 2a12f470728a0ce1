package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnparsableSource indicates source text is not valid Python syntax
	UnparsableSource ErrorCode = "UNPARSABLE_SOURCE"
	// UnreadableFile indicates a missing file, permission error or decode failure
	UnreadableFile ErrorCode = "UNREADABLE_FILE"
	// MalformedAnnotation indicates an annotation that could not be rendered
	MalformedAnnotation ErrorCode = "MALFORMED_ANNOTATION"
	// ConfigInvalid indicates a configuration value failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// GenerationFailed indicates the docstring generator could not produce content
	GenerationFailed ErrorCode = "GENERATION_FAILED"
	// InsertionFailed indicates generated text could not be spliced into a file
	InsertionFailed ErrorCode = "INSERTION_FAILED"
	// StorageFailed indicates the history database could not be used
	StorageFailed ErrorCode = "STORAGE_FAILED"
	// AnalyzerUnavailable indicates the binary was built without tree-sitter
	AnalyzerUnavailable ErrorCode = "ANALYZER_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixAction represents a suggested follow-up for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
}

// Error is a doccov error with a stable code, message and optional cause
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the suggested fixes registered for code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new Error without a cause using a format string
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Is reports whether err is an *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	AnalyzerUnavailable: {
		{
			Command:     "CGO_ENABLED=1 go build ./cmd/doccov",
			Description: "Rebuild with cgo so the tree-sitter parser is linked in",
		},
	},
	ConfigInvalid: {
		{
			Command:     "doccov config show",
			Description: "Inspect the effective configuration",
		},
	},
	GenerationFailed: {
		{
			Command:     "doccov generate --mode placeholder",
			Description: "Fall back to the deterministic placeholder generator",
		},
	},
	StorageFailed: {
		{
			Command:     "rm .doccov/doccov.db",
			Description: "Remove the history database; it is recreated on the next run",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
