package filebased

import (
	"errors"
	"fmt"
	"strings"
)

// SourceError represents a failure reported by the file-based source.
//
// Errors compare equal under errors.Is when their codes match, so scenario
// expectations can be written against ErrorForCode(code) without knowing the
// stream or file involved.
type SourceError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Stream is the affected stream, if any.
	Stream string

	// File is the affected file URI, if any.
	File string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes source errors.
type ErrorCode string

const (
	// CodeConfigValidation indicates the connector config failed validation.
	CodeConfigValidation ErrorCode = "CONFIG_VALIDATION_ERROR"

	// CodeEmptyStream indicates no files matched a stream's globs.
	CodeEmptyStream ErrorCode = "EMPTY_STREAM"

	// CodeUndefinedParser indicates no parser is registered for a file type.
	CodeUndefinedParser ErrorCode = "UNDEFINED_PARSER"

	// CodeRecordParse indicates a file could not be parsed into records.
	CodeRecordParse ErrorCode = "RECORD_PARSE_ERROR"

	// CodeSchemaInference indicates schema inference failed.
	CodeSchemaInference ErrorCode = "SCHEMA_INFERENCE_ERROR"

	// CodeInvalidSchema indicates a user-provided input schema is invalid.
	CodeInvalidSchema ErrorCode = "INVALID_SCHEMA_ERROR"

	// CodeStopSyncPerValidationPolicy indicates a record failed the
	// "Wait for Discover" validation policy.
	CodeStopSyncPerValidationPolicy ErrorCode = "STOP_SYNC_PER_SCHEMA_VALIDATION_POLICY"

	// CodeUnknownStream indicates a configured stream is not in the config.
	CodeUnknownStream ErrorCode = "UNKNOWN_STREAM"

	// CodeInvalidFile indicates an in-memory file cannot be served.
	CodeInvalidFile ErrorCode = "INVALID_FILE"
)

var knownCodes = map[ErrorCode]bool{
	CodeConfigValidation:            true,
	CodeEmptyStream:                 true,
	CodeUndefinedParser:             true,
	CodeRecordParse:                 true,
	CodeSchemaInference:             true,
	CodeInvalidSchema:               true,
	CodeStopSyncPerValidationPolicy: true,
	CodeUnknownStream:               true,
	CodeInvalidFile:                 true,
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Stream != "" && e.File != "" {
		fmt.Fprintf(&b, " (stream=%s, file=%s)", e.Stream, e.File)
	} else if e.Stream != "" {
		fmt.Fprintf(&b, " (stream=%s)", e.Stream)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is matches any SourceError with the same code.
func (e *SourceError) Is(target error) bool {
	var t *SourceError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// ErrorForCode returns a sentinel that matches every SourceError with the
// given code under errors.Is.
func ErrorForCode(code ErrorCode) error {
	return &SourceError{Code: code, Message: "any"}
}

// KnownCode reports whether code is one of the codes this package raises.
func KnownCode(code string) bool {
	return knownCodes[ErrorCode(code)]
}

// CodeOf extracts the error code from err, or "" if err is not a SourceError.
func CodeOf(err error) ErrorCode {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func newError(code ErrorCode, stream, file, message string, cause error) *SourceError {
	return &SourceError{Code: code, Stream: stream, File: file, Message: message, Err: cause}
}
