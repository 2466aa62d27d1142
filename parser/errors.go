package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes reported by SyntaxError.
const (
	// ErrCodeMalformedField indicates the expected field name is absent or out of order
	ErrCodeMalformedField = "MALFORMED_FIELD"

	// ErrCodeMalformedSeparator indicates the colon after a field name is missing
	ErrCodeMalformedSeparator = "MALFORMED_SEPARATOR"

	// ErrCodeMalformedValue indicates a value did not match its decoder or its line was not terminated
	ErrCodeMalformedValue = "MALFORMED_VALUE"

	// ErrCodeMalformedRecordBoundary indicates a missing or extra blank line, or trailing content
	ErrCodeMalformedRecordBoundary = "MALFORMED_RECORD_BOUNDARY"

	// ErrCodeEmptyInput indicates the input holds no records
	ErrCodeEmptyInput = "EMPTY_INPUT"
)

// Sentinel errors, one per code. errors.Is matches a SyntaxError against the
// sentinel of its code.
var (
	ErrMalformedField          = errors.New("malformed field")
	ErrMalformedSeparator      = errors.New("malformed separator")
	ErrMalformedValue          = errors.New("malformed value")
	ErrMalformedRecordBoundary = errors.New("malformed record boundary")
	ErrEmptyInput              = errors.New("empty input")
)

var sentinels = map[string]error{
	ErrCodeMalformedField:          ErrMalformedField,
	ErrCodeMalformedSeparator:      ErrMalformedSeparator,
	ErrCodeMalformedValue:          ErrMalformedValue,
	ErrCodeMalformedRecordBoundary: ErrMalformedRecordBoundary,
	ErrCodeEmptyInput:              ErrEmptyInput,
}

// SyntaxError reports the first point where the input stopped matching the
// grammar. Line and Column are 1-based; Column counts bytes.
type SyntaxError struct {
	// Code is one of the ErrCode constants
	Code string

	// Field is the field being parsed, empty for record boundary and empty input errors
	Field string

	// Found is the field name actually present on the line, set for malformed field errors
	Found string

	// Record is the zero-based index of the record being parsed
	Record int

	// Offset is the byte offset into the input
	Offset int

	Line   int
	Column int

	// Message is a human-readable description
	Message string

	// Cause is an underlying decoding error, such as a strconv range error
	Cause error
}

// WithCause attaches an underlying error and returns the same instance.
func (e *SyntaxError) WithCause(err error) *SyntaxError {
	e.Cause = err
	return e
}

// WithFound records the field name found on the offending line.
func (e *SyntaxError) WithFound(found string) *SyntaxError {
	e.Found = found
	return e
}

// Error formats the error as "line L, column C: record R: field "F" [CODE]: message: cause".
func (e *SyntaxError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("line %d, column %d", e.Line, e.Column))
	parts = append(parts, fmt.Sprintf("record %d", e.Record))
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field %q [%s]", e.Field, e.Code))
	} else {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// Is matches another *SyntaxError with the same Code (and Field, when the
// target sets one), or the sentinel error for e.Code.
func (e *SyntaxError) Is(target error) bool {
	if t, ok := target.(*SyntaxError); ok {
		return e.Code == t.Code && (t.Field == "" || e.Field == t.Field)
	}
	sentinel, ok := sentinels[e.Code]
	return ok && sentinel == target
}

// Details returns the error position and context as key-value pairs,
// suitable for structured logging and health reports.
func (e *SyntaxError) Details() map[string]any {
	details := map[string]any{
		"code":   e.Code,
		"record": e.Record,
		"offset": e.Offset,
		"line":   e.Line,
		"column": e.Column,
	}
	if e.Field != "" {
		details["field"] = e.Field
	}
	if e.Found != "" {
		details["found"] = e.Found
	}
	return details
}
