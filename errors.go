package cpuinfo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Sentinel errors for common failure conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrMalformedInput matches every parse failure, whatever its code.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvalidConfig indicates a Parser option could not be applied.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error kinds categorize errors by their type.
const (
	// KindMalformedInput represents text that does not follow the cpuinfo grammar.
	KindMalformedInput = "malformed_input"

	// KindConfiguration represents errors raised while building a Parser.
	KindConfiguration = "configuration"
)

// Error is returned by every exported operation of this package. It records
// the operation that failed and the category of the failure, and wraps the
// underlying error (a *parser.SyntaxError for malformed input).
//
// Example usage:
//
//	info, err := cpuinfo.Parse(text)
//	if errors.Is(err, cpuinfo.ErrMalformedInput) {
//		var se *parser.SyntaxError
//		if errors.As(err, &se) {
//			log.Printf("line %d: %s", se.Line, se.Message)
//		}
//	}
type Error struct {
	// Op is the operation that failed (e.g., "Parser.Parse").
	Op string

	// Kind categorizes the error (e.g., KindMalformedInput).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional),
	// such as the position of a syntax error.
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cpuinfo: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("cpuinfo: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrMalformedInput for malformed input errors, and another *Error
// with the same Kind (and Op, when the target sets one).
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if target == ErrMalformedInput {
		return e.Kind == KindMalformedInput
	}
	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			return t.Op == "" || e.Op == t.Op
		}
	}
	return false
}

// WithContext returns a copy of the error with ctx merged into its context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	newErr.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		newErr.Context[k] = v
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

func newMalformedInputError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindMalformedInput,
		Err:  err,
	}
}

func newConfigurationError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindConfiguration,
		Err:  err,
	}
}

// CloseWithLog closes the resource and logs any error at warning level.
// It is intended for defer statements. If logger is nil, slog.Default() is
// used.
//
// Example usage:
//
//	defer cpuinfo.CloseWithLog(store, logger, "snapshot store")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
