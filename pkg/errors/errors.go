// Package errors provides structured, coded errors for logrelay.
// Codes allow programmatic handling without string matching.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Code identifies an error class.
type Code string

const (
	// Configuration errors (1xx) - raised eagerly at setup, never at enqueue.
	CodeConfig Code = "E101"

	// Queue errors (2xx)
	CodeQueueClosed Code = "E201"

	// Delivery errors (3xx)
	CodeCircuitOpen Code = "E301"
	CodeSinkWrite   Code = "E302"
	CodeSinkStart   Code = "E303"
	CodeSinkStop    Code = "E304"

	// System errors (4xx)
	CodePanic Code = "E401"

	// Unknown
	CodeUnknown Code = "E999"
)

// Error is the base error type for all logrelay errors.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]any
	StackTrace []Frame
}

// Frame is one captured call site.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, StackTrace: captureStack(2)}
}

// Newf creates a new coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message. Returns nil for a
// nil cause.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err, StackTrace: captureStack(2)}
}

// captureStack records the call sites leading to the error.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *Error) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// --- Convenience constructors ---

// Config creates a setup-time configuration error for a named parameter.
func Config(param, reason string) *Error {
	return New(CodeConfig, "invalid configuration").
		WithContext("param", param).
		WithContext("reason", reason)
}

// CircuitOpen creates the distinguished fail-fast error surfaced while a
// breaker is open, carrying the time of the failure that opened it.
func CircuitOpen(name string, lastFailure time.Time) *Error {
	return New(CodeCircuitOpen, "circuit open").
		WithContext("breaker", name).
		WithContext("last_failure", lastFailure.Format(time.RFC3339Nano))
}

// SinkWrite wraps a sink write failure.
func SinkWrite(sink string, err error) *Error {
	return Wrap(err, CodeSinkWrite, "sink write failed").WithContext("sink", sink)
}

// QueueClosed reports an enqueue attempted after shutdown.
func QueueClosed() *Error {
	return New(CodeQueueClosed, "queue closed")
}

// IsCircuitOpen reports whether err is a circuit-open rejection.
func IsCircuitOpen(err error) bool {
	return IsCode(err, CodeCircuitOpen)
}

// IsConfig reports whether err is a setup-time configuration error.
func IsConfig(err error) bool {
	return IsCode(err, CodeConfig)
}

// MultiError collects failures from independent operations, such as a
// dispatch fan-out or a shutdown pass over several sinks.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add appends a non-nil error.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Combined returns nil, the single error, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
