package errors

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"
)

func TestError_Format(t *testing.T) {
	err := New(CodeSinkWrite, "sink write failed")
	if got := err.Error(); !strings.Contains(got, "E302") || !strings.Contains(got, "sink write failed") {
		t.Errorf("Error() = %q, want code and message", got)
	}
}

func TestError_CapturesStack(t *testing.T) {
	err := New(CodeSinkWrite, "boom")
	if len(err.StackTrace) == 0 {
		t.Fatal("New should capture a stack trace")
	}
	if fn := err.StackTrace[0].Function; !strings.Contains(fn, "TestError_CapturesStack") {
		t.Errorf("top frame = %q, want the caller of New", fn)
	}
	if got := err.FormatStack(); !strings.Contains(got, "errors_test.go") {
		t.Errorf("FormatStack() = %q, want call-site file", got)
	}

	wrapped := Wrap(stderrors.New("io"), CodeSinkWrite, "boom")
	if len(wrapped.StackTrace) == 0 {
		t.Error("Wrap should capture a stack trace")
	}
}

func TestError_WrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, CodeSinkWrite, "write failed")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match its cause via errors.Is")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
}

func TestWrap_NilCause(t *testing.T) {
	if err := Wrap(nil, CodeSinkWrite, "x"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestIsCode(t *testing.T) {
	err := Wrapf(stderrors.New("root"), CodeConfig, "bad %s", "param")
	if !IsCode(err, CodeConfig) {
		t.Error("IsCode should match through Wrapf")
	}
	if IsCode(err, CodeSinkWrite) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(stderrors.New("plain"), CodeConfig) {
		t.Error("IsCode on a plain error should be false")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(CodePanic, "x")); got != CodePanic {
		t.Errorf("GetCode = %v, want %v", got, CodePanic)
	}
	if got := GetCode(stderrors.New("plain")); got != CodeUnknown {
		t.Errorf("GetCode(plain) = %v, want %v", got, CodeUnknown)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	if !IsConfig(Config("queue.capacity", "must be >= 1")) {
		t.Error("Config() should satisfy IsConfig")
	}
	if !IsCircuitOpen(CircuitOpen("redis", time.Unix(0, 0))) {
		t.Error("CircuitOpen() should satisfy IsCircuitOpen")
	}
	if !IsCode(QueueClosed(), CodeQueueClosed) {
		t.Error("QueueClosed() should carry CodeQueueClosed")
	}
	if !IsCode(SinkWrite("s3", stderrors.New("x")), CodeSinkWrite) {
		t.Error("SinkWrite() should carry CodeSinkWrite")
	}
}

func TestError_ContextInMessage(t *testing.T) {
	err := Config("batch.size", "must be >= 1")
	if !strings.Contains(err.Error(), "batch.size") {
		t.Errorf("Error() = %q, want param in context", err.Error())
	}
}

func TestMultiError(t *testing.T) {
	var m MultiError
	if m.Combined() != nil {
		t.Error("empty MultiError should combine to nil")
	}

	m.Add(nil) // ignored
	first := stderrors.New("first")
	m.Add(first)
	if m.Combined() != first {
		t.Error("single error should combine to itself")
	}

	m.Add(stderrors.New("second"))
	combined := m.Combined()
	if combined == nil {
		t.Fatal("combined should not be nil")
	}
	msg := combined.Error()
	if !strings.Contains(msg, "2 errors") || !strings.Contains(msg, "first") || !strings.Contains(msg, "second") {
		t.Errorf("combined message = %q", msg)
	}
}
