package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		retryable bool
	}{
		{"timeout is retryable", ErrCodeTimeout, true},
		{"connection is retryable", ErrCodeConnectionFailed, true},
		{"sink is not retryable", ErrCodeSink, false},
		{"transform is not retryable", ErrCodeTransform, false},
		{"configuration is not retryable", ErrCodeConfiguration, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "msg")
			if err.Code != tt.code {
				t.Errorf("code = %s, want %s", err.Code, tt.code)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", err.Retryable, tt.retryable)
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	plain := New(ErrCodeInternal, "boom")
	if plain.Error() != "INTERNAL_ERROR: boom" {
		t.Errorf("unexpected message %q", plain.Error())
	}
	wrapped := New(ErrCodeInternal, "boom").WithCause(fmt.Errorf("disk"))
	if !strings.Contains(wrapped.Error(), "(cause: disk)") {
		t.Errorf("expected cause in message, got %q", wrapped.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	root := fmt.Errorf("root")
	err := Internal(root)
	if !stderrors.Is(err, root) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestTransform(t *testing.T) {
	cause := fmt.Errorf("bad item")
	err := Transform(2, 17, cause)
	if err.Code != ErrCodeTransform {
		t.Errorf("expected TRANSFORM_ERROR, got %s", err.Code)
	}
	if err.Details["worker"] != 2 || err.Details["index"] != int64(17) {
		t.Errorf("unexpected details %v", err.Details)
	}
	if err.Cause != cause {
		t.Error("expected cause to be set")
	}
}

func TestSink(t *testing.T) {
	err := Sink("redis", "put_batch", fmt.Errorf("conn reset"))
	if err.Details["backend"] != "redis" || err.Details["op"] != "put_batch" {
		t.Errorf("unexpected details %v", err.Details)
	}
	if err.Retryable {
		t.Error("sink errors must not be retryable")
	}
}

func TestConfiguration(t *testing.T) {
	err := Configuration("batch size must be positive, got %d", 0)
	if err.Message != "batch size must be positive, got 0" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"configuration", Configuration("x"), IsConfiguration, true},
		{"wrapped transform", fmt.Errorf("run: %w", Transform(0, 0, nil)), IsTransform, true},
		{"sink", Sink("memory", "write", nil), IsSink, true},
		{"canceled", Canceled(nil), IsCanceled, true},
		{"sink is not transform", Sink("memory", "write", nil), IsTransform, false},
		{"plain error", fmt.Errorf("plain"), IsSink, false},
		{"nil", nil, IsConfiguration, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithDetails(t *testing.T) {
	err := NotFound("key", "").WithDetails(map[string]any{"a": 1}).WithDetail("b", 2)
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no id for empty id")
	}
	if err.Details["a"] != 1 || err.Details["b"] != 2 || err.Details["resource"] != "key" {
		t.Errorf("unexpected details %v", err.Details)
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error is not an AppError")
	}
	wrapped := fmt.Errorf("ctx: %w", MissingField("backend"))
	appErr, ok := AsAppError(wrapped)
	if !ok || appErr.Code != ErrCodeMissingField {
		t.Errorf("expected MISSING_FIELD, got %v", wrapped)
	}
	if !IsAppError(wrapped) {
		t.Error("IsAppError should see through wrapping")
	}
}
