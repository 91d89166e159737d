package beam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelErrors_Is(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrAllocation", ErrAllocation},
		{"ErrStateSizeMismatch", ErrStateSizeMismatch},
		{"ErrSnapshotReleased", ErrSnapshotReleased},
		{"ErrEvaluationFailed", ErrEvaluationFailed},
		{"ErrNoResults", ErrNoResults},
		{"ErrInvalidConfig", ErrInvalidConfig},
		{"ErrSessionClosed", ErrSessionClosed},
		{"ErrSessionIsNil", ErrSessionIsNil},
		{"ErrModelIsNil", ErrModelIsNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.err) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.err)
			}

			wrapped := fmt.Errorf("wrapped: %w", tt.err)
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.err)
			}
		})
	}
}

func TestSentinelErrors_NotEqual(t *testing.T) {
	if errors.Is(ErrAllocation, ErrStateSizeMismatch) {
		t.Error("errors.Is(ErrAllocation, ErrStateSizeMismatch) should be false")
	}
}

func TestSnapshotError_Format(t *testing.T) {
	err := &SnapshotError{Op: "restore", Want: 128, Got: 256, Err: ErrStateSizeMismatch}

	msg := err.Error()
	for _, want := range []string{"restore", "128", "256", "beam:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should contain %q: %s", want, msg)
		}
	}
	if !errors.Is(err, ErrStateSizeMismatch) {
		t.Error("SnapshotError should unwrap to ErrStateSizeMismatch")
	}
}

func TestEvaluationError_Unwrap(t *testing.T) {
	cause := errors.New("nan in logits")
	err := fmt.Errorf("branch: %w", &EvaluationError{Token: 3, Position: 7, Err: cause})

	if !errors.Is(err, ErrEvaluationFailed) {
		t.Error("EvaluationError should match ErrEvaluationFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("EvaluationError should match its cause")
	}

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvaluationError, got %T", err)
	}
	if evalErr.Token != 3 || evalErr.Position != 7 {
		t.Errorf("EvaluationError = %+v, want token 3 position 7", evalErr)
	}
}

func TestTokenizeError_Format_Long(t *testing.T) {
	longText := strings.Repeat("a", 100)
	err := &TokenizeError{Text: longText, Message: "failed"}

	msg := err.Error()
	if !strings.Contains(msg, strings.Repeat("a", 50)) {
		t.Errorf("error should contain truncated text: %s", msg)
	}
	if !strings.Contains(msg, "...") {
		t.Errorf("error should contain ellipsis for long text: %s", msg)
	}
	if strings.Contains(msg, strings.Repeat("a", 100)) {
		t.Errorf("error should truncate long text: %s", msg)
	}
}

func TestIsCancellation(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{context.Canceled, true},
		{fmt.Errorf("search: %w", context.DeadlineExceeded), true},
		{&SnapshotError{Op: "capture", Err: ErrAllocation}, false},
		{&EvaluationError{Err: errors.New("boom")}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isCancellation(tt.err); got != tt.want {
			t.Errorf("isCancellation(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
