package beam

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is()
var (
	ErrAllocation        = errors.New("beam: snapshot allocation failed")
	ErrStateSizeMismatch = errors.New("beam: model state size does not match snapshot")
	ErrSnapshotReleased  = errors.New("beam: snapshot already restored or disposed")
	ErrEvaluationFailed  = errors.New("beam: model evaluation failed")
	ErrNoResults         = errors.New("beam: no results recorded")
	ErrInvalidConfig     = errors.New("beam: invalid search configuration")
	ErrSessionClosed     = errors.New("beam: session is closed")
	ErrSessionIsNil      = errors.New("beam: session is nil and not defined")
	ErrModelIsNil        = errors.New("beam: model is nil and not defined")
)

// SnapshotError provides details about snapshot capture and restore failures.
type SnapshotError struct {
	Op   string // "capture", "restore"
	Want int    // bytes the snapshot holds or the limit allows
	Got  int    // bytes the model reports or the capture needs
	Err  error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("beam: snapshot %s failed (want %d bytes, got %d): %v", e.Op, e.Want, e.Got, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// EvaluationError provides details about a failed model step.
type EvaluationError struct {
	Token    int
	Position int
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("beam: evaluation of token %d at position %d failed: %v", e.Token, e.Position, e.Err)
}

// Unwrap exposes both ErrEvaluationFailed and the model's own error.
func (e *EvaluationError) Unwrap() []error {
	return []error{ErrEvaluationFailed, e.Err}
}

// TokenizeError provides details about tokenization failures.
type TokenizeError struct {
	Text    string
	Message string
}

func (e *TokenizeError) Error() string {
	if len(e.Text) > 50 {
		return fmt.Sprintf("beam: tokenization failed for %q...: %s", e.Text[:50], e.Message)
	}
	return fmt.Sprintf("beam: tokenization failed for %q: %s", e.Text, e.Message)
}

// isCancellation reports whether err stopped a search through its context
// rather than a failure.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
