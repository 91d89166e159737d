package ngram

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for use with errors.Is()
var (
	ErrModelClosed  = errors.New("ngram: model is closed")
	ErrModelIsNil   = errors.New("ngram: model is nil and not defined")
	ErrInvalidToken = errors.New("ngram: token id out of range")
	ErrContextFull  = errors.New("ngram: context window is full")
	ErrPosition     = errors.New("ngram: evaluation position is ahead of the state")
	ErrStateSize    = errors.New("ngram: state buffer has the wrong size")
	ErrStateCorrupt = errors.New("ngram: state buffer is not a model state")
	ErrEmptyCorpus  = errors.New("ngram: corpus contains no words")
)

// ModelLoadError provides details about model loading failures.
type ModelLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ModelLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ngram: failed to load model %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("ngram: failed to load model %q: %s", e.Path, e.Reason)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}
