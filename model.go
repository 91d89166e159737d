package beam

import "context"

// Model is the capability a generative model exposes to the search.
//
// The model holds one mutable state (attention cache, logits, RNG) that every
// Step changes in place. The search saves and restores it through
// CopyState/SetState, so both must round-trip the state byte for byte.
type Model interface {
	// StateSize returns the current size in bytes of the model's internal state.
	StateSize() int

	// CopyState copies the full internal state into dst.
	// len(dst) must equal StateSize().
	CopyState(dst []byte) (int, error)

	// SetState loads a state previously produced by CopyState.
	// len(src) must equal StateSize().
	SetState(src []byte) (int, error)

	// Step advances the model by one token at position nPast.
	// threads is a hint for the forward pass and may be ignored.
	Step(token, nPast, threads int) error

	// Logits returns the scores for the next token, one per vocabulary id.
	Logits() []float32

	// VocabSize returns the vocabulary size.
	VocabSize() int

	// Probabilities normalizes logits into candidates sorted by probability.
	Probabilities(logits []float32) []TokenProb

	// TokenToText converts a single token ID to its text representation.
	TokenToText(token int) string

	// Tokenize converts text to token IDs.
	Tokenize(text string, addSpecial bool) ([]int, error)
}

// Prime evaluates prompt against m from position zero and returns the number
// of tokens processed, which is the start position for a search.
func Prime(ctx context.Context, m Model, prompt string, threads int) (int, error) {
	if m == nil {
		return 0, ErrModelIsNil
	}

	tokens, err := m.Tokenize(prompt, true)
	if err != nil {
		return 0, err
	}
	if len(tokens) < 1 {
		return 0, &TokenizeError{Text: prompt, Message: "prompt produced no tokens"}
	}

	for nPast, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return nPast, err
		}
		if err := m.Step(tok, nPast, threads); err != nil {
			return nPast, &EvaluationError{Token: tok, Position: nPast, Err: err}
		}
	}
	return len(tokens), nil
}
