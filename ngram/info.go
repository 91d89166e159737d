package ngram

// ModelInfo provides model metadata.
type ModelInfo struct {
	VocabSize   int     // Vocabulary size including BOS and <unk>
	ContextSize int     // Tokens one evaluation state can hold
	StateSize   int     // Bytes of one evaluation state
	Bigrams     int     // Distinct bigrams seen in the corpus
	Alpha       float32 // Additive smoothing constant
}

// Info returns model metadata.
func (m *Model) Info() ModelInfo {
	if m == nil || m.isClosed() {
		return ModelInfo{}
	}
	return ModelInfo{
		VocabSize:   len(m.vocab),
		ContextSize: m.config.ContextSize,
		StateSize:   m.StateSize(),
		Bigrams:     m.bigrams,
		Alpha:       m.config.Alpha,
	}
}
