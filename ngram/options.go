package ngram

// ModelConfig holds configuration for training a model.
type ModelConfig struct {
	ContextSize int     // Maximum tokens one evaluation state can hold
	Alpha       float32 // Additive smoothing applied to every bigram count
	MinCount    int     // Words seen fewer times than this map to <unk>
	Lowercase   bool    // Fold words to lower case before counting and tokenizing
}

// DefaultModelConfig returns a ModelConfig with sensible defaults.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ContextSize: 512,
		Alpha:       0.1,
		MinCount:    1,
		Lowercase:   true,
	}
}

// ModelOption configures model training.
type ModelOption func(*ModelConfig)

// WithContextSize sets how many tokens the evaluation state holds.
func WithContextSize(n int) ModelOption {
	return func(c *ModelConfig) { c.ContextSize = n }
}

// WithSmoothing sets the additive smoothing constant.
// Higher values flatten the next-token distribution.
func WithSmoothing(alpha float32) ModelOption {
	return func(c *ModelConfig) { c.Alpha = alpha }
}

// WithMinCount drops words rarer than n from the vocabulary.
func WithMinCount(n int) ModelOption {
	return func(c *ModelConfig) { c.MinCount = n }
}

// WithLowercase enables or disables case folding.
func WithLowercase(enable bool) ModelOption {
	return func(c *ModelConfig) { c.Lowercase = enable }
}
