package ngram

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCorpus = `the cat sat on the mat
the cat ate the fish

the dog sat on the log
`

func trainTestModel(t *testing.T, opts ...ModelOption) *Model {
	t.Helper()
	m, err := Train(testCorpus, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestTrain_Info(t *testing.T) {
	m := trainTestModel(t)

	info := m.Info()
	if info.VocabSize != 11 {
		t.Errorf("VocabSize = %d, want 11", info.VocabSize)
	}
	if info.Bigrams != 12 {
		t.Errorf("Bigrams = %d, want 12", info.Bigrams)
	}
	if info.ContextSize != 512 {
		t.Errorf("ContextSize = %d, want 512", info.ContextSize)
	}
	if info.StateSize != stateHeaderSize+4*512 {
		t.Errorf("StateSize = %d, want %d", info.StateSize, stateHeaderSize+4*512)
	}
	if info.Alpha != 0.1 {
		t.Errorf("Alpha = %f, want 0.1", info.Alpha)
	}
}

func TestTrain_Options(t *testing.T) {
	m := trainTestModel(t, WithContextSize(16), WithMinCount(2), WithSmoothing(0.5))

	// the, cat, sat, on are the only words seen at least twice
	assert.Equal(t, 6, m.VocabSize())
	assert.Equal(t, 16, m.ContextSize())
	assert.Equal(t, stateHeaderSize+4*16, m.StateSize())

	tokens, err := m.Tokenize("the fish", false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, TokenUnk}, tokens)
}

func TestTrain_Errors(t *testing.T) {
	if _, err := Train("  \n\t\n"); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("Train(empty) error = %v, want ErrEmptyCorpus", err)
	}
	if _, err := Train(testCorpus, WithContextSize(0)); err == nil {
		t.Error("expected error for zero context size")
	}
	if _, err := Train(testCorpus, WithSmoothing(0)); err == nil {
		t.Error("expected error for zero smoothing")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(testCorpus), 0o644))

	m, err := Load(path, WithContextSize(32))
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 11, m.VocabSize())
	assert.Equal(t, 32, m.ContextSize())
}

func TestLoad_InvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path/to/corpus.txt")
	if err == nil {
		t.Fatal("expected error for invalid path")
	}

	var loadErr *ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("expected *ModelLoadError, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist: %v", err)
	}
}

func TestModel_Logits(t *testing.T) {
	m := trainTestModel(t)

	logits := m.Logits()
	require.Len(t, logits, m.VocabSize())
	if !math.IsInf(float64(logits[TokenBOS]), -1) {
		t.Errorf("BOS logit = %v, want -Inf", logits[TokenBOS])
	}
	// every line starts with "the"
	assert.Equal(t, 2, slices.Index(logits, slices.Max(logits)))

	require.NoError(t, m.Step(TokenBOS, 0, 1))
	require.NoError(t, m.Step(2, 1, 1))

	probs := m.Probabilities(m.Logits())
	assert.Equal(t, 3, probs[0].Token, "cat follows the most often")
	assert.InDelta(t, 2.1/7.0, probs[0].Prob, 1e-5)
	assert.Equal(t, float32(0), probs[len(probs)-1].Prob, "BOS is never a continuation")
}

func TestModel_Step(t *testing.T) {
	m := trainTestModel(t, WithContextSize(2))

	require.NoError(t, m.Step(TokenBOS, 0, 1))
	assert.ErrorIs(t, m.Step(99, 1, 1), ErrInvalidToken)
	assert.ErrorIs(t, m.Step(-1, 1, 1), ErrInvalidToken)
	assert.ErrorIs(t, m.Step(2, 5, 1), ErrContextFull)

	require.NoError(t, m.Step(2, 1, 1))
	assert.ErrorIs(t, m.Step(3, 2, 1), ErrContextFull)
	assert.Equal(t, 2, m.NPast())

	// evaluating at an earlier position rewinds
	require.NoError(t, m.Step(4, 1, 1))
	assert.Equal(t, 2, m.NPast())
	assert.Equal(t, []int32{TokenBOS, 4}, m.window)

	require.NoError(t, m.Reset())
	assert.Equal(t, 0, m.NPast())
	assert.ErrorIs(t, m.Step(2, 1, 1), ErrPosition)
}

func TestModel_StateRoundTrip(t *testing.T) {
	m := trainTestModel(t, WithContextSize(8))
	for i, tok := range []int{TokenBOS, 2, 3} {
		require.NoError(t, m.Step(tok, i, 1))
	}
	want := slices.Clone(m.Logits())

	state := make([]byte, m.StateSize())
	n, err := m.CopyState(state)
	require.NoError(t, err)
	assert.Equal(t, len(state), n)

	require.NoError(t, m.Step(7, 3, 1))
	require.NoError(t, m.Step(2, 4, 1))
	assert.NotEqual(t, want, m.Logits())

	n, err = m.SetState(state)
	require.NoError(t, err)
	assert.Equal(t, len(state), n)
	assert.Equal(t, 3, m.NPast())
	assert.Equal(t, want, m.Logits())

	again := make([]byte, m.StateSize())
	_, err = m.CopyState(again)
	require.NoError(t, err)
	assert.Equal(t, state, again, "state round-trips byte for byte")
}

func TestModel_SetStateRejectsForeignBytes(t *testing.T) {
	m := trainTestModel(t, WithContextSize(4))

	_, err := m.SetState(make([]byte, 3))
	assert.ErrorIs(t, err, ErrStateSize)

	_, err = m.CopyState(make([]byte, 3))
	assert.ErrorIs(t, err, ErrStateSize)

	_, err = m.SetState(make([]byte, m.StateSize()))
	assert.ErrorIs(t, err, ErrStateCorrupt)

	state := make([]byte, m.StateSize())
	_, err = m.CopyState(state)
	require.NoError(t, err)
	state[8] = 0xff // last token far outside the vocabulary
	_, err = m.SetState(state)
	assert.ErrorIs(t, err, ErrStateCorrupt)
}

func TestModel_Close(t *testing.T) {
	m, err := Train(testCorpus)
	require.NoError(t, err)

	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := m.Step(2, 0, 1); !errors.Is(err, ErrModelClosed) {
		t.Errorf("Step() after Close error = %v, want ErrModelClosed", err)
	}
	if _, err := m.CopyState(nil); !errors.Is(err, ErrModelClosed) {
		t.Errorf("CopyState() after Close error = %v, want ErrModelClosed", err)
	}
	if _, err := m.Tokenize("the", true); !errors.Is(err, ErrModelClosed) {
		t.Errorf("Tokenize() after Close error = %v, want ErrModelClosed", err)
	}
	if m.Logits() != nil {
		t.Error("Logits() after Close should be nil")
	}
	if m.StateSize() != -1 {
		t.Errorf("StateSize() after Close = %d, want -1", m.StateSize())
	}
	if m.Info() != (ModelInfo{}) {
		t.Error("Info() after Close should be zero")
	}
}

func TestModel_Nil(t *testing.T) {
	var m *Model
	if err := m.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
	if err := m.Step(0, 0, 1); !errors.Is(err, ErrModelIsNil) {
		t.Errorf("nil Step() error = %v, want ErrModelIsNil", err)
	}
	if m.VocabSize() != 0 {
		t.Error("nil VocabSize() should be 0")
	}
}
