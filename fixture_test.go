package beam

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Shared fixtures for search tests. tableModel is a deterministic in-memory
// Model: its state is the list of processed tokens, and its next-token
// distribution comes from a fixed table or a function of that history.
type tableModel struct {
	vocab    []string
	logits   func(history []int) []float32
	capacity int

	failToken int          // Step fails for this token (-1 = never)
	resizeAt  int          // StateSize grows once history reaches this length (0 = never)
	onStep    func(tok int) // called after every successful step

	history     []int
	steps       int
	lastThreads int
}

// newTableModel returns a model over vocab whose next-token probabilities are
// always probs.
func newTableModel(vocab []string, probs []float32) *tableModel {
	logits := probLogits(probs)
	return &tableModel{
		vocab:     vocab,
		logits:    func([]int) []float32 { return logits },
		capacity:  32,
		failToken: -1,
	}
}

// abcdModel is the four-token model with probabilities 0.6, 0.3, 0.08, 0.02.
func abcdModel() *tableModel {
	return newTableModel([]string{" a", " b", " c", " d"}, []float32{0.6, 0.3, 0.08, 0.02})
}

func probLogits(probs []float32) []float32 {
	logits := make([]float32, len(probs))
	for i, p := range probs {
		logits[i] = float32(math.Log(float64(p)))
	}
	return logits
}

func (m *tableModel) StateSize() int {
	size := 4 + 4*m.capacity
	if m.resizeAt > 0 && len(m.history) >= m.resizeAt {
		size += 4
	}
	return size
}

func (m *tableModel) CopyState(dst []byte) (int, error) {
	if len(dst) != m.StateSize() {
		return 0, fmt.Errorf("state buffer is %d bytes, want %d", len(dst), m.StateSize())
	}
	clear(dst)
	binary.LittleEndian.PutUint32(dst, uint32(len(m.history)))
	for i, tok := range m.history {
		binary.LittleEndian.PutUint32(dst[4+4*i:], uint32(tok))
	}
	return len(dst), nil
}

func (m *tableModel) SetState(src []byte) (int, error) {
	if len(src) < 4 {
		return 0, errors.New("state too short")
	}
	n := int(binary.LittleEndian.Uint32(src))
	if n > m.capacity {
		return 0, fmt.Errorf("state holds %d tokens, capacity %d", n, m.capacity)
	}
	m.history = m.history[:0]
	for i := range n {
		m.history = append(m.history, int(binary.LittleEndian.Uint32(src[4+4*i:])))
	}
	return m.StateSize(), nil
}

func (m *tableModel) Step(token, nPast, threads int) error {
	if token == m.failToken {
		return fmt.Errorf("token %d rejected", token)
	}
	if nPast != len(m.history) {
		return fmt.Errorf("step at position %d, model holds %d tokens", nPast, len(m.history))
	}
	if len(m.history) == m.capacity {
		return errors.New("context full")
	}
	m.history = append(m.history, token)
	m.steps++
	m.lastThreads = threads
	if m.onStep != nil {
		m.onStep(token)
	}
	return nil
}

func (m *tableModel) Logits() []float32 {
	return m.logits(m.history)
}

func (m *tableModel) VocabSize() int {
	return len(m.vocab)
}

func (m *tableModel) Probabilities(logits []float32) []TokenProb {
	return Softmax(logits)
}

func (m *tableModel) TokenToText(token int) string {
	if token < 0 || token >= len(m.vocab) {
		return ""
	}
	return m.vocab[token]
}

func (m *tableModel) Tokenize(text string, addSpecial bool) ([]int, error) {
	var tokens []int
	for _, word := range strings.Fields(text) {
		id := -1
		for i, v := range m.vocab {
			if v == " "+word {
				id = i
				break
			}
		}
		if id < 0 {
			return nil, &TokenizeError{Text: text, Message: "unknown word " + word}
		}
		tokens = append(tokens, id)
	}
	return tokens, nil
}

// historyText renders the tokens the model has processed.
func (m *tableModel) historyText() string {
	var sb strings.Builder
	for _, tok := range m.history {
		sb.WriteString(m.TokenToText(tok))
	}
	return sb.String()
}
