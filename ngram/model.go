package ngram

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/expki/beam"
)

const (
	stateMagic      = 0x6d72676e // "ngrm"
	stateHeaderSize = 12         // magic, n_past, last
)

// Special token IDs.
const (
	TokenBOS = 0
	TokenUnk = 1
)

var _ beam.Model = (*Model)(nil)

// Model is a word-level bigram language model.
//
// The trained tables are read-only after Train. The evaluation state (the
// tokens processed so far and the logits they imply) is a single mutable
// value, so a Model drives one search at a time. Its state is a fixed-size
// byte layout that round-trips exactly through CopyState and SetState.
type Model struct {
	config  ModelConfig
	vocab   []string
	ids     map[string]int
	next    []map[int]uint32 // next[prev][tok] = count
	bigrams int

	nPast  int
	last   int
	window []int32
	logits []float32
	dirty  bool

	closed     bool
	closedLock sync.RWMutex
}

// Train builds a model from corpus. Every non-empty line is a sequence that
// starts after an implicit BOS token.
func Train(corpus string, opts ...ModelOption) (*Model, error) {
	return TrainReader(strings.NewReader(corpus), opts...)
}

// TrainReader builds a model from the lines read from r.
func TrainReader(r io.Reader, opts ...ModelOption) (*Model, error) {
	cfg := DefaultModelConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ContextSize < 1 {
		return nil, errors.Errorf("ngram: context size %d < 1", cfg.ContextSize)
	}
	if cfg.Alpha <= 0 {
		return nil, errors.Errorf("ngram: smoothing %g must be positive", cfg.Alpha)
	}

	var lines [][]string
	freq := map[string]int{}
	var order []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		words := splitWords(sc.Text(), cfg.Lowercase)
		if len(words) == 0 {
			continue
		}
		for _, w := range words {
			if freq[w] == 0 {
				order = append(order, w)
			}
			freq[w]++
		}
		lines = append(lines, words)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "ngram: read corpus")
	}
	if len(order) == 0 {
		return nil, ErrEmptyCorpus
	}

	m := &Model{
		config: cfg,
		vocab:  []string{"<s>", "<unk>"},
		ids:    map[string]int{},
	}
	for _, w := range order {
		if freq[w] < cfg.MinCount {
			continue
		}
		m.ids[w] = len(m.vocab)
		m.vocab = append(m.vocab, w)
	}

	m.next = make([]map[int]uint32, len(m.vocab))
	for _, words := range lines {
		prev := TokenBOS
		for _, w := range words {
			tok := m.lookup(w)
			m.count(prev, tok)
			prev = tok
		}
	}

	m.window = make([]int32, cfg.ContextSize)
	m.logits = make([]float32, len(m.vocab))
	m.reset()
	return m, nil
}

// Load trains a model from the corpus file at path.
func Load(path string, opts ...ModelOption) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "open corpus", Err: err}
	}
	defer f.Close()

	m, err := TrainReader(f, opts...)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "train", Err: err}
	}
	return m, nil
}

func (m *Model) count(prev, tok int) {
	row := m.next[prev]
	if row == nil {
		row = map[int]uint32{}
		m.next[prev] = row
	}
	if row[tok] == 0 {
		m.bigrams++
	}
	row[tok]++
}

// Close releases the model's tables.
// It is safe to call Close multiple times.
func (m *Model) Close() error {
	if m == nil {
		return nil
	}
	m.closedLock.Lock()
	defer m.closedLock.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.next = nil
	m.window = nil
	m.logits = nil
	return nil
}

func (m *Model) isClosed() bool {
	if m == nil {
		return true
	}
	m.closedLock.RLock()
	defer m.closedLock.RUnlock()
	return m.closed
}

// Reset returns the evaluation state to an empty context.
func (m *Model) Reset() error {
	if m == nil {
		return ErrModelIsNil
	}
	if m.isClosed() {
		return ErrModelClosed
	}
	m.reset()
	return nil
}

func (m *Model) reset() {
	m.nPast = 0
	m.last = TokenBOS
	clear(m.window)
	m.dirty = true
}

// NPast returns the number of tokens the state holds.
func (m *Model) NPast() int {
	if m == nil || m.isClosed() {
		return -1
	}
	return m.nPast
}

// StateSize returns the size in bytes of the evaluation state.
func (m *Model) StateSize() int {
	if m == nil || m.isClosed() {
		return -1
	}
	return stateHeaderSize + 4*m.config.ContextSize
}

// CopyState encodes the evaluation state into dst.
func (m *Model) CopyState(dst []byte) (int, error) {
	if m == nil {
		return 0, ErrModelIsNil
	}
	if m.isClosed() {
		return 0, ErrModelClosed
	}
	if len(dst) != m.StateSize() {
		return 0, errors.Wrapf(ErrStateSize, "got %d bytes, want %d", len(dst), m.StateSize())
	}

	binary.LittleEndian.PutUint32(dst[0:], stateMagic)
	binary.LittleEndian.PutUint32(dst[4:], uint32(m.nPast))
	binary.LittleEndian.PutUint32(dst[8:], uint32(int32(m.last)))
	for i, tok := range m.window {
		binary.LittleEndian.PutUint32(dst[stateHeaderSize+4*i:], uint32(tok))
	}
	return len(dst), nil
}

// SetState loads a state produced by CopyState.
func (m *Model) SetState(src []byte) (int, error) {
	if m == nil {
		return 0, ErrModelIsNil
	}
	if m.isClosed() {
		return 0, ErrModelClosed
	}
	if len(src) != m.StateSize() {
		return 0, errors.Wrapf(ErrStateSize, "got %d bytes, want %d", len(src), m.StateSize())
	}
	if binary.LittleEndian.Uint32(src[0:]) != stateMagic {
		return 0, errors.Wrap(ErrStateCorrupt, "bad magic")
	}
	nPast := int(binary.LittleEndian.Uint32(src[4:]))
	last := int(int32(binary.LittleEndian.Uint32(src[8:])))
	if nPast > m.config.ContextSize {
		return 0, errors.Wrapf(ErrStateCorrupt, "n_past %d exceeds context %d", nPast, m.config.ContextSize)
	}
	if last < 0 || last >= len(m.vocab) {
		return 0, errors.Wrapf(ErrStateCorrupt, "last token %d outside vocabulary", last)
	}

	m.nPast = nPast
	m.last = last
	for i := range m.window {
		m.window[i] = int32(binary.LittleEndian.Uint32(src[stateHeaderSize+4*i:]))
	}
	m.dirty = true
	return len(src), nil
}

// Step evaluates token at position nPast. Evaluating at an earlier position
// discards the tokens from that position on.
func (m *Model) Step(token, nPast, threads int) error {
	if m == nil {
		return ErrModelIsNil
	}
	if m.isClosed() {
		return ErrModelClosed
	}
	if token < 0 || token >= len(m.vocab) {
		return errors.Wrapf(ErrInvalidToken, "token %d, vocabulary %d", token, len(m.vocab))
	}
	if nPast >= m.config.ContextSize {
		return errors.Wrapf(ErrContextFull, "position %d, context %d", nPast, m.config.ContextSize)
	}
	if nPast < 0 || nPast > m.nPast {
		return errors.Wrapf(ErrPosition, "position %d, state holds %d", nPast, m.nPast)
	}

	for i := nPast; i < m.nPast; i++ {
		m.window[i] = 0
	}
	m.window[nPast] = int32(token)
	m.nPast = nPast + 1
	m.last = token
	m.dirty = true
	return nil
}

// Logits returns log(count(last, tok) + alpha) for every token. BOS is never
// a continuation and scores -Inf.
func (m *Model) Logits() []float32 {
	if m == nil || m.isClosed() {
		return nil
	}
	if !m.dirty {
		return m.logits
	}

	base := float32(math.Log(float64(m.config.Alpha)))
	for i := range m.logits {
		m.logits[i] = base
	}
	for tok, n := range m.next[m.last] {
		m.logits[tok] = float32(math.Log(float64(n) + float64(m.config.Alpha)))
	}
	m.logits[TokenBOS] = float32(math.Inf(-1))
	m.dirty = false
	return m.logits
}

// Probabilities normalizes logits into candidates sorted by probability.
func (m *Model) Probabilities(logits []float32) []beam.TokenProb {
	return beam.Softmax(logits)
}

// ContextSize returns the evaluation context size.
func (m *Model) ContextSize() int {
	if m == nil || m.isClosed() {
		return -1
	}
	return m.config.ContextSize
}
