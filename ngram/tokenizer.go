package ngram

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// splitWords breaks a line into normalized words. Punctuation at either end
// of a word is dropped.
func splitWords(line string, lowercase bool) []string {
	fields := strings.Fields(line)
	words := fields[:0]
	for _, f := range fields {
		w := strings.TrimFunc(f, unicode.IsPunct)
		if w == "" {
			continue
		}
		if lowercase {
			w = strings.ToLower(w)
		}
		words = append(words, w)
	}
	return words
}

func (m *Model) lookup(word string) int {
	if id, ok := m.ids[word]; ok {
		return id
	}
	return TokenUnk
}

// Tokenize converts text to token IDs. Words outside the vocabulary map to
// <unk>; addSpecial prepends BOS.
func (m *Model) Tokenize(text string, addSpecial bool) ([]int, error) {
	if m == nil {
		return nil, ErrModelIsNil
	}
	if m.isClosed() {
		return nil, ErrModelClosed
	}

	words := splitWords(text, m.config.Lowercase)
	tokens := make([]int, 0, len(words)+1)
	if addSpecial {
		tokens = append(tokens, TokenBOS)
	}
	for _, w := range words {
		tokens = append(tokens, m.lookup(w))
	}
	return tokens, nil
}

// TokenizeCount returns number of token IDs the text represents.
func (m *Model) TokenizeCount(text string, addSpecial bool) (int, error) {
	tokens, err := m.Tokenize(text, addSpecial)
	if err != nil {
		return 0, err
	}
	return len(tokens), nil
}

// Detokenize converts token IDs to text.
func (m *Model) Detokenize(tokens []int) (string, error) {
	if m == nil {
		return "", ErrModelIsNil
	}
	if m.isClosed() {
		return "", ErrModelClosed
	}

	var sb strings.Builder
	for _, tok := range tokens {
		if tok < 0 || tok >= len(m.vocab) {
			return "", errors.Wrapf(ErrInvalidToken, "token %d", tok)
		}
		sb.WriteString(m.TokenToText(tok))
	}
	return sb.String(), nil
}

// TokenToText converts a single token ID to its text representation.
// Words carry a leading space; BOS renders as nothing.
func (m *Model) TokenToText(token int) string {
	if m == nil || m.isClosed() {
		return ""
	}
	if token <= TokenBOS || token >= len(m.vocab) {
		return ""
	}
	return " " + m.vocab[token]
}

// BOS returns the beginning-of-sequence token ID.
func (m *Model) BOS() int {
	return TokenBOS
}

// IsSpecialToken returns true if the token is BOS or <unk>.
func (m *Model) IsSpecialToken(token int) bool {
	return token == TokenBOS || token == TokenUnk
}

// VocabSize returns the vocabulary size.
func (m *Model) VocabSize() int {
	if m == nil || m.isClosed() {
		return 0
	}
	return len(m.vocab)
}
