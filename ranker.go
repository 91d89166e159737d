package beam

import (
	"container/heap"
	"iter"
	"math"
	"slices"
)

// Softmax normalizes logits into probabilities, sorted by probability
// descending with ties broken by token id ascending.
func Softmax(logits []float32) []TokenProb {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := float32(math.Inf(-1))
	for _, l := range logits {
		maxLogit = max(maxLogit, l)
	}

	candidates := make([]TokenProb, len(logits))
	if math.IsInf(float64(maxLogit), -1) {
		// Every token is masked: nothing has positive probability.
		for id, l := range logits {
			candidates[id] = TokenProb{Token: id, Logit: l}
		}
		return candidates
	}

	var sum float64
	for id, l := range logits {
		p := math.Exp(float64(l - maxLogit))
		candidates[id] = TokenProb{Token: id, Prob: float32(p), Logit: l}
		sum += p
	}
	for i := range candidates {
		candidates[i].Prob = float32(float64(candidates[i].Prob) / sum)
	}

	slices.SortStableFunc(candidates, compareCandidates)
	return candidates
}

// compareCandidates orders by probability descending, then token id ascending.
func compareCandidates(a, b TokenProb) int {
	switch {
	case a.Prob > b.Prob:
		return -1
	case a.Prob < b.Prob:
		return 1
	default:
		return a.Token - b.Token
	}
}

// Rank returns the model's next-token candidates in probability order.
//
// The sequence is produced lazily from a heap, so consumers that read only a
// short prefix do not pay for sorting the whole vocabulary. The heap works on
// a copy of the candidates, so the model's own slice is left as it was.
func Rank(m Model) iter.Seq[TokenProb] {
	if m == nil {
		return func(func(TokenProb) bool) {}
	}
	h := candidateHeap(slices.Clone(m.Probabilities(m.Logits())))
	heap.Init(&h)

	return func(yield func(TokenProb) bool) {
		for h.Len() > 0 {
			if !yield(heap.Pop(&h).(TokenProb)) {
				return
			}
		}
	}
}

// TopCandidates collects at most n candidates from seq.
func TopCandidates(seq iter.Seq[TokenProb], n int) []TokenProb {
	if n <= 0 {
		return nil
	}
	top := make([]TokenProb, 0, n)
	for c := range seq {
		top = append(top, c)
		if len(top) == n {
			break
		}
	}
	return top
}

type candidateHeap []TokenProb

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return compareCandidates(h[i], h[j]) < 0 }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(TokenProb)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
