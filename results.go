package beam

import (
	"fmt"
	"io"
	"slices"
)

// Results collects the terminal sequences of one search session.
// Recorded results are never modified.
type Results struct {
	items []Result
}

// Add records a result.
func (r *Results) Add(res Result) {
	r.items = append(r.items, res)
}

// Len returns the number of recorded results.
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// Best returns the result with the highest prob_sum. The first result
// recorded wins ties.
func (r *Results) Best() (Result, error) {
	if r.Len() == 0 {
		return Result{}, ErrNoResults
	}
	best := r.items[0]
	for _, res := range r.items[1:] {
		if res.ProbSum > best.ProbSum {
			best = res
		}
	}
	return best, nil
}

// SortedAll returns a copy of all results ordered by prob_sum descending.
// Results with equal prob_sum keep the order they were recorded in.
func (r *Results) SortedAll() []Result {
	if r.Len() == 0 {
		return nil
	}
	sorted := slices.Clone(r.items)
	slices.SortStableFunc(sorted, func(a, b Result) int {
		switch {
		case a.ProbSum > b.ProbSum:
			return -1
		case a.ProbSum < b.ProbSum:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

// Fprint writes every result in ranked order, one block per result.
func (r *Results) Fprint(w io.Writer) error {
	for _, res := range r.SortedAll() {
		if _, err := fmt.Fprintf(w, "(%.2f) =====\n%s\n", res.ProbSum, res.Text); err != nil {
			return err
		}
	}
	return nil
}

func (r *Results) reset() {
	r.items = nil
}
