package beam

import (
	"context"
	"log/slog"
)

// DepthFirst explores the candidate tree recursively from the model's current
// state, which must correspond to startPos processed tokens.
//
// Each expanded child is bracketed by a snapshot of its parent, so siblings
// always start from the same state and at most MaxDepth snapshots are live.
// When the search returns, the model is back in its starting state.
func (s *Session) DepthFirst(ctx context.Context, startPos int, startText string) error {
	return s.run(ctx, DepthFirst, startPos, func(ctx context.Context) error {
		d := depthFirst{s: s, m: s.model, cfg: s.cfg, threads: s.cfg.threads(DepthFirst)}
		return d.expand(ctx, startPos, 1, 0, startText)
	})
}

type depthFirst struct {
	s       *Session
	m       Model
	cfg     SearchConfig
	threads int
}

// expand ranks the frame's candidates and records or descends into each
// selected one. Only fatal errors and cancellation are returned.
func (d *depthFirst) expand(ctx context.Context, nPast, depth int, probSum float32, text string) error {
	d.s.expanded(DepthFirst)
	selected := d.selectCandidates()

	continued := 0
	for _, c := range selected {
		if err := ctx.Err(); err != nil {
			d.s.record(DepthFirst, Result{Text: text, ProbSum: probSum, Depth: depth, Reason: StopReasonCancelled})
			return err
		}

		piece := d.m.TokenToText(c.Token)
		d.s.logger.DebugContext(ctx, "candidate",
			slog.Int("depth", depth),
			slog.Float64("prob_sum", float64(probSum+c.Prob)),
			slog.String("text", text+piece),
		)

		if depth >= d.cfg.MaxDepth || d.cfg.BeamWidth == 1 {
			reason := StopReasonMaxDepth
			if depth < d.cfg.MaxDepth {
				reason = StopReasonBeamWidth
			}
			d.s.record(DepthFirst, Result{Text: text + piece, ProbSum: probSum + c.Prob, Depth: depth, Reason: reason})
			continued++
			continue
		}

		ok, err := d.branch(ctx, nPast, depth, probSum, text, c, piece)
		if err != nil {
			return err
		}
		if ok {
			continued++
		}
	}

	if continued == 0 {
		d.s.record(DepthFirst, Result{Text: text, ProbSum: probSum, Depth: depth, Reason: StopReasonStalled})
	}
	return nil
}

// selectCandidates returns the top candidates meeting the cutoff, widened to
// MinBranching when too few qualify.
func (d *depthFirst) selectCandidates() []TokenProb {
	top := TopCandidates(Rank(d.m), d.cfg.BeamWidth)
	n := 0
	for _, c := range top {
		if c.Prob < d.cfg.Cutoff {
			break
		}
		n++
	}
	n = max(n, min(d.cfg.MinBranching, len(top)))
	return top[:n]
}

// branch steps the model with c, explores the child and restores the parent
// state. ok is false when the step failed and the branch was abandoned.
func (d *depthFirst) branch(ctx context.Context, nPast, depth int, probSum float32, text string, c TokenProb, piece string) (ok bool, err error) {
	snap, err := d.s.store.capture(d.m, nPast)
	if err != nil {
		return false, err
	}
	defer snap.Dispose()

	if stepErr := d.m.Step(c.Token, nPast, d.threads); stepErr != nil {
		d.s.branchFailed(ctx, DepthFirst, &EvaluationError{Token: c.Token, Position: nPast, Err: stepErr})
		_, err := snap.Restore(d.m)
		return false, err
	}

	childErr := d.expand(ctx, nPast+1, depth+1, probSum+c.Prob, text+piece)
	if _, err := snap.Restore(d.m); err != nil && childErr == nil {
		return false, err
	}
	return childErr == nil, childErr
}
