package beam

import (
	"context"
	"errors"
	"log/slog"
)

// BreadthFirst explores the candidate tree level by level from the model's
// current state, which must correspond to startPos processed tokens.
//
// Every accepted candidate becomes a queued frame holding its own snapshot.
// Once the depth passes TrimWarmup, the queue is cut back to MaxWidth frames
// by prob_sum every TrimEvery levels. On cancellation the remaining frames
// are recorded with their partial text. When the search returns, the model
// is back in its starting state.
func (s *Session) BreadthFirst(ctx context.Context, startPos int, startText string) error {
	return s.run(ctx, BreadthFirst, startPos, func(ctx context.Context) (err error) {
		start, err := s.store.capture(s.model, startPos)
		if err != nil {
			return err
		}
		defer func() {
			if _, restoreErr := start.Restore(s.model); restoreErr != nil {
				err = errors.Join(err, restoreErr)
			}
		}()

		b := breadthFirst{s: s, m: s.model, cfg: s.cfg, threads: s.cfg.threads(BreadthFirst)}
		if err = b.search(ctx, startPos, startText); err != nil {
			b.abort(err)
		}
		return err
	})
}

type breadthFirst struct {
	s       *Session
	m       Model
	cfg     SearchConfig
	threads int
}

func (b *breadthFirst) search(ctx context.Context, startPos int, startText string) error {
	root, err := b.s.store.capture(b.m, startPos)
	if err != nil {
		return err
	}
	b.s.queue.push(&frame{snap: root, text: startText, depth: 1})

	depth := 1
	for b.s.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		if depth > b.cfg.TrimWarmup && depth%b.cfg.TrimEvery == 0 {
			b.trim(ctx, depth)
		}

		f, _ := b.s.queue.pop()
		depth = f.depth
		nPast, err := f.snap.Restore(b.m)
		if err != nil {
			return err
		}
		if err := b.expand(ctx, f, nPast); err != nil {
			return err
		}
	}
	return nil
}

// expand enqueues a frame for every candidate of f meeting the threshold,
// or records results when f is at the depth bound. A frame that continues
// nowhere is recorded as a leaf.
func (b *breadthFirst) expand(ctx context.Context, f *frame, nPast int) error {
	b.s.expanded(BreadthFirst)

	continued, accepted := 0, 0
	reason := StopReasonStalled
	for c := range Rank(b.m) {
		if accepted == b.cfg.BeamWidth || c.Prob < b.cfg.Threshold {
			break
		}
		if ctx.Err() != nil {
			reason = StopReasonCancelled
			break
		}
		accepted++

		piece := b.m.TokenToText(c.Token)
		b.s.logger.DebugContext(ctx, "candidate",
			slog.Int("depth", f.depth),
			slog.Float64("prob_sum", float64(f.probSum+c.Prob)),
			slog.String("text", f.text+piece),
		)

		if f.depth >= b.cfg.MaxDepth {
			b.s.record(BreadthFirst, Result{Text: f.text + piece, ProbSum: f.probSum + c.Prob, Depth: f.depth, Reason: StopReasonMaxDepth})
			continued++
			continue
		}

		ok, err := b.branch(ctx, f, nPast, c, piece)
		if err != nil {
			return err
		}
		if ok {
			continued++
		}
	}

	if continued == 0 {
		b.s.record(BreadthFirst, Result{Text: f.text, ProbSum: f.probSum, Depth: f.depth, Reason: reason})
	}
	return nil
}

// branch steps the model with c, queues the resulting state as a new frame
// and restores the parent state for the next sibling.
func (b *breadthFirst) branch(ctx context.Context, f *frame, nPast int, c TokenProb, piece string) (bool, error) {
	parent, err := b.s.store.capture(b.m, nPast)
	if err != nil {
		return false, err
	}
	defer parent.Dispose()

	if stepErr := b.m.Step(c.Token, nPast, b.threads); stepErr != nil {
		b.s.branchFailed(ctx, BreadthFirst, &EvaluationError{Token: c.Token, Position: nPast, Err: stepErr})
		_, err := parent.Restore(b.m)
		return false, err
	}

	child, err := b.s.store.capture(b.m, nPast+1)
	if err != nil {
		if _, restoreErr := parent.Restore(b.m); restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
		return false, err
	}
	b.s.queue.push(&frame{
		snap:    child,
		text:    f.text + piece,
		depth:   f.depth + 1,
		probSum: f.probSum + c.Prob,
	})

	if _, err := parent.Restore(b.m); err != nil {
		return false, err
	}
	return true, nil
}

func (b *breadthFirst) trim(ctx context.Context, depth int) {
	before := b.s.queue.Len()
	dropped := b.s.queue.trim(b.cfg.trimWidth())
	if dropped == 0 {
		return
	}
	b.s.trims++
	b.s.framesPruned += int64(dropped)
	b.s.metrics.queueTrimmed(dropped)
	b.s.logger.DebugContext(ctx, "queue trimmed",
		slog.Int("depth", depth),
		slog.Int("before", before),
		slog.Int("dropped", dropped),
	)
}

// abort empties the queue after search stopped early. Frames left by a
// cancellation become results; after a fatal error they are only disposed.
func (b *breadthFirst) abort(err error) {
	if !isCancellation(err) {
		b.s.queue.drain(nil)
		return
	}
	b.s.queue.drain(func(f *frame) {
		b.s.record(BreadthFirst, Result{Text: f.text, ProbSum: f.probSum, Depth: f.depth, Reason: StopReasonCancelled})
	})
}
