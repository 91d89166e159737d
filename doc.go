// Package beam explores the tree of likely continuations of a generative
// language model, saving and restoring the model's internal state so that
// sibling branches all start from the same point.
//
// The model is a single mutable resource: every evaluated token changes its
// state in place. Beam takes a byte-exact [Snapshot] before each branch and
// writes it back afterwards, so one model instance can be walked like a tree.
//
// # Quick Start
//
// Prime the model with a prompt, then run a search from the resulting
// position:
//
//	model, err := ngram.Train(corpus)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	pos, err := beam.Prime(ctx, model, "the quick", 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session, err := beam.RunBreadthFirst(ctx, model, pos, 4, 8, "the quick", 0.1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	best, _ := session.Best()
//	fmt.Println(best.Text)
//
// # Core Abstractions
//
//   - [Model]: The capability a backend exposes. State size, state copy and
//     load, single-token steps, logits and tokenization.
//
//   - [Snapshot]: A copy of the model state plus its position counter. Each
//     snapshot has one owner and is released exactly once, by Restore or by
//     Dispose.
//
//   - [Session]: Owns the snapshot store, the breadth-first queue and the
//     results of one exploration. Replaces any process-wide search state.
//
//   - [Results]: The terminal sequences a search recorded, queryable for the
//     best one or in ranked order.
//
// # Strategies
//
// [Session.DepthFirst] recurses into the top candidates of each frame. At
// most MaxDepth snapshots are live at once and the model is back in its
// starting state when the search returns.
//
// [Session.BreadthFirst] keeps a FIFO of frames, each holding its own
// snapshot. Past a warmup depth the queue is periodically trimmed to the
// frames with the highest probability sum. It also restores the starting
// state before returning, so a session can be run again on the same model.
//
// # Configuration
//
// Beam uses functional options:
//
//	session, err := beam.NewSession(model,
//	    beam.WithBeamWidth(4),
//	    beam.WithMaxDepth(12),
//	    beam.WithMemoryLimit(256<<20),
//	)
//
// [LoadConfig] reads the same settings from a YAML or JSON file with BEAM_*
// environment overrides.
//
// # Error Handling
//
// Errors that make the search unsafe to continue (snapshot allocation, state
// size mismatch, use of a released snapshot) abort it. A failed model step
// only abandons its branch; those failures are joined into the returned
// error and can be matched with errors.Is(err, [ErrEvaluationFailed]).
// Partial results stay readable on the session after any error.
//
// # Thread Safety
//
// A Session serializes its searches; the model it drives must not be used
// elsewhere while a search runs. Results and Stats may be read from other
// goroutines between runs.
package beam
