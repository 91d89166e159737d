package beam

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Session owns everything one tree exploration needs: the snapshot store,
// the breadth-first queue and the collected results.
//
// The model is a single mutable resource. A Session assumes exclusive use of
// it while a search runs, and searches on one Session are serialized.
// Results accumulate across runs until Reset.
type Session struct {
	id      string
	model   Model
	cfg     SearchConfig
	logger  *slog.Logger
	tracer  *searchTracer
	metrics *searchMetrics
	store   *snapshotStore
	queue   frameQueue
	results Results

	framesExpanded int64
	framesPruned   int64
	trims          int64
	evalFailures   int64
	branchErrs     []error

	mu     sync.Mutex // serializes runs; the model holds one state at a time
	closed bool
}

// NewSession creates a search session for m.
func NewSession(m Model, opts ...Option) (*Session, error) {
	if m == nil {
		return nil, ErrModelIsNil
	}

	cfg := DefaultSearchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics, err := newSearchMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	return &Session{
		id:      id,
		model:   m,
		cfg:     cfg,
		logger:  logger.With(slog.String("session", id)),
		tracer:  newSearchTracer(cfg.TracerProvider),
		metrics: metrics,
		store:   newSnapshotStore(cfg, metrics),
	}, nil
}

// RunDepthFirst evaluates a depth-first search over m from startPos and
// returns the session holding its results. The session is returned even when
// the search fails, so partial results remain readable.
func RunDepthFirst(ctx context.Context, m Model, startPos, beamWidth, maxDepth int, startText string, opts ...Option) (*Session, error) {
	opts = append([]Option{WithBeamWidth(beamWidth), WithMaxDepth(maxDepth)}, opts...)
	s, err := NewSession(m, opts...)
	if err != nil {
		return nil, err
	}
	return s, s.DepthFirst(ctx, startPos, startText)
}

// RunBreadthFirst evaluates a breadth-first search over m from startPos,
// expanding candidates whose probability is at least threshold.
func RunBreadthFirst(ctx context.Context, m Model, startPos, beamWidth, maxDepth int, startText string, threshold float32, opts ...Option) (*Session, error) {
	opts = append([]Option{WithBeamWidth(beamWidth), WithMaxDepth(maxDepth), WithThreshold(threshold)}, opts...)
	s, err := NewSession(m, opts...)
	if err != nil {
		return nil, err
	}
	return s, s.BreadthFirst(ctx, startPos, startText)
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Config returns the session's search configuration.
func (s *Session) Config() SearchConfig {
	if s == nil {
		return SearchConfig{}
	}
	return s.cfg
}

// Run dispatches to DepthFirst or BreadthFirst.
func (s *Session) Run(ctx context.Context, strategy Strategy, startPos int, startText string) error {
	if strategy == BreadthFirst {
		return s.BreadthFirst(ctx, startPos, startText)
	}
	return s.DepthFirst(ctx, startPos, startText)
}

// Best returns the result with the highest prob_sum.
func (s *Session) Best() (Result, error) {
	if s == nil {
		return Result{}, ErrSessionIsNil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results.Best()
}

// Results returns all results ordered by prob_sum descending.
func (s *Session) Results() []Result {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results.SortedAll()
}

// Stats returns snapshot and frame accounting for the session.
func (s *Session) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

// Reset discards recorded results and counters.
func (s *Session) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results.reset()
	s.framesExpanded, s.framesPruned, s.trims, s.evalFailures = 0, 0, 0, 0
	s.store.captured = 0
	s.store.peakBytes = s.store.liveBytes
}

// Close releases any snapshot still held by the session.
// It is safe to call Close multiple times.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.queue.drain(nil)
	return nil
}

func (s *Session) statsLocked() Stats {
	return Stats{
		SnapshotsCaptured: s.store.captured,
		SnapshotsLive:     s.store.live,
		BytesLive:         s.store.liveBytes,
		BytesPeak:         s.store.peakBytes,
		FramesExpanded:    s.framesExpanded,
		FramesPruned:      s.framesPruned,
		Trims:             s.trims,
		EvalFailures:      s.evalFailures,
		Results:           s.results.Len(),
	}
}

// run wraps one search with locking, tracing and logging. Branch failures
// collected during the search are joined behind any fatal error.
func (s *Session) run(ctx context.Context, strategy Strategy, startPos int, search func(context.Context) error) error {
	if s == nil {
		return ErrSessionIsNil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	ctx, span := s.tracer.start(ctx, s.id, strategy, s.cfg, startPos)
	s.logger.InfoContext(ctx, "beam search started",
		slog.String("strategy", strategy.String()),
		slog.Int("beam_width", s.cfg.BeamWidth),
		slog.Int("max_depth", s.cfg.MaxDepth),
		slog.Int("start_position", startPos),
	)

	s.branchErrs = nil
	err := search(ctx)
	if len(s.branchErrs) > 0 {
		err = errors.Join(append([]error{err}, s.branchErrs...)...)
	}
	s.branchErrs = nil

	stats := s.statsLocked()
	s.tracer.end(span, stats, err)
	s.logger.InfoContext(ctx, "beam search finished",
		slog.String("strategy", strategy.String()),
		slog.Int("results", stats.Results),
		slog.Int64("frames_expanded", stats.FramesExpanded),
		slog.Int64("snapshots", stats.SnapshotsCaptured),
		slog.String("peak_snapshot_memory", humanize.IBytes(stats.BytesPeak)),
		slog.Any("error", err),
	)
	return err
}

func (s *Session) record(strategy Strategy, res Result) {
	s.results.Add(res)
	s.metrics.resultRecorded(strategy, res.Reason)
}

func (s *Session) expanded(strategy Strategy) {
	s.framesExpanded++
	s.metrics.frameExpanded(strategy)
}

// branchFailed records a failed model step. The search abandons that branch
// and carries on with its siblings.
func (s *Session) branchFailed(ctx context.Context, strategy Strategy, err *EvaluationError) {
	s.evalFailures++
	s.branchErrs = append(s.branchErrs, err)
	s.metrics.evalFailed(strategy)
	s.logger.WarnContext(ctx, "branch abandoned",
		slog.String("strategy", strategy.String()),
		slog.Int("token", err.Token),
		slog.Int("position", err.Position),
		slog.Any("error", err.Err),
	)
}
