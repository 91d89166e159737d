package beam

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// SearchConfig holds configuration for a search session.
type SearchConfig struct {
	BeamWidth    int     // Maximum candidates expanded from one frame
	MaxDepth     int     // Deepest level a sequence may reach
	Cutoff       float32 // Depth-first: candidates below this probability are not expanded
	MinBranching int     // Depth-first: expand at least this many candidates per frame
	Threshold    float32 // Breadth-first: candidates below this probability stop the frame
	MaxWidth     int     // Breadth-first: queue width kept by a trim (0 = BeamWidth)
	TrimWarmup   int     // Breadth-first: no trimming until depth exceeds this
	TrimEvery    int     // Breadth-first: trim on depths divisible by this
	Threads      int     // Thread hint passed to Model.Step (0 = strategy default)

	MemoryLimit uint64 // Maximum bytes held by live snapshots (0 = unlimited)
	Compress    bool   // Store snapshots lz4-compressed

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	Registerer     prometheus.Registerer
}

// DefaultSearchConfig returns a SearchConfig with sensible defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		BeamWidth:    8,
		MaxDepth:     16,
		Cutoff:       0.1,
		MinBranching: 2,
		Threshold:    0.1,
		MaxWidth:     0,
		TrimWarmup:   10,
		TrimEvery:    3,
		Threads:      0,
		MemoryLimit:  0,
		Compress:     false,
	}
}

// Validate reports the first field that cannot drive a search.
func (c SearchConfig) Validate() error {
	switch {
	case c.BeamWidth < 1:
		return fmt.Errorf("%w: beam width %d < 1", ErrInvalidConfig, c.BeamWidth)
	case c.MaxDepth < 1:
		return fmt.Errorf("%w: max depth %d < 1", ErrInvalidConfig, c.MaxDepth)
	case c.Cutoff < 0 || c.Cutoff > 1:
		return fmt.Errorf("%w: cutoff %g outside [0, 1]", ErrInvalidConfig, c.Cutoff)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("%w: threshold %g outside [0, 1]", ErrInvalidConfig, c.Threshold)
	case c.MinBranching < 0:
		return fmt.Errorf("%w: min branching %d < 0", ErrInvalidConfig, c.MinBranching)
	case c.MaxWidth < 0:
		return fmt.Errorf("%w: max width %d < 0", ErrInvalidConfig, c.MaxWidth)
	case c.TrimEvery < 1:
		return fmt.Errorf("%w: trim interval %d < 1", ErrInvalidConfig, c.TrimEvery)
	}
	return nil
}

// trimWidth returns the queue width a trim keeps.
func (c SearchConfig) trimWidth() int {
	if c.MaxWidth > 0 {
		return c.MaxWidth
	}
	return c.BeamWidth
}

// threads returns the thread hint for a strategy.
func (c SearchConfig) threads(s Strategy) int {
	if c.Threads > 0 {
		return c.Threads
	}
	if s == BreadthFirst {
		return 12
	}
	return 1
}

// Option configures a search session.
type Option func(*SearchConfig)

// WithBeamWidth sets the maximum number of candidates expanded from one frame.
func WithBeamWidth(n int) Option {
	return func(c *SearchConfig) { c.BeamWidth = n }
}

// WithMaxDepth sets the depth bound.
func WithMaxDepth(n int) Option {
	return func(c *SearchConfig) { c.MaxDepth = n }
}

// WithCutoff sets the probability a depth-first candidate needs to be expanded.
func WithCutoff(p float32) Option {
	return func(c *SearchConfig) { c.Cutoff = p }
}

// WithMinBranching sets how many candidates a depth-first frame expands
// when too few meet the cutoff.
func WithMinBranching(n int) Option {
	return func(c *SearchConfig) { c.MinBranching = n }
}

// WithThreshold sets the probability a breadth-first candidate needs to be expanded.
func WithThreshold(p float32) Option {
	return func(c *SearchConfig) { c.Threshold = p }
}

// WithMaxWidth sets how many queued frames survive a trim.
// Use 0 to trim to the beam width.
func WithMaxWidth(n int) Option {
	return func(c *SearchConfig) { c.MaxWidth = n }
}

// WithTrimSchedule sets when the breadth-first queue is trimmed: once the
// depth exceeds warmup, on every depth divisible by every.
func WithTrimSchedule(warmup, every int) Option {
	return func(c *SearchConfig) {
		c.TrimWarmup = warmup
		c.TrimEvery = every
	}
}

// WithThreads sets the thread hint passed to the model on every step.
func WithThreads(n int) Option {
	return func(c *SearchConfig) { c.Threads = n }
}

// WithMemoryLimit caps the bytes held by live snapshots.
// Captures beyond the limit fail with ErrAllocation.
func WithMemoryLimit(bytes uint64) Option {
	return func(c *SearchConfig) { c.MemoryLimit = bytes }
}

// WithSnapshotCompression stores snapshot bytes lz4-compressed.
// Trades CPU on every capture and restore for lower memory pressure.
func WithSnapshotCompression(enable bool) Option {
	return func(c *SearchConfig) { c.Compress = enable }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *SearchConfig) { c.Logger = logger }
}

// WithTracerProvider enables OpenTelemetry spans for each search run.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *SearchConfig) { c.TracerProvider = tp }
}

// WithMetrics registers Prometheus collectors for the session on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *SearchConfig) { c.Registerer = reg }
}
