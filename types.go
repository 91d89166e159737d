package beam

// Strategy selects how the candidate tree is explored.
type Strategy int

const (
	DepthFirst   Strategy = iota // Recursive, one snapshot per tree level
	BreadthFirst                 // Queue of frames, trimmed to MaxWidth
)

// String returns the config-file spelling of the strategy.
func (s Strategy) String() string {
	switch s {
	case DepthFirst:
		return "depth_first"
	case BreadthFirst:
		return "breadth_first"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a config-file spelling back into a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "depth_first", "dfs", "recursive":
		return DepthFirst, true
	case "breadth_first", "bfs", "iterative":
		return BreadthFirst, true
	default:
		return DepthFirst, false
	}
}

// StopReason indicates why a candidate sequence was recorded as a result.
type StopReason int

const (
	StopReasonMaxDepth  StopReason = iota // Reached the depth bound
	StopReasonBeamWidth                   // Depth-first search with a beam width of one
	StopReasonStalled                     // No candidate met the probability threshold
	StopReasonCancelled                   // Context was cancelled or the search aborted
)

func (s StopReason) String() string {
	switch s {
	case StopReasonMaxDepth:
		return "max_depth"
	case StopReasonBeamWidth:
		return "beam_width"
	case StopReasonStalled:
		return "stalled"
	case StopReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TokenProb represents a next-token candidate with its probability.
type TokenProb struct {
	Token int     // Token ID
	Prob  float32 // Probability (0-1)
	Logit float32 // Raw logit value
}

// Result is a completed or abandoned candidate sequence.
type Result struct {
	Text    string     // Generated text, starting from the search's start text
	ProbSum float32    // Sum of the per-step candidate probabilities
	Depth   int        // Depth at which the sequence was recorded
	Reason  StopReason // Why the sequence stopped
}

// Stats reports snapshot and frame accounting for a session.
type Stats struct {
	SnapshotsCaptured int64  // Total snapshots taken
	SnapshotsLive     int    // Snapshots not yet restored or disposed
	BytesLive         uint64 // Bytes held by live snapshots
	BytesPeak         uint64 // High-water mark of BytesLive
	FramesExpanded    int64  // Frames whose candidates were ranked
	FramesPruned      int64  // Queue frames dropped by trimming
	Trims             int64  // Trim passes that dropped at least one frame
	EvalFailures      int64  // Abandoned branches
	Results           int    // Results recorded
}
