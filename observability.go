package beam

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/expki/beam"

// searchTracer wraps an optional OpenTelemetry tracer.
// A nil provider yields noop spans.
type searchTracer struct {
	tracer  trace.Tracer
	enabled bool
}

func newSearchTracer(tp trace.TracerProvider) *searchTracer {
	if tp == nil {
		return &searchTracer{}
	}
	return &searchTracer{tracer: tp.Tracer(tracerName), enabled: true}
}

// start opens the span covering one search run.
func (t *searchTracer) start(ctx context.Context, sessionID string, strategy Strategy, cfg SearchConfig, startPos int) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "beam.search",
		trace.WithAttributes(
			attribute.String("beam.session_id", sessionID),
			attribute.String("beam.strategy", strategy.String()),
			attribute.Int("beam.beam_width", cfg.BeamWidth),
			attribute.Int("beam.max_depth", cfg.MaxDepth),
			attribute.Int("beam.start_position", startPos),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// end closes a run span with the session totals and error status.
func (t *searchTracer) end(span trace.Span, stats Stats, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.Int("beam.result.count", stats.Results),
		attribute.Int64("beam.result.frames_expanded", stats.FramesExpanded),
		attribute.Int64("beam.result.frames_pruned", stats.FramesPruned),
		attribute.Int64("beam.result.snapshots_captured", stats.SnapshotsCaptured),
		attribute.Int64("beam.result.bytes_peak", int64(stats.BytesPeak)),
		attribute.Int64("beam.result.eval_failures", stats.EvalFailures),
	)
	span.End()
}

// searchMetrics holds the Prometheus collectors of a session.
// A nil *searchMetrics records nothing.
type searchMetrics struct {
	snapshotsCaptured prometheus.Counter
	snapshotsLive     prometheus.Gauge
	snapshotBytesLive prometheus.Gauge
	framesExpanded    *prometheus.CounterVec
	results           *prometheus.CounterVec
	trims             prometheus.Counter
	framesPruned      prometheus.Counter
	evalFailures      *prometheus.CounterVec
}

// newSearchMetrics registers the collectors on reg. Sessions sharing a
// registry share collectors.
func newSearchMetrics(reg prometheus.Registerer) (*searchMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &searchMetrics{}
	var err error
	if m.snapshotsCaptured, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beam",
		Name:      "snapshots_captured_total",
		Help:      "Total model state snapshots captured",
	})); err != nil {
		return nil, err
	}
	if m.snapshotsLive, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "beam",
		Name:      "snapshots_live",
		Help:      "Snapshots captured but not yet restored or disposed",
	})); err != nil {
		return nil, err
	}
	if m.snapshotBytesLive, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "beam",
		Name:      "snapshot_bytes_live",
		Help:      "Bytes held by live snapshots",
	})); err != nil {
		return nil, err
	}
	if m.framesExpanded, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beam",
		Name:      "frames_expanded_total",
		Help:      "Frames whose candidates were ranked, by strategy",
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	if m.results, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beam",
		Name:      "results_total",
		Help:      "Recorded results by strategy and stop reason",
	}, []string{"strategy", "reason"})); err != nil {
		return nil, err
	}
	if m.trims, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beam",
		Name:      "queue_trims_total",
		Help:      "Breadth-first queue trims that dropped frames",
	})); err != nil {
		return nil, err
	}
	if m.framesPruned, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beam",
		Name:      "frames_pruned_total",
		Help:      "Breadth-first frames dropped by trimming",
	})); err != nil {
		return nil, err
	}
	if m.evalFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beam",
		Name:      "eval_failures_total",
		Help:      "Branches abandoned after a failed model step, by strategy",
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector that is already there.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *searchMetrics) snapshotCaptured(bytes int) {
	if m == nil {
		return
	}
	m.snapshotsCaptured.Inc()
	m.snapshotsLive.Inc()
	m.snapshotBytesLive.Add(float64(bytes))
}

func (m *searchMetrics) snapshotReleased(bytes int) {
	if m == nil {
		return
	}
	m.snapshotsLive.Dec()
	m.snapshotBytesLive.Sub(float64(bytes))
}

func (m *searchMetrics) frameExpanded(s Strategy) {
	if m == nil {
		return
	}
	m.framesExpanded.WithLabelValues(s.String()).Inc()
}

func (m *searchMetrics) resultRecorded(s Strategy, reason StopReason) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(s.String(), reason.String()).Inc()
}

func (m *searchMetrics) queueTrimmed(dropped int) {
	if m == nil {
		return
	}
	m.trims.Inc()
	m.framesPruned.Add(float64(dropped))
}

func (m *searchMetrics) evalFailed(s Strategy) {
	if m == nil {
		return
	}
	m.evalFailures.WithLabelValues(s.String()).Inc()
}
