package emit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusEmitter implements Emitter by recording run/node lifecycle
// events as Prometheus metrics: counters for node outcomes, a histogram
// for node duration (read from Meta["duration_ms"] when the producing
// site sets it), and a gauge for in-flight nodes. Mirrors OTelEmitter's
// shape (a dedicated Emitter per observability backend) with a
// metrics-oriented reading of the same Event stream instead of a
// tracing-oriented one.
type PrometheusEmitter struct {
	nodeTotal    *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	nodesActive  prometheus.Gauge
	runTotal     *prometheus.CounterVec
}

// NewPrometheusEmitter registers its metrics with reg and returns an
// Emitter backed by them. Pass prometheus.DefaultRegisterer to use the
// global registry, or a fresh prometheus.NewRegistry() in tests to
// avoid collisions across runs.
func NewPrometheusEmitter(reg prometheus.Registerer) *PrometheusEmitter {
	e := &PrometheusEmitter{
		nodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodegraph",
			Name:      "node_executions_total",
			Help:      "Count of node executions by outcome.",
		}, []string{"outcome"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodegraph",
			Name:      "node_duration_seconds",
			Help:      "Node execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node_id"}),
		nodesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nodegraph",
			Name:      "nodes_active",
			Help:      "Number of node executions currently in flight.",
		}),
		runTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodegraph",
			Name:      "run_completions_total",
			Help:      "Count of completed runs by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(e.nodeTotal, e.nodeDuration, e.nodesActive, e.runTotal)
	return e
}

// Emit updates the relevant metric for event.Msg. Unrecognized messages
// are ignored; this emitter is additive to (not a replacement for)
// LogEmitter/OTelEmitter/BufferedEmitter, so silently skipping is
// correct rather than an error.
func (e *PrometheusEmitter) Emit(event Event) {
	switch event.Msg {
	case "node-started":
		e.nodesActive.Inc()
	case "node-completed":
		e.nodesActive.Dec()
		e.nodeTotal.WithLabelValues("completed").Inc()
		e.observeDuration(event)
	case "node-failed":
		e.nodesActive.Dec()
		e.nodeTotal.WithLabelValues("failed").Inc()
		e.observeDuration(event)
	case "run-completed", "run-failed", "run-canceled":
		outcome := event.Msg[len("run-"):]
		e.runTotal.WithLabelValues(outcome).Inc()
	}
}

func (e *PrometheusEmitter) observeDuration(event Event) {
	ms, ok := event.Meta["duration_ms"]
	if !ok {
		return
	}
	var seconds float64
	switch v := ms.(type) {
	case int64:
		seconds = float64(v) / 1000
	case int:
		seconds = float64(v) / 1000
	case float64:
		seconds = v / 1000
	case time.Duration:
		seconds = v.Seconds()
	default:
		return
	}
	e.nodeDuration.WithLabelValues(event.NodeID).Observe(seconds)
}

// EmitBatch emits every event in order; Prometheus client calls are
// cheap in-memory counter updates, so no batching optimization applies.
func (e *PrometheusEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, ev := range events {
		e.Emit(ev)
	}
	return nil
}

// Flush is a no-op: Prometheus metrics are pulled (scraped), not
// pushed, so there is nothing to flush.
func (e *PrometheusEmitter) Flush(context.Context) error { return nil }
