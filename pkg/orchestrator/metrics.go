package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments emitted at each stage boundary
// and loop transition, plus the registry they were registered against.
// Each Orchestrator owns its own registry rather than registering against
// the global prometheus.DefaultRegisterer, so constructing more than one
// Orchestrator in the same process (as the test suite does, one per spec)
// never trips a "duplicate metrics collector registration" panic; cmd's
// HTTP surface mounts Registry() under /metrics.
type Metrics struct {
	registry        *prometheus.Registry
	stageDuration   *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	routeTotal      *prometheus.CounterVec
	reactIterations *prometheus.HistogramVec
	approvalsTotal  prometheus.Counter
}

// Registry exposes the underlying Prometheus registry for a /metrics
// HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// NewMetrics builds a Metrics with its own fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "robobrain",
			Subsystem: "orchestrator",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent executing one pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pipeline", "stage"}),
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robobrain",
			Subsystem: "orchestrator",
			Name:      "stage_errors_total",
			Help:      "Count of stage executions that returned an error.",
		}, []string{"pipeline", "stage"}),
		routeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robobrain",
			Subsystem: "orchestrator",
			Name:      "kernel_route_total",
			Help:      "Count of Kernel passes by routing target.",
		}, []string{"route"}),
		reactIterations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "robobrain",
			Subsystem: "orchestrator",
			Name:      "react_iterations",
			Help:      "Number of ReAct iterations a session ran before stopping.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 20},
		}, []string{"stop_reason"}),
		approvalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "robobrain",
			Subsystem: "orchestrator",
			Name:      "approvals_required_total",
			Help:      "Count of human-approval interrupts raised by R5.",
		}),
	}
}
