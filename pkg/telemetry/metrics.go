package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the synthesis pipeline. With
// metrics disabled every recorder is a no-op, so callers never have to
// check.
type Metrics struct {
	config MetricsConfig

	specsValidated     *prometheus.CounterVec
	validationFailures *prometheus.CounterVec

	graphsSynthesized *prometheus.CounterVec
	synthDuration     *prometheus.HistogramVec
	graphNodes        *prometheus.HistogramVec

	guardEvaluations *prometheus.CounterVec
	guardViolations  *prometheus.CounterVec

	documentsLoaded *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		specsValidated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "specs_validated_total",
				Help:      "Total number of resource specs validated",
			},
			[]string{"family", "result"},
		),
		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of individual validation rule failures",
			},
			[]string{"family"},
		),

		graphsSynthesized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graphs_synthesized_total",
				Help:      "Total number of resource graphs synthesized",
			},
			[]string{"family", "result"},
		),
		synthDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "synth_duration_seconds",
				Help:      "Duration of graph synthesis in seconds",
				Buckets:   buckets,
			},
			[]string{"family"},
		),
		graphNodes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_nodes",
				Help:      "Node count per synthesized graph",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"family"},
		),

		guardEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_evaluations_total",
				Help:      "Total number of guard policy evaluations",
			},
			[]string{"result"},
		),
		guardViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_violations_total",
				Help:      "Total number of guard policy violations",
			},
			[]string{"policy", "severity"},
		),

		documentsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_loaded_total",
				Help:      "Total number of stack documents loaded",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.specsValidated,
		m.validationFailures,
		m.graphsSynthesized,
		m.synthDuration,
		m.graphNodes,
		m.guardEvaluations,
		m.guardViolations,
		m.documentsLoaded,
	)

	return m, nil
}

// RecordSpecValidated records a validation pass over one spec.
func (m *Metrics) RecordSpecValidated(family string, ok bool, failures int) {
	if m.specsValidated == nil {
		return
	}
	m.specsValidated.WithLabelValues(family, resultLabel(ok)).Inc()
	if failures > 0 {
		m.validationFailures.WithLabelValues(family).Add(float64(failures))
	}
}

// RecordSynthesis records one graph synthesis with its duration and size.
func (m *Metrics) RecordSynthesis(family string, ok bool, duration time.Duration, nodes int) {
	if m.graphsSynthesized == nil {
		return
	}
	m.graphsSynthesized.WithLabelValues(family, resultLabel(ok)).Inc()
	if ok {
		m.synthDuration.WithLabelValues(family).Observe(duration.Seconds())
		m.graphNodes.WithLabelValues(family).Observe(float64(nodes))
	}
}

// RecordGuardEvaluation records one guard run and its violations.
func (m *Metrics) RecordGuardEvaluation(allowed bool) {
	if m.guardEvaluations == nil {
		return
	}
	m.guardEvaluations.WithLabelValues(resultLabel(allowed)).Inc()
}

// RecordGuardViolation records one violation by policy and severity.
func (m *Metrics) RecordGuardViolation(policy, severity string) {
	if m.guardViolations == nil {
		return
	}
	m.guardViolations.WithLabelValues(policy, severity).Inc()
}

// RecordDocumentLoaded records a document load.
func (m *Metrics) RecordDocumentLoaded(ok bool) {
	if m.documentsLoaded == nil {
		return
	}
	m.documentsLoaded.WithLabelValues(resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
