package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the reconciliation backend.
type Metrics struct {
	config MetricsConfig

	// Pass metrics
	passesStarted   prometheus.Counter
	passesCompleted *prometheus.CounterVec
	passDuration    prometheus.Histogram
	lockContention  prometheus.Counter

	// Entity metrics
	entitiesProcessed *prometheus.CounterVec
	entityDuration    *prometheus.HistogramVec
	queueDepth        *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		passesStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_started_total",
				Help:      "Total number of reconciliation passes started",
			},
		),
		passesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_completed_total",
				Help:      "Total number of reconciliation passes completed",
			},
			[]string{"result"},
		),
		passDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Duration of a reconciliation pass in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		lockContention: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_contention_total",
				Help:      "Number of pass invocations that found the lock held",
			},
		),
		entitiesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_processed_total",
				Help:      "Total number of entities processed",
			},
			[]string{"kind", "outcome"},
		),
		entityDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "entity_duration_seconds",
				Help:      "Duration of a single entity reconciliation in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind", "verb"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Number of pending rows per entity kind at pass start",
			},
			[]string{"kind"},
		),
	}

	collectors := []prometheus.Collector{
		m.passesStarted,
		m.passesCompleted,
		m.passDuration,
		m.lockContention,
		m.entitiesProcessed,
		m.entityDuration,
		m.queueDepth,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// PassStarted records the start of a reconciliation pass.
func (m *Metrics) PassStarted() {
	if m.registry == nil {
		return
	}
	m.passesStarted.Inc()
}

// PassCompleted records a completed pass with its result and duration.
func (m *Metrics) PassCompleted(result string, d time.Duration) {
	if m.registry == nil {
		return
	}
	m.passesCompleted.WithLabelValues(result).Inc()
	m.passDuration.Observe(d.Seconds())
}

// LockContention records a pass invocation that found the lock held.
func (m *Metrics) LockContention() {
	if m.registry == nil {
		return
	}
	m.lockContention.Inc()
}

// EntityProcessed records an entity outcome ("ok", "error", "skipped").
func (m *Metrics) EntityProcessed(kind, outcome string) {
	if m.registry == nil {
		return
	}
	m.entitiesProcessed.WithLabelValues(kind, outcome).Inc()
}

// EntityDuration records how long a single entity reconciliation took.
func (m *Metrics) EntityDuration(kind, verb string, d time.Duration) {
	if m.registry == nil {
		return
	}
	m.entityDuration.WithLabelValues(kind, verb).Observe(d.Seconds())
}

// SetQueueDepth records the number of pending rows for a kind at pass start.
func (m *Metrics) SetQueueDepth(kind string, depth int) {
	if m.registry == nil {
		return
	}
	m.queueDepth.WithLabelValues(kind).Set(float64(depth))
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the metrics HTTP server. It blocks until the server fails.
func (m *Metrics) Serve() error {
	if m.registry == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(m.config.ListenAddress, mux)
}
