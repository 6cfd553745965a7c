// Package metrics wraps the Prometheus collectors novafn exposes: per-call
// counters and a histogram, plus a gauge for pool occupancy, using a
// dedicated registry rather than the global default.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Metrics wraps the Prometheus collectors for a novafn daemon instance.
type Metrics struct {
	registry *prometheus.Registry

	InvocationsTotal   *prometheus.CounterVec
	ColdStartsTotal    prometheus.Counter
	InvocationDuration *prometheus.HistogramVec
	ActiveWorkers      prometheus.Gauge
	OperationsTotal    *prometheus.CounterVec
}

// New creates and registers the novafn metric collectors under namespace.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		InvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Total number of function invocations.",
		}, []string{"function", "status"}),
		ColdStartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cold_starts_total",
			Help:      "Total number of worker cold starts.",
		}),
		InvocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_ms",
			Help:      "Invocation latency in milliseconds.",
			Buckets:   defaultBuckets,
		}, []string{"function"}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of currently running worker processes.",
		}),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of registry operations by type and outcome.",
		}, []string{"type", "outcome"}),
	}

	registry.MustRegister(
		m.InvocationsTotal,
		m.ColdStartsTotal,
		m.InvocationDuration,
		m.ActiveWorkers,
		m.OperationsTotal,
	)
	return m
}

// Handler returns the HTTP handler novafn mounts at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
