// Package metrics defines the Prometheus collectors for the validation
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSize      *prometheus.HistogramVec
	ValidationsTotal      *prometheus.CounterVec
	ValidationErrorsTotal *prometheus.CounterVec
	ValidationLatency     *prometheus.HistogramVec
	IndexClasses          prometheus.Gauge
	IndexModules          prometheus.Gauge
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	ToolCallsTotal        *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg. A nil reg means
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response body size in bytes.",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"method", "path"},
		),
		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validations_total",
				Help: "Total code validations by result (valid, invalid).",
			},
			[]string{"result"},
		),
		ValidationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validation_errors_total",
				Help: "Validation diagnostics reported, by error type.",
			},
			[]string{"error_type"},
		),
		ValidationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "validation_latency_seconds",
				Help:    "Code validation latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		IndexClasses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_classes",
				Help: "Number of classes in the loaded API index.",
			},
		),
		IndexModules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_modules",
				Help: "Number of modules in the loaded API index.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of validation cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of validation cache misses.",
			},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Tool invocations by tool name and status (ok, error).",
			},
			[]string{"tool", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.HTTPResponseSize,
		m.ValidationsTotal,
		m.ValidationErrorsTotal,
		m.ValidationLatency,
		m.IndexClasses,
		m.IndexModules,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ToolCallsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// HandlerFor serves the metrics gathered by g; nil means the default
// gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
