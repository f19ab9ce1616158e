package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	classifications *prometheus.CounterVec
	events          *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mail_http_request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_http_errors_total",
			Help: "HTTP error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_classifications_total",
			Help: "Spam classifier invocations, result is spam, ham or error.",
		}, []string{"backend", "result"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_events_total",
			Help: "Domain events observed by the audit trail.",
		}, []string{"type"}),
	}
}

// Registry exposes the registry for the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordClassification counts a classifier outcome.
func (m *Metrics) RecordClassification(backend, result string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(backend, result).Inc()
}

// RecordEvent counts a domain event.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}
