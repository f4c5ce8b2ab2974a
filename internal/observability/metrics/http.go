package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	submissionsTotal    *prometheus.CounterVec
	cancellationsTotal  *prometheus.CounterVec
	reconcilationErrors *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "regsync",
			Subsystem:   "http",
			Name:        "requests_in_flight",
			Help:        "Number of HTTP requests currently being served.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "engine",
			Name:      "submissions_total",
			Help:      "Total document submissions by channel and outcome.",
		},
		[]string{"service", "channel", "outcome"},
	)
	cancellationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "engine",
			Name:      "cancellations_total",
			Help:      "Total document cancellations by mode.",
		},
		[]string{"service", "mode"},
	)
	reconcilationErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "engine",
			Name:      "reconciliation_conflicts_total",
			Help:      "Remote-identifier conflicts surfaced for manual review.",
		},
		[]string{"service"},
	)

	registry.MustRegister(requestTotal, requestDuration, requestInFlight,
		submissionsTotal, cancellationsTotal, reconcilationErrors)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		submissionsTotal:    submissionsTotal,
		cancellationsTotal:  cancellationsTotal,
		reconcilationErrors: reconcilationErrors,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) ObserveRequest(service, method, path string, status int, duration time.Duration) {
	m.requestTotal.WithLabelValues(service, method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RequestStarted()  { m.requestInFlight.Inc() }
func (m *HTTPServerMetrics) RequestFinished() { m.requestInFlight.Dec() }

func (m *HTTPServerMetrics) ObserveSubmission(service, channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.submissionsTotal.WithLabelValues(service, channel, outcome).Inc()
}

func (m *HTTPServerMetrics) ObserveCancellation(service, mode string) {
	m.cancellationsTotal.WithLabelValues(service, mode).Inc()
}

func (m *HTTPServerMetrics) ObserveReconciliationConflict(service string) {
	m.reconcilationErrors.WithLabelValues(service).Inc()
}
