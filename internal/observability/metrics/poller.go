package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PollerMetrics struct {
	registry *prometheus.Registry

	pollTotal      *prometheus.CounterVec
	pollDuration   *prometheus.HistogramVec
	pollsInFlight  prometheus.Gauge
	transactionLag *prometheus.HistogramVec
}

func NewPollerMetrics(service string) *PollerMetrics {
	registry := prometheus.NewRegistry()

	pollTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "poller",
			Name:      "polls_total",
			Help:      "Total poll steps by resulting transaction state.",
		},
		[]string{"service", "state"},
	)
	pollDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regsync",
			Subsystem: "poller",
			Name:      "poll_duration_seconds",
			Help:      "Duration of one poll step in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "state"},
	)
	pollsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "regsync",
			Subsystem:   "poller",
			Name:        "polls_in_flight",
			Help:        "Number of poll steps currently running.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	transactionLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regsync",
			Subsystem: "poller",
			Name:      "transaction_age_seconds",
			Help:      "Age of a transaction at poll time, from submission.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"service"},
	)

	registry.MustRegister(pollTotal, pollDuration, pollsInFlight, transactionLag)

	return &PollerMetrics{
		registry:       registry,
		pollTotal:      pollTotal,
		pollDuration:   pollDuration,
		pollsInFlight:  pollsInFlight,
		transactionLag: transactionLag,
	}
}

func (m *PollerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PollerMetrics) StartPoll() {
	m.pollsInFlight.Inc()
}

func (m *PollerMetrics) FinishPoll(service, state string, duration time.Duration) {
	m.pollsInFlight.Dec()
	m.pollTotal.WithLabelValues(service, state).Inc()
	m.pollDuration.WithLabelValues(service, state).Observe(duration.Seconds())
}

func (m *PollerMetrics) ObserveTransactionAge(service string, age time.Duration) {
	if age < 0 {
		return
	}
	m.transactionLag.WithLabelValues(service).Observe(age.Seconds())
}
