package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpInFlight       prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors for the HTTP API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codesnap",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		// Buckets reach past the execution timeout to cover grading with linters.
		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "codesnap",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"method", "route"})

		httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codesnap",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of API requests currently being served.",
		})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, httpInFlight)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPInFlight exposes the in-flight gauge.
func HTTPInFlight() prometheus.Gauge {
	RegisterMetrics()
	return httpInFlight
}
