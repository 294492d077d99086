package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	requestsTotal         *prometheus.CounterVec
	requestLatencySeconds *prometheus.HistogramVec
	requestErrorsTotal    *prometheus.CounterVec
	batchSubmissionsTotal *prometheus.CounterVec
	batchEntries          *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escola_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escola_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		requestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escola_request_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		batchSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escola_batch_submissions_total",
			Help: "Total number of batch submissions, by record kind and outcome.",
		}, []string{"kind", "outcome"})

		batchEntries = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escola_batch_entries",
			Help:    "Distribution of entries per submitted batch.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}, []string{"kind"})

		prometheus.MustRegister(requestsTotal, requestLatencySeconds, requestErrorsTotal, batchSubmissionsTotal, batchEntries)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency exposes the latency histogram for API requests.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// RequestErrors exposes the counter for API error responses.
func RequestErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return requestErrorsTotal
}

// BatchSubmissions exposes the counter for batch submissions.
func BatchSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return batchSubmissionsTotal
}

// BatchEntries exposes the per-batch entry count histogram.
func BatchEntries() *prometheus.HistogramVec {
	RegisterMetrics()
	return batchEntries
}
