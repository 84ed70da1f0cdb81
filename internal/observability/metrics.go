package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	stalenessScanSeconds prometheus.Histogram
	approvalsTotal       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "koreksi_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "koreksi_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "koreksi_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		stalenessScanSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "koreksi_staleness_scan_seconds",
			Help:    "Latency distribution for activity staleness scans.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		})

		approvalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "koreksi_approvals_total",
			Help: "Total number of recorded approval decisions by status.",
		}, []string{"status"})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, httpErrorsTotal, stalenessScanSeconds, approvalsTotal)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// StalenessScanLatency exposes the histogram for activity scans.
func StalenessScanLatency() prometheus.Histogram {
	RegisterMetrics()
	return stalenessScanSeconds
}

// ApprovalDecisions exposes the counter for recorded approval decisions.
func ApprovalDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return approvalsTotal
}
