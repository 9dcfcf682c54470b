// Package metrics provides Prometheus metrics for the CDA client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the CDA client.
type Metrics struct {
	// Job metrics
	JobsPlanned   *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	InFlightJobs  prometheus.Gauge

	// Copy metrics
	PartitionsCopied *prometheus.CounterVec
	RowsCopied       *prometheus.CounterVec
	SavepointValue   *prometheus.GaugeVec

	// Timing metrics
	JobDuration   *prometheus.HistogramVec
	FetchDuration *prometheus.HistogramVec

	// Error metrics
	StoreErrors *prometheus.CounterVec
	SinkErrors  *prometheus.CounterVec
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cda_client"
	}

	m := &Metrics{
		JobsPlanned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_planned_total",
				Help:      "Total number of copy jobs planned",
			},
			[]string{"table"},
		),
		JobsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_completed_total",
				Help:      "Total number of copy jobs completed successfully",
			},
			[]string{"table"},
		),
		JobsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_failed_total",
				Help:      "Total number of copy jobs that failed",
			},
			[]string{"table"},
		),
		InFlightJobs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "in_flight_jobs",
				Help:      "Number of copy jobs currently holding an execution slot",
			},
		),
		PartitionsCopied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "partitions_copied_total",
				Help:      "Total number of source partitions copied",
			},
			[]string{"table"},
		),
		RowsCopied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_copied_total",
				Help:      "Total number of rows written to the sink",
			},
			[]string{"table"},
		),
		SavepointValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "savepoint_timestamp",
				Help:      "Last committed savepoint timestamp per table",
			},
			[]string{"table"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Time to execute one copy job (fetch + merge + write + commit)",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
			},
			[]string{"table"},
		),
		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time to fetch and decode one partition",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"table"},
		),
		StoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of object store list/read errors",
			},
			[]string{"table"},
		),
		SinkErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_errors_total",
				Help:      "Total number of output sink write errors",
			},
			[]string{"table"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}
