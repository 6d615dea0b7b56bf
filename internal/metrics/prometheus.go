package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	IngestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartpulse_ingest_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"territory", "period", "status"}, // status: success|error|locked
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartpulse_ingest_duration_seconds",
			Help:    "Ingestion run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"territory", "period"},
	)

	SnapshotCompleteness = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chartpulse_snapshot_completeness_pct",
			Help: "Completeness percentage of the latest ingested snapshot",
		},
		[]string{"territory", "period"},
	)

	// Resolution metrics
	ResolutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartpulse_resolution_total",
			Help: "Total number of identifier resolution attempts",
		},
		[]string{"status"}, // status: hit|miss|error
	)

	// Enrichment metrics
	EnrichmentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartpulse_enrichment_calls_total",
			Help: "Total number of enrichment provider calls",
		},
		[]string{"call", "status"}, // call: track|artist|social, status: success|error
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartpulse_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartpulse_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chartpulse_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)
)

// Init registers all metrics with the default registry
func Init() {
	prometheus.MustRegister(IngestRuns)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(SnapshotCompleteness)

	prometheus.MustRegister(ResolutionTotal)
	prometheus.MustRegister(EnrichmentCalls)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordIngestRun records one pipeline ingestion run
func RecordIngestRun(territory, period string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	IngestRuns.WithLabelValues(territory, period, status).Inc()
	IngestDuration.WithLabelValues(territory, period).Observe(duration.Seconds())
}
