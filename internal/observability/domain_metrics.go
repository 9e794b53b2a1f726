package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statline_query_requests_total",
			Help: "Total number of dataset query requests by outcome.",
		},
		[]string{"dataset", "outcome"},
	)
	queryRowsReturnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_query_rows_returned_total",
			Help: "Total number of rows returned by dataset queries.",
		},
	)
	queryDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "statline_query_duration_ms",
			Help:    "Dataset query latency in milliseconds, store round trip included.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000},
		},
	)
	registryDatasets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statline_registry_datasets",
			Help: "Number of datasets in the active registry snapshot.",
		},
	)
	registryLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_registry_load_errors_total",
			Help: "Total number of registry spec files rejected at load time.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queryRequestsTotal,
		queryRowsReturnedTotal,
		queryDurationMs,
		registryDatasets,
		registryLoadErrorsTotal,
	)
}

func ObserveQuery(dataset, outcome string, rows int, elapsed time.Duration) {
	queryRequestsTotal.WithLabelValues(dataset, outcome).Inc()
	if rows > 0 {
		queryRowsReturnedTotal.Add(float64(rows))
	}
	queryDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func SetRegistryMetrics(datasets, loadErrors int) {
	registryDatasets.Set(float64(datasets))
	if loadErrors > 0 {
		registryLoadErrorsTotal.Add(float64(loadErrors))
	}
}
