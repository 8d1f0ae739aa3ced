package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StoreQueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ift_store_queries_total",
			Help: "Total number of store round trips by store and outcome",
		},
		[]string{"store", "status"},
	)

	r.StoreQueryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ift_store_query_duration_seconds",
			Help:    "Store round-trip duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"store"},
	)

	r.StoreRowsReturned = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ift_store_rows_returned",
			Help:    "Rows returned per store round trip",
			Buckets: []float64{0, 1, 5, 10, 100, 1000, 10000},
		},
		[]string{"store"},
	)
}
