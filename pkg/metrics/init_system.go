package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSystemMetrics() {
	r.RunDurationSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ift_run_duration_seconds",
			Help: "Wall-clock duration of the last generation run",
		},
	)

	r.LastRunTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ift_last_run_timestamp_seconds",
			Help: "Unix time the last generation run finished",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ift_goroutines",
			Help: "Number of goroutines at the end of the run",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ift_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects at the end of the run",
		},
	)
}
