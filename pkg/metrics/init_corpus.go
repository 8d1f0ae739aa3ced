package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCorpusMetrics() {
	r.FilesWrittenTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ift_files_written_total",
			Help: "Corpus files written, by kind",
		},
		[]string{"kind"},
	)

	r.BytesWrittenTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "ift_bytes_written_total",
			Help: "Bytes written to corpus files, after compression",
		},
	)

	r.UploadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ift_uploads_total",
			Help: "Corpus uploads to object storage, by outcome",
		},
		[]string{"status"},
	)

	r.CVSSMissingEntries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ift_cvss_missing_entries",
			Help: "Entries lacking any CVSS marker in the last checked file",
		},
	)
}
