package metrics

import (
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store names used as label values
const (
	StorePostgres = "postgres"
	StoreNeo4j    = "neo4j"
)

// RecordStoreQuery records one store round trip
func (r *Registry) RecordStoreQuery(store string, err error, rows int, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.StoreQueriesTotal.WithLabelValues(store, status).Inc()
	r.StoreQueryDuration.WithLabelValues(store).Observe(duration.Seconds())
	if err == nil {
		r.StoreRowsReturned.WithLabelValues(store).Observe(float64(rows))
	}
}

// RecordEntity records one rendered entity and the entries assembled from it
func (r *Registry) RecordEntity(kind string, entries int) {
	r.EntitiesTotal.WithLabelValues(kind).Inc()
	r.EntriesTotal.WithLabelValues(kind).Add(float64(entries))
}

// RecordFiltered records a row skipped by the row filter
func (r *Registry) RecordFiltered(kind string) {
	r.FilteredTotal.WithLabelValues(kind).Inc()
}

// RecordUnresolved records tokens left literal in a filled entry
func (r *Registry) RecordUnresolved(kind string, n int) {
	if n <= 0 {
		return
	}
	r.UnresolvedPlaceholdersTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordRelation records a relation lookup; resolved is false when it fell back to "None"
func (r *Registry) RecordRelation(relation string, resolved bool) {
	outcome := "resolved"
	if !resolved {
		outcome = "none"
	}
	r.RelationsTotal.WithLabelValues(relation, outcome).Inc()
}

// SetTemplatesLoaded records how many templates a kind runs with
func (r *Registry) SetTemplatesLoaded(kind string, n int) {
	r.TemplatesLoaded.WithLabelValues(kind).Set(float64(n))
}

// RecordFileWritten records a finished corpus file
func (r *Registry) RecordFileWritten(kind string, bytes int64) {
	r.FilesWrittenTotal.WithLabelValues(kind).Inc()
	r.BytesWrittenTotal.Add(float64(bytes))
}

// RecordUpload records an upload attempt
func (r *Registry) RecordUpload(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.UploadsTotal.WithLabelValues(status).Inc()
}

// FinishRun stamps the run duration, completion time and process figures
func (r *Registry) FinishRun(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.RunDurationSeconds.Set(duration.Seconds())
	r.LastRunTimestamp.Set(float64(time.Now().Unix()))
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
}

// WriteTextfile writes every metric in the Prometheus text format to path, for pickup by a
// node_exporter textfile collector. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
