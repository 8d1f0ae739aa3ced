package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for a generation run
type Registry struct {
	// Store metrics
	StoreQueriesTotal  *prometheus.CounterVec
	StoreQueryDuration *prometheus.HistogramVec
	StoreRowsReturned  *prometheus.HistogramVec

	// Generation metrics
	EntitiesTotal               *prometheus.CounterVec
	EntriesTotal                *prometheus.CounterVec
	FilteredTotal               *prometheus.CounterVec
	UnresolvedPlaceholdersTotal *prometheus.CounterVec
	RelationsTotal              *prometheus.CounterVec
	TemplatesLoaded             *prometheus.GaugeVec

	// Corpus metrics
	FilesWrittenTotal  *prometheus.CounterVec
	BytesWrittenTotal  prometheus.Counter
	UploadsTotal       *prometheus.CounterVec
	CVSSMissingEntries prometheus.Gauge

	// Run metrics
	RunDurationSeconds prometheus.Gauge
	LastRunTimestamp   prometheus.Gauge
	GoRoutines         prometheus.Gauge
	MemoryAllocBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initStoreMetrics()
	r.initGenerationMetrics()
	r.initCorpusMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
