package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGenerationMetrics() {
	r.EntitiesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ift_entities_total",
			Help: "Entities rendered, by kind",
		},
		[]string{"kind"},
	)

	r.EntriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ift_entries_total",
			Help: "Filled entries produced, by kind",
		},
		[]string{"kind"},
	)

	r.FilteredTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ift_entities_filtered_total",
			Help: "Rows skipped by the --where filter, by kind",
		},
		[]string{"kind"},
	)

	r.UnresolvedPlaceholdersTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ift_unresolved_placeholders_total",
			Help: "Template tokens left literal because no value was known, by kind",
		},
		[]string{"kind"},
	)

	r.RelationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ift_relations_resolved_total",
			Help: "Relation lookups, by relation and outcome (resolved or none)",
		},
		[]string{"relation", "outcome"},
	)

	r.TemplatesLoaded = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ift_templates_loaded",
			Help: "Templates loaded for the current run, by kind",
		},
		[]string{"kind"},
	)
}
