package assemble

import (
	"context"

	"github.com/dd0wney/cluso-ift/pkg/filter"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
	"github.com/dd0wney/cluso-ift/pkg/store"
	"github.com/dd0wney/cluso-ift/pkg/template"
)

// Source fetches and renders the entities of one kind.
type Source interface {
	Kind() Kind

	// Rows fetches up to limit raw rows in a deterministic order. limit <= 0 means all.
	// Store failures yield no rows.
	Rows(ctx context.Context, limit int) []store.Row

	// Build renders one row into an entity, resolving its relations.
	Build(ctx context.Context, row store.Row) Entity
}

// Sink receives filled entries.
type Sink interface {
	Write(e template.Entry) error
}

// Options controls one run.
type Options struct {
	Limit  int
	Filter *filter.Filter
}

// Stats summarizes one run.
type Stats struct {
	Rows       int
	Filtered   int
	Entities   int
	Entries    int
	Templates  int
	Unresolved int
}

// Pipeline runs sources into a sink one entity at a time.
type Pipeline struct {
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewPipeline creates a Pipeline. A nil logger or registry disables that side channel.
func NewPipeline(logger logging.Logger, reg *metrics.Registry) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pipeline{logger: logger, metrics: reg}
}

// Run fetches src's rows, filters them, builds each entity and writes its entries to
// sink before moving to the next row. It fails only when the sink fails or ctx is done.
func (p *Pipeline) Run(ctx context.Context, src Source, templates []template.Template, sink Sink, opts Options) (Stats, error) {
	kind := src.Kind()
	log := p.logger.With(logging.Kind(kind.Name))
	timer := logging.StartTimer(log, "generate")

	var stats Stats
	selected := kind.Select(templates)
	stats.Templates = len(selected)
	if p.metrics != nil {
		p.metrics.SetTemplatesLoaded(kind.Name, len(selected))
	}
	if len(selected) == 0 {
		log.Warn("no templates apply to kind", logging.String("key_token", kind.KeyToken))
	}

	rows := src.Rows(ctx, opts.Limit)
	stats.Rows = len(rows)
	if len(rows) == 0 {
		log.Info("no rows found")
		timer.End(logging.Int("rows", 0))
		return stats, nil
	}

	a := New(kind, log, p.metrics)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			timer.EndError(err, logging.Int("entries", stats.Entries))
			return stats, err
		}

		ok, err := opts.Filter.Match(kind.Name, row)
		if err != nil {
			log.Warn("filter failed, row skipped", logging.Error(err))
		}
		if !ok {
			stats.Filtered++
			if p.metrics != nil {
				p.metrics.RecordFiltered(kind.Name)
			}
			continue
		}

		entity := src.Build(ctx, row)
		stats.Entities++
		for _, entry := range a.Entity(entity, selected) {
			if err := sink.Write(entry); err != nil {
				timer.EndError(err, logging.Int("entries", stats.Entries))
				return stats, err
			}
			stats.Entries++
		}
	}
	stats.Unresolved = a.Unresolved()

	timer.End(
		logging.Int("rows", stats.Rows),
		logging.Int("filtered", stats.Filtered),
		logging.Int("entities", stats.Entities),
		logging.Int("entries", stats.Entries),
		logging.Int("unresolved", stats.Unresolved),
	)
	return stats, nil
}
