// Package assemble pairs entities with the templates that apply to them and produces
// filled entries in a fixed order: entity, then template, then variant.
package assemble

import (
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
	"github.com/dd0wney/cluso-ift/pkg/template"
)

// Kind describes one entity kind.
type Kind struct {
	// Name labels logs, metrics and output files.
	Name string

	// KeyToken selects templates: one applies when its input references {KeyToken}. An
	// empty KeyToken applies every template.
	KeyToken string

	// VariantTokens mark templates filled once per entity variant rather than once per
	// entity. Their values come from Entity.Variants.
	VariantTokens []string

	// EmptyVariant fills variant templates for an entity that has no variants.
	EmptyVariant map[string]string
}

// Applies reports whether t is filled for this kind.
func (k Kind) Applies(t template.Template) bool {
	return k.KeyToken == "" || t.InputReferences(k.KeyToken)
}

// IsVariant reports whether t references any variant token.
func (k Kind) IsVariant(t template.Template) bool {
	for _, token := range k.VariantTokens {
		if t.References(token) {
			return true
		}
	}
	return false
}

// Select returns the templates that apply to the kind, in their original order.
func (k Kind) Select(templates []template.Template) []template.Template {
	var out []template.Template
	for _, t := range templates {
		if k.Applies(t) {
			out = append(out, t)
		}
	}
	return out
}

// Entity is one rendered entity: its placeholder values plus the per-relation values
// used by variant templates.
type Entity struct {
	ID       string
	Values   map[string]string
	Variants []map[string]string
}

// Assembler fills templates for entities of one kind.
type Assembler struct {
	kind       Kind
	logger     logging.Logger
	metrics    *metrics.Registry
	unresolved int
}

// New creates an Assembler. A nil logger or registry disables that side channel.
func New(kind Kind, logger logging.Logger, reg *metrics.Registry) *Assembler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Assembler{
		kind:    kind,
		logger:  logger,
		metrics: reg,
	}
}

// Kind returns the assembler's kind.
func (a *Assembler) Kind() Kind {
	return a.kind
}

// Unresolved returns the number of placeholders left literal so far.
func (a *Assembler) Unresolved() int {
	return a.unresolved
}

// Entity fills every template that applies to e. Templates must already be selected
// for the kind.
func (a *Assembler) Entity(e Entity, templates []template.Template) []template.Entry {
	var entries []template.Entry
	unresolved := 0

	fill := func(t template.Template, values map[string]string) {
		entry, missing := t.Fill(values)
		if len(missing) > 0 {
			unresolved += len(missing)
			a.logger.Debug("unresolved placeholders",
				logging.EntityID(e.ID),
				logging.Template(t.Line),
				logging.Any("tokens", missing),
			)
		}
		entries = append(entries, entry)
	}

	for _, t := range templates {
		if !a.kind.IsVariant(t) {
			fill(t, e.Values)
			continue
		}

		variants := e.Variants
		if len(variants) == 0 {
			variants = []map[string]string{a.kind.EmptyVariant}
		}
		for _, v := range variants {
			fill(t, merge(e.Values, v))
		}
	}

	a.unresolved += unresolved
	if a.metrics != nil {
		a.metrics.RecordEntity(a.kind.Name, len(entries))
		a.metrics.RecordUnresolved(a.kind.Name, unresolved)
	}
	return entries
}

// Assemble fills templates for every entity in order.
func Assemble(kind Kind, entities []Entity, templates []template.Template) []template.Entry {
	a := New(kind, nil, nil)
	selected := kind.Select(templates)

	var out []template.Entry
	for _, e := range entities {
		out = append(out, a.Entity(e, selected)...)
	}
	return out
}

func merge(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
