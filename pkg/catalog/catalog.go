// Package catalog reads CAPEC, CWE, CVE and MITRE ATT&CK entities from the relational
// store and renders each row into the placeholder values its templates reference.
package catalog

import (
	"context"
	"strings"

	"github.com/dd0wney/cluso-ift/pkg/assemble"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
	"github.com/dd0wney/cluso-ift/pkg/normalize"
	"github.com/dd0wney/cluso-ift/pkg/resolve"
	"github.com/dd0wney/cluso-ift/pkg/store"
)

// Catalog builds entity sources over both stores.
type Catalog struct {
	rows     store.Rows
	resolver *resolve.Resolver
	logger   logging.Logger
}

// New creates a Catalog. A nil logger or registry disables that side channel.
func New(rows store.Rows, graph store.GraphRows, logger logging.Logger, reg *metrics.Registry) *Catalog {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Catalog{
		rows:     rows,
		resolver: resolve.New(rows, graph, logger, reg),
		logger:   logger,
	}
}

// source is a table-backed assemble.Source.
type source struct {
	kind  assemble.Kind
	query string
	args  func(limit int) []any
	build func(ctx context.Context, row store.Row) assemble.Entity
	rows  store.Rows
}

func (s *source) Kind() assemble.Kind {
	return s.kind
}

func (s *source) Rows(ctx context.Context, limit int) []store.Row {
	return s.rows.Rows(ctx, s.query, s.args(limit)...)
}

func (s *source) Build(ctx context.Context, row store.Row) assemble.Entity {
	return s.build(ctx, row)
}

// limitArgs binds limit as the only parameter. A NULL limit returns every row.
func limitArgs(limit int) []any {
	return []any{limitArg(limit)}
}

func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// scalar renders a plain column, "None" when empty.
func scalar(v any) string {
	if s := strings.TrimSpace(normalize.Stringify(v)); s != "" {
		return s
	}
	return resolve.None
}

// id renders an identifier column, empty when absent.
func id(v any) string {
	return strings.TrimSpace(normalize.Stringify(v))
}
