// Package store defines the read-only boundary to the relational and graph stores and the
// adapters that apply the store-unavailable policy: failures are logged and counted, and
// callers see an empty result instead of an error.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-ift/pkg/cypher"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
)

// Row is one result row keyed by column name. Values keep the driver's decoded types; jsonb
// columns arrive already decoded, text columns holding JSON stay strings.
type Row map[string]any

// ErrGraphStatement is returned when the graph store rejects a statement.
var ErrGraphStatement = errors.New("graph statement failed")

// Querier runs parameterized SQL against the relational store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
}

// GraphQuerier runs a Cypher statement and returns rows keyed by keys, or by the result's
// own column names when keys is nil.
type GraphQuerier interface {
	QueryDict(ctx context.Context, st cypher.Statement, keys []string) ([]Row, error)
}

// Rows is the error-free relational view used by entity sources and resolvers.
type Rows interface {
	Rows(ctx context.Context, sql string, args ...any) []Row
}

// GraphRows is the error-free graph view used by resolvers.
type GraphRows interface {
	GraphRows(ctx context.Context, st cypher.Statement, keys []string) []Row
}

// SafeQuerier adapts a Querier to Rows.
type SafeQuerier struct {
	q       Querier
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewSafeQuerier wraps q. A nil logger or registry disables that side channel.
func NewSafeQuerier(q Querier, logger logging.Logger, reg *metrics.Registry) *SafeQuerier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SafeQuerier{q: q, logger: logger.With(logging.Store(metrics.StorePostgres)), metrics: reg}
}

// Rows runs the query and returns its rows, or nil after logging a failure.
func (s *SafeQuerier) Rows(ctx context.Context, sql string, args ...any) []Row {
	start := time.Now()
	rows, err := s.q.Query(ctx, sql, args...)
	if s.metrics != nil {
		s.metrics.RecordStoreQuery(metrics.StorePostgres, err, len(rows), time.Since(start))
	}
	if err != nil {
		s.logger.Error("relational query failed",
			logging.Error(err), logging.Statement(sql), logging.Latency(time.Since(start)))
		return nil
	}
	s.logger.Debug("relational query", logging.Statement(sql), logging.Count(len(rows)),
		logging.Latency(time.Since(start)))
	return rows
}

// SafeGraph adapts a GraphQuerier to GraphRows.
type SafeGraph struct {
	g       GraphQuerier
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewSafeGraph wraps g. A nil logger or registry disables that side channel.
func NewSafeGraph(g GraphQuerier, logger logging.Logger, reg *metrics.Registry) *SafeGraph {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SafeGraph{g: g, logger: logger.With(logging.Store(metrics.StoreNeo4j)), metrics: reg}
}

// GraphRows runs the statement and returns its rows, or nil after logging a failure.
func (s *SafeGraph) GraphRows(ctx context.Context, st cypher.Statement, keys []string) []Row {
	start := time.Now()
	rows, err := s.g.QueryDict(ctx, st, keys)
	if s.metrics != nil {
		s.metrics.RecordStoreQuery(metrics.StoreNeo4j, err, len(rows), time.Since(start))
	}
	if err != nil {
		s.logger.Error("graph query failed",
			logging.Error(err), logging.Statement(st.Inline()), logging.Latency(time.Since(start)))
		return nil
	}
	if s.logger.GetLevel() <= logging.DebugLevel {
		s.logger.Debug("graph query", logging.Statement(st.Inline()), logging.Count(len(rows)),
			logging.Latency(time.Since(start)))
	}
	return rows
}
