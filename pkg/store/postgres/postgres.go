// Package postgres is the relational store client backed by a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dd0wney/cluso-ift/pkg/store"
)

const tracerName = "github.com/dd0wney/cluso-ift/pkg/store/postgres"

// Config locates the database.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxConns int32
	Timeout  time.Duration
}

// ConnString renders the config as a postgres:// URL with credentials escaped.
func (c Config) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Client runs read-only queries on a connection pool.
type Client struct {
	pool    *pgxpool.Pool
	tracer  trace.Tracer
	timeout time.Duration
}

var _ store.Querier = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTracer sets the tracer used for query spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// New opens a pool and verifies the database is reachable.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// one sequential generator needs few connections
	poolCfg.MaxConns = 4
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 5 * time.Minute
	poolCfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	c := &Client{
		pool:    pool,
		tracer:  otel.Tracer(tracerName),
		timeout: cfg.Timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Query runs sql with positional args ($1, $2, ...) and collects every row as a map.
func (c *Client) Query(ctx context.Context, sql string, args ...any) ([]store.Row, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "postgres.query", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", sql),
		attribute.Int("db.args", len(args)),
	))
	defer span.End()

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("query failed: %w", err)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	out := make([]store.Row, len(maps))
	for i, m := range maps {
		out[i] = convertRow(m)
	}
	span.SetAttributes(attribute.Int("db.rows", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// Ping checks database connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the connection pool
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

func convertRow(m map[string]any) store.Row {
	row := make(store.Row, len(m))
	for k, v := range m {
		row[k] = convertValue(v)
	}
	return row
}

// convertValue maps driver types that do not print well onto plain Go values.
func convertValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case []byte:
		return string(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = convertValue(e)
		}
		return out
	default:
		return v
	}
}
