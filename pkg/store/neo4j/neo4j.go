// Package neo4j is the graph store client. It runs parameter-bound, read-only Cypher
// statements through the official Neo4j driver and routes them to readers.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dd0wney/cluso-ift/pkg/cypher"
	"github.com/dd0wney/cluso-ift/pkg/store"
)

const (
	// DefaultTimeout bounds one statement, connection acquisition included
	DefaultTimeout = 60 * time.Second

	// DefaultDatabase is the database addressed when none is configured
	DefaultDatabase = "neo4j"

	tracerName = "github.com/dd0wney/cluso-ift/pkg/store/neo4j"
)

// Config locates the server. URL uses one of the driver's schemes (neo4j, neo4j+s, bolt, ...).
type Config struct {
	URL      string
	Database string
	User     string
	Password string
	Timeout  time.Duration
}

// executor is the driver boundary.
type executor interface {
	execute(ctx context.Context, st cypher.Statement) (*neo4j.EagerResult, error)
	verify(ctx context.Context) error
	close(ctx context.Context) error
}

type driverExecutor struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d *driverExecutor) execute(ctx context.Context, st cypher.Statement) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, d.driver, st.Text, st.Params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(d.database),
		neo4j.ExecuteQueryWithReadersRouting())
}

func (d *driverExecutor) verify(ctx context.Context) error {
	return d.driver.VerifyConnectivity(ctx)
}

func (d *driverExecutor) close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// Client runs read-only Cypher statements.
type Client struct {
	exec    executor
	timeout time.Duration
	tracer  trace.Tracer
}

var _ store.GraphQuerier = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTracer sets the tracer used for statement spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// NewClient creates a client for cfg. The driver connects on first use.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	database := cfg.Database
	if database == "" {
		database = DefaultDatabase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URL, neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4jconfig.Config) {
			c.SocketConnectTimeout = timeout
			c.ConnectionAcquisitionTimeout = timeout
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return newClient(&driverExecutor{driver: driver, database: database}, timeout, opts...), nil
}

func newClient(exec executor, timeout time.Duration, opts ...Option) *Client {
	c := &Client{exec: exec, timeout: timeout, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryDict runs st and returns one Row per record. Row keys are keys when given,
// otherwise the result's own keys; values beyond the key list are dropped.
func (c *Client) QueryDict(ctx context.Context, st cypher.Statement, keys []string) ([]store.Row, error) {
	if err := cypher.CheckReadOnly(st.Text); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrGraphStatement, err)
	}

	ctx, span := c.tracer.Start(ctx, "neo4j.query", trace.WithAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.String("db.statement", cypher.Compact(st.Text)),
		attribute.StringSlice("db.params", st.ParamNames()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.exec.execute(ctx, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		if neo4j.IsNeo4jError(err) {
			return nil, fmt.Errorf("%w: %w", store.ErrGraphStatement, err)
		}
		return nil, fmt.Errorf("failed to run graph query: %w", err)
	}

	names := keys
	if names == nil {
		names = res.Keys
	}
	rows := make([]store.Row, 0, len(res.Records))
	for _, rec := range res.Records {
		row := make(store.Row, len(names))
		for i, name := range names {
			if i < len(rec.Values) {
				row[name] = rec.Values[i]
			}
		}
		rows = append(rows, row)
	}

	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	span.SetStatus(codes.Ok, "")
	return rows, nil
}

// Ping verifies the server is reachable and accepts the credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.exec.verify(ctx); err != nil {
		return fmt.Errorf("failed to reach neo4j: %w", err)
	}
	return nil
}

// Close releases the driver's connections.
func (c *Client) Close() error {
	return c.exec.close(context.Background())
}
