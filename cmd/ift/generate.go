package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-ift/pkg/assemble"
	"github.com/dd0wney/cluso-ift/pkg/audit"
	"github.com/dd0wney/cluso-ift/pkg/catalog"
	"github.com/dd0wney/cluso-ift/pkg/config"
	"github.com/dd0wney/cluso-ift/pkg/corpus"
	"github.com/dd0wney/cluso-ift/pkg/filter"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
	"github.com/dd0wney/cluso-ift/pkg/publish"
	"github.com/dd0wney/cluso-ift/pkg/store"
	"github.com/dd0wney/cluso-ift/pkg/store/neo4j"
	"github.com/dd0wney/cluso-ift/pkg/store/postgres"
	"github.com/dd0wney/cluso-ift/pkg/template"
)

func newGenerateCmd(kind, what string) *cobra.Command {
	defaultLimit := "all"
	if n := config.Default().Limit(kind); n > 0 {
		defaultLimit = fmt.Sprint(n)
	}

	cmd := &cobra.Command{
		Use:   kind,
		Short: "Fill the " + strings.ToUpper(kind) + " templates with " + what,
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	cmd.Flags().Int("limit", 0, "rows to fetch per source, 0 for all (default from config, "+defaultLimit+")")
	cmd.Flags().String("where", "", `CEL expression over row and kind selecting rows, e.g. 'row.status == "Stable"'`)
	return cmd
}

func newCVECmd() *cobra.Command {
	cmd := newGenerateCmd(config.KindCVE, "CVE records")
	cmd.Flags().IntSlice("years", nil, "publication years to include (default from config)")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kind := cmd.Name()

	limit, err := limitFor(cmd, cfg, kind)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("years") {
		cfg.CVE.Years, _ = cmd.Flags().GetIntSlice("years")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	where, _ := cmd.Flags().GetString("where")
	rowFilter, err := filter.Compile(where)
	if err != nil {
		return err
	}

	templates, err := template.Load(cfg.TemplatePath(kind))
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	g := &generator{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		runID:  runID,
		ledger: audit.Open(cfg.Output.Dir),
		out:    cmd.OutOrStdout(),
	}
	if cfg.Publish.Enabled {
		client, err := publish.NewS3Client(ctx, cfg.Publish.S3)
		if err != nil {
			return err
		}
		if g.publisher, err = publish.NewS3Publisher(client, cfg.Publish.S3, runID, logger, reg); err != nil {
			return err
		}
	}

	pg, err := postgres.New(ctx, cfg.PostgresClientConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pg.Close()
	graph, err := neo4j.NewClient(cfg.Neo4jClientConfig())
	if err != nil {
		return err
	}
	defer graph.Close()

	g.rows = store.NewSafeQuerier(pg, logger, reg)
	g.graph = store.NewSafeGraph(graph, logger, reg)

	_, err = g.run(ctx, request{
		kind:      kind,
		limit:     limit,
		filter:    rowFilter,
		templates: templates,
		sources:   sourcesFor(kind, cfg.CVE.Years),
	})
	return err
}

// limitFor returns the --limit flag when given, else the configured limit of kind.
func limitFor(cmd *cobra.Command, cfg *config.Config, kind string) (int, error) {
	limit := cfg.Limit(kind)
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
	}
	if limit < 0 {
		return 0, fmt.Errorf("--limit must not be negative, got %d", limit)
	}
	return limit, nil
}

func sourcesFor(kind string, years []int) func(*catalog.Catalog) []assemble.Source {
	switch kind {
	case config.KindCAPEC:
		return func(c *catalog.Catalog) []assemble.Source { return []assemble.Source{c.CAPEC()} }
	case config.KindCWE:
		return func(c *catalog.Catalog) []assemble.Source { return []assemble.Source{c.CWE()} }
	case config.KindCVE:
		return func(c *catalog.Catalog) []assemble.Source { return []assemble.Source{c.CVE(years)} }
	default:
		return (*catalog.Catalog).MITRE
	}
}

type publisher interface {
	Publish(ctx context.Context, local string) (string, error)
}

// generator runs catalog sources into one corpus file per kind.
type generator struct {
	cfg       *config.Config
	logger    logging.Logger
	reg       *metrics.Registry
	rows      store.Rows
	graph     store.GraphRows
	runID     string
	ledger    *audit.Ledger // nil skips recording
	publisher publisher
	out       io.Writer
}

type request struct {
	kind      string
	limit     int
	filter    *filter.Filter
	templates []template.Template
	sources   func(*catalog.Catalog) []assemble.Source
}

// run writes every entry of req's sources to the kind's output file and returns its path,
// or "" when nothing was generated.
func (g *generator) run(ctx context.Context, req request) (string, error) {
	cat := catalog.New(g.rows, g.graph, g.logger, g.reg)
	pipeline := assemble.NewPipeline(g.logger, g.reg)

	name := corpus.OutputName(req.kind, req.limit, g.cfg.Output.Compression)
	w := corpus.NewWriter(filepath.Join(g.cfg.Output.Dir, name), g.cfg.Output.Compression)

	var total assemble.Stats
	for _, src := range req.sources(cat) {
		stats, err := pipeline.Run(ctx, src, req.templates, w, assemble.Options{
			Limit:  req.limit,
			Filter: req.filter,
		})
		total.Rows += stats.Rows
		total.Filtered += stats.Filtered
		total.Entities += stats.Entities
		total.Entries += stats.Entries
		if err != nil {
			w.Discard()
			return "", fmt.Errorf("%s generation failed: %w", req.kind, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	label := strings.ToUpper(req.kind)
	if w.Entries() == 0 {
		if total.Rows == 0 {
			fmt.Fprintf(g.out, "No %s rows found.\n", label)
		} else {
			fmt.Fprintf(g.out, "No %s entries generated from %d rows (%d filtered).\n", label, total.Rows, total.Filtered)
		}
		return "", nil
	}

	if g.reg != nil {
		g.reg.RecordFileWritten(req.kind, w.Bytes())
	}
	fmt.Fprintf(g.out, "Wrote %d %s entries from %d entities to %s\n", w.Entries(), label, total.Entities, w.Path())

	if g.ledger != nil {
		if err := g.record(req, w); err != nil {
			return w.Path(), err
		}
	}

	if g.publisher != nil {
		uri, err := g.publisher.Publish(ctx, w.Path())
		if err != nil {
			return w.Path(), err
		}
		fmt.Fprintf(g.out, "Uploaded to %s\n", uri)
	}
	return w.Path(), nil
}

// record appends the finished file to the run ledger.
func (g *generator) record(req request, w *corpus.Writer) error {
	digest, err := audit.FileDigest(w.Path())
	if err != nil {
		return fmt.Errorf("failed to digest %s: %w", w.Path(), err)
	}
	r, err := g.ledger.Append(audit.Record{
		RunID:   g.runID,
		Kind:    req.kind,
		Limit:   req.limit,
		File:    filepath.Base(w.Path()),
		Entries: w.Entries(),
		Bytes:   w.Bytes(),
		SHA256:  digest,
	})
	if err != nil {
		return err
	}
	g.logger.Debug("run recorded", logging.Path(g.ledger.Path()), logging.String("record_hash", r.RecordHash))
	return nil
}
