package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-ift/pkg/config"
	"github.com/dd0wney/cluso-ift/pkg/health"
	"github.com/dd0wney/cluso-ift/pkg/store/neo4j"
	"github.com/dd0wney/cluso-ift/pkg/store/postgres"
)

var errUnhealthy = errors.New("preflight checks failed")

// statusCmd checks everything a generation run depends on
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check store connectivity, template files and the output directory",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "print the report as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	checker := health.NewChecker()

	pg, pgErr := postgres.New(ctx, cfg.PostgresClientConfig())
	if pgErr == nil {
		defer pg.Close()
	}
	checker.Register("postgres", health.PingCheck(func(ctx context.Context) error {
		if pgErr != nil {
			return pgErr
		}
		return pg.Ping(ctx)
	}))

	graph, graphErr := neo4j.NewClient(cfg.Neo4jClientConfig())
	if graphErr == nil {
		defer graph.Close()
	}
	checker.Register("neo4j", health.PingCheck(func(ctx context.Context) error {
		if graphErr != nil {
			return graphErr
		}
		return graph.Ping(ctx)
	}))

	for _, kind := range []string{config.KindCAPEC, config.KindCWE, config.KindCVE, config.KindMITRE} {
		checker.Register("templates."+kind, health.TemplatesCheck(cfg.TemplatePath(kind)))
	}
	checker.Register("output", health.OutputDirCheck(cfg.Output.Dir))

	report := checker.Run(ctx)
	asJSON, _ := cmd.Flags().GetBool("json")
	if err := printReport(cmd.OutOrStdout(), report, asJSON); err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return errUnhealthy
	}
	return nil
}

func printReport(out io.Writer, report health.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, c := range report.Checks {
		mark := "✓"
		switch c.Status {
		case health.StatusDegraded:
			mark = "!"
		case health.StatusUnhealthy:
			mark = "✗"
		}
		fmt.Fprintf(out, "%s %-16s %s\n", mark, c.Name, c.Message)
	}
	fmt.Fprintf(out, "Status: %s\n", report.Status)
	return nil
}
