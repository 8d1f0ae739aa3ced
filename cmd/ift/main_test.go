package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-ift/pkg/audit"
	"github.com/dd0wney/cluso-ift/pkg/config"
	"github.com/dd0wney/cluso-ift/pkg/corpus"
	"github.com/dd0wney/cluso-ift/pkg/cypher"
	"github.com/dd0wney/cluso-ift/pkg/filter"
	"github.com/dd0wney/cluso-ift/pkg/health"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
	"github.com/dd0wney/cluso-ift/pkg/store"
	"github.com/dd0wney/cluso-ift/pkg/template"
)

type fakeRows struct {
	capec []store.Row
}

func (f *fakeRows) Rows(_ context.Context, sql string, _ ...any) []store.Row {
	if strings.Contains(sql, "FROM capec_patterns") {
		return f.capec
	}
	return nil
}

type noGraph struct{}

func (noGraph) GraphRows(context.Context, cypher.Statement, []string) []store.Row { return nil }

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, local string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, local)
	return "s3://corpora/" + filepath.Base(local), nil
}

var capecTemplates = []template.Template{
	{Instruction: "Explain the attack pattern.", Input: "What is {capec_id}?", Output: "{name}", Line: 1},
}

func capecRows() []store.Row {
	return []store.Row{
		{"capec_id": "CAPEC-63", "name": "Cross-Site Scripting (XSS)"},
		{"capec_id": "CAPEC-66", "name": "SQL Injection"},
	}
}

func newTestGenerator(t *testing.T, rows []store.Row) (*generator, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	out := &bytes.Buffer{}
	return &generator{
		cfg:    &cfg,
		logger: logging.NewNopLogger(),
		reg:    metrics.NewRegistry(),
		rows:   &fakeRows{capec: rows},
		graph:  noGraph{},
		runID:  "run-test",
		ledger: audit.Open(cfg.Output.Dir),
		out:    out,
	}, out
}

func capecRequest(limit int) request {
	return request{
		kind:      config.KindCAPEC,
		limit:     limit,
		templates: capecTemplates,
		sources:   sourcesFor(config.KindCAPEC, nil),
	}
}

func TestGeneratorWritesCorpus(t *testing.T) {
	g, out := newTestGenerator(t, capecRows())

	path, err := g.run(context.Background(), capecRequest(5))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.cfg.Output.Dir, "filled_capec_templates_5.jsonl"), path)

	entries, err := corpus.ReadEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []template.Entry{
		{Instruction: "Explain the attack pattern.", Input: "What is CAPEC-63?", Output: "Cross-Site Scripting (XSS)"},
		{Instruction: "Explain the attack pattern.", Input: "What is CAPEC-66?", Output: "SQL Injection"},
	}, entries)
	assert.Contains(t, out.String(), "Wrote 2 CAPEC entries from 2 entities")

	records, err := g.ledger.Verify()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "run-test", records[0].RunID)
	assert.Equal(t, "filled_capec_templates_5.jsonl", records[0].File)
	assert.Equal(t, 2, records[0].Entries)
	digest, err := audit.FileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, digest, records[0].SHA256)
}

func TestVerify(t *testing.T) {
	g, _ := newTestGenerator(t, capecRows())
	dir := g.cfg.Output.Dir

	path, err := g.run(context.Background(), capecRequest(5))
	require.NoError(t, err)
	_, err = g.run(context.Background(), capecRequest(0))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runVerify(&out, dir))
	assert.Contains(t, out.String(), "✓ filled_capec_templates_5.jsonl (2 entries, run run-test)")
	assert.Contains(t, out.String(), "Ledger intact: 2 records")

	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))
	require.NoError(t, os.Remove(filepath.Join(dir, "filled_capec_templates_all.jsonl")))
	out.Reset()
	assert.ErrorIs(t, runVerify(&out, dir), errCorpusModified)
	assert.Contains(t, out.String(), "✗ filled_capec_templates_5.jsonl")
	assert.Contains(t, out.String(), "- filled_capec_templates_all.jsonl (missing)")
}

func TestGeneratorNoRows(t *testing.T) {
	g, out := newTestGenerator(t, nil)

	path, err := g.run(context.Background(), capecRequest(0))
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "No CAPEC rows found.\n", out.String())

	files, err := os.ReadDir(g.cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGeneratorFilter(t *testing.T) {
	g, out := newTestGenerator(t, capecRows())

	req := capecRequest(0)
	var err error
	req.filter, err = filter.Compile(`row.capec_id == "CAPEC-66"`)
	require.NoError(t, err)

	path, err := g.run(context.Background(), req)
	require.NoError(t, err)
	entries, err := corpus.ReadEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SQL Injection", entries[0].Output)
	assert.True(t, strings.HasSuffix(path, "filled_capec_templates_all.jsonl"))

	out.Reset()
	req.filter, err = filter.Compile(`row.capec_id == "CAPEC-1"`)
	require.NoError(t, err)
	path, err = g.run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Contains(t, out.String(), "No CAPEC entries generated from 2 rows (2 filtered)")
}

func TestGeneratorCancelledLeavesNoFile(t *testing.T) {
	g, _ := newTestGenerator(t, capecRows())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.run(ctx, capecRequest(5))
	assert.ErrorIs(t, err, context.Canceled)

	files, err := os.ReadDir(g.cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGeneratorPublishes(t *testing.T) {
	g, out := newTestGenerator(t, capecRows())
	pub := &fakePublisher{}
	g.publisher = pub

	path, err := g.run(context.Background(), capecRequest(5))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, pub.published)
	assert.Contains(t, out.String(), "Uploaded to s3://corpora/filled_capec_templates_5.jsonl")

	pub.err = errors.New("bucket gone")
	_, err = g.run(context.Background(), capecRequest(5))
	assert.ErrorIs(t, err, pub.err)
}

func TestLimitFor(t *testing.T) {
	cfg := config.Default()

	cmd := newGenerateCmd(config.KindCWE, "CWE weaknesses")
	limit, err := limitFor(cmd, &cfg, config.KindCWE)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)

	require.NoError(t, cmd.Flags().Set("limit", "0"))
	limit, err = limitFor(cmd, &cfg, config.KindCWE)
	require.NoError(t, err)
	assert.Equal(t, 0, limit)

	require.NoError(t, cmd.Flags().Set("limit", "-3"))
	_, err = limitFor(cmd, &cfg, config.KindCWE)
	assert.Error(t, err)
}

func TestCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"capec", "cwe", "cve", "mitre", "combine", "check", "browse", "status", "verify"} {
		assert.Contains(t, names, want)
	}

	cve, _, err := rootCmd.Find([]string{"cve"})
	require.NoError(t, err)
	assert.NotNil(t, cve.Flags().Lookup("years"))
	assert.NotNil(t, cve.Flags().Lookup("where"))
}

func TestCombineAndCheck(t *testing.T) {
	dir := t.TempDir()
	w := corpus.NewWriter(filepath.Join(dir, "filled_cve_templates_all.jsonl"), corpus.CompressionNone)
	require.NoError(t, w.Write(template.Entry{Instruction: "i", Input: "CVE-2024-0001", Output: "CVSS:3.1/AV:N/AC:L"}))
	require.NoError(t, w.Write(template.Entry{Instruction: "i", Input: "CVE-2024-0002", Output: "no vector"}))
	require.NoError(t, w.Close())

	var out bytes.Buffer
	require.NoError(t, runCombine(&out, dir))
	assert.Contains(t, out.String(), "Combined 2 entries from 1 files")
	assert.FileExists(t, filepath.Join(dir, corpus.ShuffledName))

	out.Reset()
	require.NoError(t, runCheck(&out, filepath.Join(dir, corpus.CombinedName)))
	assert.Contains(t, out.String(), "Total entries: 2\n")
	assert.Contains(t, out.String(), "Entries without a CVSS vector: 1\n")
	assert.Contains(t, out.String(), "CVE-2024-0002")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "é...", truncate("éé", 1))
}

func TestPrintReport(t *testing.T) {
	report := health.Report{
		Status: health.StatusUnhealthy,
		Checks: []health.Check{
			{Name: "postgres", Status: health.StatusHealthy, Message: "Connected"},
			{Name: "templates.cve", Status: health.StatusDegraded, Message: "templates have no placeholders"},
			{Name: "neo4j", Status: health.StatusUnhealthy, Message: "unexpected status 401"},
		},
	}

	var out bytes.Buffer
	require.NoError(t, printReport(&out, report, false))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "✓ postgres"))
	assert.True(t, strings.HasPrefix(lines[1], "! templates.cve"))
	assert.True(t, strings.HasPrefix(lines[2], "✗ neo4j"))
	assert.Equal(t, "Status: unhealthy", lines[3])

	out.Reset()
	require.NoError(t, printReport(&out, report, true))
	assert.Contains(t, out.String(), `"status": "unhealthy"`)
}
