package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-ift/pkg/corpus"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Limit(KindCAPEC))
	assert.Equal(t, 0, cfg.Limit(KindCVE))
	assert.Equal(t, filepath.Join("templates", "IFT_MITRE.jsonl"), cfg.TemplatePath(KindMITRE))
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
postgres:
  host: db.internal
  timeout: 45s
neo4j:
  url: neo4j+s://graph.internal:7687
limits:
  cwe: 50
output:
  compression: snappy
cve:
  years: [2023]
`), 0644))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("IFT_TEST_FROM_DOTENV=yes\n"), 0644))
	t.Setenv("POSTGRES_DB", "threats_test")
	t.Cleanup(func() { os.Unsetenv("IFT_TEST_FROM_DOTENV") })

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 45*time.Second, cfg.Postgres.Timeout)
	assert.Equal(t, "threats_test", cfg.Postgres.Database)
	assert.Equal(t, "neo4j+s://graph.internal:7687", cfg.Neo4j.URL)
	assert.Equal(t, 50, cfg.Limit(KindCWE))
	assert.Equal(t, 5, cfg.Limit(KindCAPEC), "unset limits keep their default")
	assert.Equal(t, corpus.CompressionSnappy, cfg.Output.Compression)
	assert.Equal(t, []int{2023}, cfg.CVE.Years)
	assert.Equal(t, "IFT_CVE.jsonl", cfg.Templates.Files[KindCVE])
	assert.Equal(t, "yes", os.Getenv("IFT_TEST_FROM_DOTENV"))
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("postgress:\n  host: x\n"), 0644))
	_, err := Load(unknown, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgress")

	_, err = Load(filepath.Join(dir, "missing.yaml"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"POSTGRES_HOST":     "10.0.0.5",
		"POSTGRES_PORT":     " 6543 ",
		"POSTGRES_PASSWORD": "s3cret",
		"NEO4J_URL":         "bolt://neo4j:7687",
		"NEO4J_USER":        "reader",
		"LOG_LEVEL":         "debug",
		"IFT_CVE_YEARS":     "2022, 2023,",
		"IFT_S3_BUCKET":     "corpora",
	}))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Postgres.Host)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
	assert.Equal(t, "bolt://neo4j:7687", cfg.Neo4j.URL)
	assert.Equal(t, "reader", cfg.Neo4j.User)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []int{2022, 2023}, cfg.CVE.Years)
	assert.Equal(t, "corpora", cfg.Publish.S3.Bucket)

	require.Error(t, cfg.ApplyEnv(env(map[string]string{"POSTGRES_PORT": "abc"})))
	require.Error(t, cfg.ApplyEnv(env(map[string]string{"IFT_CVE_YEARS": "2024,x"})))
}

func TestValidateReportsEveryError(t *testing.T) {
	cfg := Default()
	cfg.Postgres.Host = ""
	cfg.Postgres.Port = 70000
	cfg.Postgres.SSLMode = "sometimes"
	cfg.Neo4j.URL = "http://graph:7474"
	cfg.Output.Compression = "gzip"
	cfg.LogLevel = "loud"
	cfg.Limits["cwe"] = -1
	cfg.Limits["cpe"] = 1
	cfg.CVE.Years = []int{1990}
	cfg.Publish.Enabled = true
	delete(cfg.Templates.Files, KindCVE)

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"Postgres.Host: field is required",
		"Postgres.Port: must not exceed 65535",
		"Postgres.SSLMode: must be one of",
		"neo4j.url",
		"output.compression",
		"log_level",
		"Limits[cwe]: must be at least 0",
		"Limits[cpe]: must be one of",
		"CVE.Years[0]: must be at least 1999",
		"publish.s3.bucket",
		"templates.files.cve",
	} {
		assert.True(t, strings.Contains(msg, want), "missing %q in:\n%s", want, msg)
	}
}

func TestChecker(t *testing.T) {
	c := NewChecker("s3").
		Required("bucket", "").
		RangeInt("parts", 0, 1, 10).
		NonNegative("retries", -1).
		MinDuration("timeout", time.Millisecond, time.Second).
		HTTPURL("endpoint", "minio:9000").
		When(false, func(c *Checker) { c.Required("never", "") })

	assert.Len(t, c.Errors(), 5)
	assert.ErrorContains(t, c.Err(), "s3.bucket: required field is empty")
	assert.NoError(t, NewChecker("ok").Required("a", "b").Err())
}

func TestCheckerURLScheme(t *testing.T) {
	assert.NoError(t, NewChecker("neo4j").URLScheme("url", "neo4j+s://graph.internal:7687", neo4jSchemes).Err())
	assert.NoError(t, NewChecker("neo4j").URLScheme("url", "bolt://127.0.0.1:7687", neo4jSchemes).Err())
	assert.ErrorContains(t, NewChecker("neo4j").URLScheme("url", "http://127.0.0.1:7474", neo4jSchemes).Err(),
		"neo4j.url")
	assert.Error(t, NewChecker("neo4j").URLScheme("url", "neo4j://", neo4jSchemes).Err())
}

func TestDefaultOr(t *testing.T) {
	assert.Equal(t, "neo4j", DefaultOr("", "neo4j"))
	assert.Equal(t, "graph", DefaultOr("graph", "neo4j"))
	assert.Equal(t, time.Minute, DefaultOr(time.Duration(0), time.Minute))
}
