// Package config loads generator settings from a YAML file, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-ift/pkg/corpus"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/publish"
	"github.com/dd0wney/cluso-ift/pkg/store/neo4j"
	"github.com/dd0wney/cluso-ift/pkg/store/postgres"
)

// validate is a singleton validator instance
var validate = validator.New()

// neo4jSchemes are the URL schemes the graph driver accepts.
var neo4jSchemes = []string{"neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc"}

// Entity kinds with their own templates file, output file and default limit.
const (
	KindCAPEC = "capec"
	KindCWE   = "cwe"
	KindCVE   = "cve"
	KindMITRE = "mitre"
)

// Config is the full generator configuration.
type Config struct {
	Postgres    PostgresConfig  `yaml:"postgres"`
	Neo4j       Neo4jConfig     `yaml:"neo4j"`
	Templates   TemplatesConfig `yaml:"templates"`
	Output      OutputConfig    `yaml:"output"`
	Limits      map[string]int  `yaml:"limits" validate:"dive,keys,oneof=capec cwe cve mitre,endkeys,min=0"`
	CVE         CVEConfig       `yaml:"cve"`
	Publish     PublishConfig   `yaml:"publish"`
	LogLevel    string          `yaml:"log_level"`
	MetricsFile string          `yaml:"metrics_file"`
}

// PostgresConfig locates the relational store.
type PostgresConfig struct {
	Host     string        `yaml:"host" validate:"required"`
	Port     int           `yaml:"port" validate:"min=1,max=65535"`
	Database string        `yaml:"database" validate:"required"`
	User     string        `yaml:"user" validate:"required"`
	Password string        `yaml:"password"`
	SSLMode  string        `yaml:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int           `yaml:"max_conns" validate:"min=0,max=64"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Neo4jConfig locates the graph store.
type Neo4jConfig struct {
	URL      string        `yaml:"url" validate:"required"`
	Database string        `yaml:"database"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TemplatesConfig names the templates file of each kind, relative to Dir.
type TemplatesConfig struct {
	Dir   string            `yaml:"dir" validate:"required"`
	Files map[string]string `yaml:"files"`
}

// OutputConfig controls where corpora are written.
type OutputConfig struct {
	Dir         string             `yaml:"dir" validate:"required"`
	Compression corpus.Compression `yaml:"compression"`
}

// CVEConfig restricts CVE generation.
type CVEConfig struct {
	Years []int `yaml:"years" validate:"dive,min=1999,max=2100"`
}

// PublishConfig controls uploads of generated corpora.
type PublishConfig struct {
	Enabled bool           `yaml:"enabled"`
	S3      publish.Config `yaml:"s3"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			Database: "threats",
			User:     "postgres",
			Timeout:  30 * time.Second,
		},
		Neo4j: Neo4jConfig{
			URL:      "neo4j://127.0.0.1:7687",
			Database: neo4j.DefaultDatabase,
			User:     "neo4j",
			Timeout:  neo4j.DefaultTimeout,
		},
		Templates: TemplatesConfig{
			Dir: "templates",
			Files: map[string]string{
				KindCAPEC: "IFT_CAPEC.jsonl",
				KindCWE:   "IFT_CWE.jsonl",
				KindCVE:   "IFT_CVE.jsonl",
				KindMITRE: "IFT_MITRE.jsonl",
			},
		},
		Output: OutputConfig{
			Dir:         "filled_templates",
			Compression: corpus.CompressionNone,
		},
		Limits: map[string]int{
			KindCAPEC: 5,
			KindCWE:   5,
			KindCVE:   0,
			KindMITRE: 0,
		},
		CVE:      CVEConfig{Years: []int{2024, 2025}},
		LogLevel: "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (skipped when path
// is empty), then envFile (skipped when missing), then the process environment.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		err = cfg.decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decode merges YAML from r over cfg. Unknown keys are rejected.
func (cfg *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables read through lookup.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		name   string
		target *string
	}{
		{"POSTGRES_HOST", &cfg.Postgres.Host},
		{"POSTGRES_DB", &cfg.Postgres.Database},
		{"POSTGRES_USER", &cfg.Postgres.User},
		{"POSTGRES_PASSWORD", &cfg.Postgres.Password},
		{"POSTGRES_SSLMODE", &cfg.Postgres.SSLMode},
		{"NEO4J_URL", &cfg.Neo4j.URL},
		{"NEO4J_DATABASE", &cfg.Neo4j.Database},
		{"NEO4J_USER", &cfg.Neo4j.User},
		{"NEO4J_PASSWORD", &cfg.Neo4j.Password},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"IFT_TEMPLATES_DIR", &cfg.Templates.Dir},
		{"IFT_OUTPUT_DIR", &cfg.Output.Dir},
		{"IFT_S3_BUCKET", &cfg.Publish.S3.Bucket},
		{"IFT_S3_PREFIX", &cfg.Publish.S3.Prefix},
		{"IFT_S3_ENDPOINT", &cfg.Publish.S3.Endpoint},
	}
	for _, s := range strs {
		if v, ok := lookup(s.name); ok {
			*s.target = v
		}
	}

	if v, ok := lookup("POSTGRES_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("POSTGRES_PORT: %w", err)
		}
		cfg.Postgres.Port = port
	}
	if v, ok := lookup("IFT_CVE_YEARS"); ok {
		years, err := parseYears(v)
		if err != nil {
			return fmt.Errorf("IFT_CVE_YEARS: %w", err)
		}
		cfg.CVE.Years = years
	}
	return nil
}

func parseYears(v string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, nil
}

// Validate checks struct constraints and cross-field rules, reporting every failure.
func (cfg *Config) Validate() error {
	var errs []error
	if err := validate.Struct(cfg); err != nil {
		errs = append(errs, formatValidationErrors(err)...)
	}

	c := NewChecker("config").
		URLScheme("neo4j.url", cfg.Neo4j.URL, neo4jSchemes).
		OneOf("output.compression", string(cfg.Output.Compression),
			[]string{string(corpus.CompressionNone), string(corpus.CompressionSnappy)}).
		Custom("log_level", func() error {
			_, err := logging.ParseLevelStrict(cfg.LogLevel)
			return err
		}).
		When(cfg.Publish.Enabled, func(c *Checker) {
			c.Required("publish.s3.bucket", cfg.Publish.S3.Bucket)
		}).
		When(cfg.Publish.S3.Endpoint != "", func(c *Checker) {
			c.HTTPURL("publish.s3.endpoint", cfg.Publish.S3.Endpoint)
		})
	for _, kind := range []string{KindCAPEC, KindCWE, KindCVE, KindMITRE} {
		c.Required("templates.files."+kind, cfg.Templates.Files[kind])
	}

	errs = append(errs, c.Errors()...)
	return errors.Join(errs...)
}

// formatValidationErrors converts validator errors to a more user-friendly format
func formatValidationErrors(err error) []error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []error{err}
	}

	out := make([]error, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "required":
			out = append(out, fmt.Errorf("%s: field is required", field))
		case "min":
			out = append(out, fmt.Errorf("%s: must be at least %s", field, e.Param()))
		case "max":
			out = append(out, fmt.Errorf("%s: must not exceed %s", field, e.Param()))
		case "oneof":
			out = append(out, fmt.Errorf("%s: must be one of [%s]", field, e.Param()))
		default:
			out = append(out, fmt.Errorf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return out
}

// TemplatePath returns the templates file of kind.
func (cfg *Config) TemplatePath(kind string) string {
	return filepath.Join(cfg.Templates.Dir, cfg.Templates.Files[kind])
}

// Limit returns the row limit of kind, 0 meaning all rows.
func (cfg *Config) Limit(kind string) int {
	return cfg.Limits[kind]
}

// PostgresClientConfig converts the section for the store client.
func (cfg *Config) PostgresClientConfig() postgres.Config {
	p := cfg.Postgres
	return postgres.Config{
		Host:     p.Host,
		Port:     p.Port,
		Database: p.Database,
		User:     p.User,
		Password: p.Password,
		SSLMode:  p.SSLMode,
		MaxConns: p.MaxConns,
		Timeout:  p.Timeout,
	}
}

// Neo4jClientConfig converts the section for the store client.
func (cfg *Config) Neo4jClientConfig() neo4j.Config {
	n := cfg.Neo4j
	return neo4j.Config{
		URL:      n.URL,
		Database: DefaultOr(n.Database, neo4j.DefaultDatabase),
		User:     n.User,
		Password: n.Password,
		Timeout:  DefaultOr(n.Timeout, neo4j.DefaultTimeout),
	}
}
