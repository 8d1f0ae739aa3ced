package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-ift/pkg/config"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
)

var (
	// Global flags
	configPath  string
	envFile     string
	logLevel    string
	metricsFile string
	upload      bool

	// Set up by PersistentPreRunE
	cfg     *config.Config
	logger  logging.Logger
	reg     *metrics.Registry
	runID   string
	started time.Time
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ift",
	Short: "Generate instruction fine-tuning corpora from CAPEC, CWE, CVE and ATT&CK data",
	Long: `ift fills instruction templates with security knowledge read from a Postgres
catalog and a Neo4j relationship graph, writing one JSONL corpus per entity kind.

Connection settings come from --config, then the .env file, then POSTGRES_* and
NEO4J_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, envFile)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("metrics-file") {
			cfg.MetricsFile = metricsFile
		}
		if upload {
			cfg.Publish.Enabled = true
		}

		level, err := logging.ParseLevelStrict(cfg.LogLevel)
		if err != nil {
			return err
		}
		runID = uuid.NewString()
		logger = logging.NewJSONLogger(os.Stderr, level).With(logging.RunID(runID))
		reg = metrics.NewRegistry()
		started = time.Now()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil || cfg.MetricsFile == "" {
			return nil
		}
		reg.FinishRun(time.Since(started))
		if err := reg.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("metrics not exported", logging.Path(cfg.MetricsFile), logging.Error(err))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus text format")
	rootCmd.PersistentFlags().BoolVar(&upload, "upload", false, "upload generated corpora to the configured S3 bucket")

	rootCmd.AddCommand(
		newGenerateCmd(config.KindCAPEC, "CAPEC attack patterns"),
		newGenerateCmd(config.KindCWE, "CWE weaknesses"),
		newCVECmd(),
		newGenerateCmd(config.KindMITRE, "ATT&CK techniques, tools, campaigns and malware"),
		combineCmd,
		checkCmd,
		browseCmd,
		statusCmd,
		verifyCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
