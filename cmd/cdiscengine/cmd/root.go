package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile string
	logLevel   string
	logFormat  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cdiscengine",
	Short: "CDISC conformance rule engine",
	Long: `cdiscengine decides which conformance rules apply to which study datasets,
enriches each dataset with the derived columns its rules declare, and hands the
prepared rule and dataset to a condition evaluator.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(logLevel, logFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, console)")

	rootCmd.PersistentFlags().String("data-dir", "", "directory of JSON dataset files")
	rootCmd.PersistentFlags().String("cache-url", "", "operation cache (memory://, sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().Int("pool-size", 0, "number of concurrent pipeline workers")
	rootCmd.PersistentFlags().String("standard", "", "CDISC standard, e.g. sdtmig")
	rootCmd.PersistentFlags().String("standard-version", "", "CDISC standard version, e.g. 3-4")
	rootCmd.PersistentFlags().String("whodrug", "", "WHODrug dictionary path")
	rootCmd.PersistentFlags().String("meddra", "", "MedDRA dictionary path")
}

// newLogger builds a production zap logger with the given level and encoding.
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	switch format {
	case "json":
	case "console", "text":
		config.Encoding = "console"
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	return config.Build()
}

func Execute() error {
	return rootCmd.Execute()
}
