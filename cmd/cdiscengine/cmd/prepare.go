package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/cdiscengine/internal/engine"
	"github.com/solatis/cdiscengine/internal/rules"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare --rules PATH [--rules PATH...]",
	Short: "Run rules against the datasets and print the prepared results",
	Long: `Loads rule files (JSON or YAML, files or directories), pairs every rule with
every dataset domain under --data-dir, and runs applicability, operations and
target extraction for each pair. Results are printed as JSON.`,
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().StringSlice("rules", nil, "rule file or directory (repeatable)")
	prepareCmd.Flags().Bool("include-dataset", false, "include the enriched dataset in each result")
	prepareCmd.Flags().Bool("skipped", false, "include rules that do not apply")
	_ = prepareCmd.MarkFlagRequired("rules")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	paths, _ := cmd.Flags().GetStringSlice("rules")
	rejected, err := rt.loadRules(paths)
	if err != nil {
		return err
	}

	descriptors, err := rt.data.Descriptors(ctx)
	if err != nil {
		return err
	}
	selected := rt.catalog.List(cfg.Engine.Standard, cfg.Engine.StandardVersion)
	units := engine.Plan(selected, descriptors)
	logger.Info("prepare_started",
		zap.String("run_id", string(rt.runID)),
		zap.Int("rules", len(selected)),
		zap.Int("datasets", len(descriptors)),
		zap.Int("units", len(units)))

	outcomes, err := rt.pipeline.RunAll(ctx, units)
	if err != nil {
		return err
	}

	includeDataset, _ := cmd.Flags().GetBool("include-dataset")
	includeSkipped, _ := cmd.Flags().GetBool("skipped")
	results := make([]engine.Outcome, 0, len(outcomes))
	failed := 0
	for _, out := range outcomes {
		if out.Skipped && !includeSkipped {
			continue
		}
		if out.Err != nil {
			failed++
		}
		if !includeDataset {
			out.Dataset = nil
		}
		results = append(results, out)
	}
	logger.Info("prepare_finished",
		zap.Int("results", len(results)),
		zap.Int("failed", failed),
		zap.Int("rejected", len(rejected)))

	return writeJSON(cmd, prepareReport{RunID: string(rt.runID), Results: results, Rejected: rejected})
}

// prepareReport is the JSON document printed by prepare.
type prepareReport struct {
	RunID    string            `json:"run_id"`
	Results  []engine.Outcome  `json:"results"`
	Rejected []rules.Rejection `json:"rejected,omitempty"`
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

