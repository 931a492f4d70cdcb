package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/cdiscengine/internal/rules"
)

var listRulesCmd = &cobra.Command{
	Use:   "list-rules --rules PATH [--rules PATH...]",
	Short: "List rules, optionally filtered by --standard and --standard-version",
	RunE:  runListRules,
}

var listDSMetadataCmd = &cobra.Command{
	Use:   "list-ds-metadata",
	Short: "List the metadata of every dataset under --data-dir",
	RunE:  runListDSMetadata,
}

func init() {
	rootCmd.AddCommand(listRulesCmd)
	rootCmd.AddCommand(listDSMetadataCmd)
	listRulesCmd.Flags().StringSlice("rules", nil, "rule file or directory (repeatable)")
	_ = listRulesCmd.MarkFlagRequired("rules")
}

func runListRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	paths, _ := cmd.Flags().GetStringSlice("rules")
	loaded, err := rules.LoadPaths(paths)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	return writeJSON(cmd, rules.FilterByStandard(loaded, cfg.Engine.Standard, cfg.Engine.StandardVersion))
}

func runListDSMetadata(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	descriptors, err := rt.data.Descriptors(context.Background())
	if err != nil {
		return err
	}
	return writeJSON(cmd, descriptors)
}
