package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alpha1e0/kiwi/internal/config"
	"github.com/alpha1e0/kiwi/internal/feature"
	"github.com/alpha1e0/kiwi/internal/feature/evals"
)

func newFeaturesCmd(configPath *string) *cobra.Command {
	var (
		featureDir string
		featureIDs []string
		scope      string
	)
	c := &cobra.Command{
		Use:   "features",
		Short: "List the loaded features per scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			files, err := loadRuleFiles(cfg, featureDir)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("feature-ids") {
				featureIDs = cfg.FeatureIDs
			}
			ids, err := expandIDs(featureIDs)
			if err != nil {
				return err
			}
			reg, err := feature.Load(files, evals.Default(), feature.LoadOptions{OnlyIDs: ids})
			if err != nil {
				return err
			}
			return printFeatures(cmd, reg, scope)
		},
	}
	c.Flags().StringVarP(&featureDir, "feature-dir", "f", "", "Directory of *.feature rule files (replaces the builtin rules)")
	c.Flags().StringSliceVarP(&featureIDs, "feature-ids", "i", nil, "Only list these feature IDs; @file reads IDs from a file")
	c.Flags().StringVar(&scope, "scope", "", "Only list features for this scope")
	return c
}

func printFeatures(cmd *cobra.Command, reg *feature.Registry, only string) error {
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, scope := range reg.Scopes() {
		if only != "" && !strings.EqualFold(scope, only) {
			continue
		}
		fmt.Fprintf(tw, "[%s]\n", scope)
		for _, f := range reg.ForScope(scope) {
			evaluator := f.Evaluator
			if evaluator == "" {
				evaluator = "-"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s/%s\t%s\n", f.ID, f.Name, f.Severity, f.Confidence, evaluator)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d feature(s) across %d scope(s)\n", reg.Len(), len(reg.Scopes()))
	return err
}
