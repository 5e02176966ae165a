package cmd

import (
	"github.com/spf13/cobra"

	"github.com/alpha1e0/kiwi/internal/version"
)

// Execute runs the kiwi command line with args (without the program name).
func Execute(args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "kiwi",
		Short:         "Kiwi - security tool for auditing source code",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file merged over ~/.kiwi/config.yaml and ./.kiwi/config.yaml")

	root.AddCommand(
		newScanCmd(&configPath),
		newFeaturesCmd(&configPath),
		newDBCmd(),
	)
	return root
}
