package cmd

import (
	"github.com/harunnryd/halo/pkg/config"
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "halo",
		Short:         "halo: turn management for a wearable assistant",
		Long:          "halo sequences the listening, thinking and responding phases of an assistant turn, with per-phase time budgets and overlay, capture and speech hooks.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (yaml, toml or json); HALO_* env vars override it")

	rootCmd.AddCommand(
		newRunCmd(flags),
		newSimulateCmd(flags),
		newSchemaCmd(),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

func (f *rootFlags) load() (config.Config, error) {
	return config.LoadConfig(f.configPath)
}
