package cmd

import (
	"fmt"

	"github.com/harunnryd/halo/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.SchemaJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect config files",
	}
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "init <path>",
			Short: "Write the default config as YAML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.WriteDefault(args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective config after file and env overrides",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := flags.load()
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
	)
	return configCmd
}
