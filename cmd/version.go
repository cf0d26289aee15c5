package cmd

import (
	"fmt"

	"github.com/harunnryd/halo/pkg/runner"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), runner.Version)
			return err
		},
	}
}
