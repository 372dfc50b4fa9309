package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tagtical version information",
		Long:  `Display version, build time, commit hash, and platform information for the tagtical binary.`,
		Args:  cobra.NoArgs,
		// Needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			fmt.Fprintf(cmd.OutOrStdout(), "Platform: %s\n", info.Platform)
			fmt.Fprintf(cmd.OutOrStdout(), "Go: %s\n", info.GoVersion)
			return nil
		},
	}
}
