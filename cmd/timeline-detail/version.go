package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"timeline/internal/core/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		bi := version.Info("timeline-detail")
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit: %s, built: %s)\n", bi.Service, bi.Version, bi.Commit, bi.Date)
	},
}
