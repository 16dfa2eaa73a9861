package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information, set at build time via ldflags.
// Defaults describe a local development build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "copa version %s (commit %s, built %s)\n",
			Version, Commit, Date)
	},
}
