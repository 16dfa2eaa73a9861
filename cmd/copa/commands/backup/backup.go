// Package backup provides CLI commands for managing pre-install backups.
package backup

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/copa/internal/backup"
)

// Color constants for terminal output.
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
)

// targetDir holds the value of the --target flag shared by all
// backup subcommands.
var targetDir string

func init() {
	Cmd.PersistentFlags().StringVarP(&targetDir, "target", "t", ".",
		"target project directory")
}

// Cmd is the root backup command.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage pre-install backups",
	Long: `Manage the timestamped backups copa takes before overwriting an
existing installation.

Backups live inside the target project directory, one directory per
snapshot, named with the time the snapshot was taken. Each snapshot
carries a manifest with checksums so a restore can verify integrity
before touching the project.`,
	Example: `  # List backups in the current project
  copa backup list

  # Restore the most recent backup
  copa backup restore

  # Restore a specific backup
  copa backup restore 20260815_103000

  # Remove old backups, keeping the 3 most recent
  copa backup prune --keep 3

  See Also:
    copa backup list    - List available backups
    copa backup restore - Restore from a backup
    copa backup prune   - Remove old backups`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// manager builds a backup manager for the resolved target directory.
func manager() (*backup.Manager, error) {
	target, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving target directory")
	}
	return backup.NewManager(target), nil
}
