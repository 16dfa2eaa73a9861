package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thoreinstein/copa/internal/config"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", config.DefaultRetention,
		"Number of backups to retain")
	Cmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old backups",
	Long: `Remove old backups beyond the retention count.

By default, keeps the 5 most recent backups and removes older ones.
Use the --keep flag or the backup.retention config key to change the
retention count.`,
	Example: `  # Keep the default (5) most recent backups
  copa backup prune

  # Keep only the 3 most recent backups
  copa backup prune --keep 3

  # Remove all backups
  copa backup prune --keep 0

  See Also:
    copa backup list - List available backups`,
	RunE: runPrune,
}

func runPrune(cmd *cobra.Command, _ []string) error {
	// The backup.retention config key supplies the retention count when
	// --keep is not given on the command line.
	if !cmd.Flags().Changed("keep") {
		if retention := viper.GetInt("backup.retention"); retention > 0 {
			pruneKeep = retention
		}
	}
	return runPruneWithWriter(os.Stdout)
}

func runPruneWithWriter(w io.Writer) error {
	if pruneKeep < 0 {
		return errors.New("--keep must be non-negative")
	}

	mgr, err := manager()
	if err != nil {
		return err
	}

	removed, err := mgr.Prune(pruneKeep)
	if err != nil {
		return errors.Wrap(err, "pruning backups")
	}

	if removed == 0 {
		fmt.Fprintln(w, "No backups to prune")
		return nil
	}

	fmt.Fprintf(w, "%s✓ Removed %d old backup(s)%s\n", colorGreen, removed, colorReset)
	return nil
}
