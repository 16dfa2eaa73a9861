package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/copa/internal/backup"
	copaerrors "github.com/thoreinstein/copa/internal/errors"
)

func init() {
	Cmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-id]",
	Short: "Restore from a backup",
	Long: `Restore the project files from a backup snapshot.

Without an argument, restores from the most recent snapshot. Every file
in the snapshot is verified against its recorded checksum before any
project file is touched; a corrupted snapshot leaves the project
unchanged.

Restore replaces the backed-up paths entirely, so files added since the
snapshot was taken under those paths are removed.`,
	Example: `  # Restore the most recent backup
  copa backup restore

  # Restore a specific backup
  copa backup restore 20260815_103000

  See Also:
    copa backup list - List available backups`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(_ *cobra.Command, args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	return runRestoreWithWriter(os.Stdout, id)
}

func runRestoreWithWriter(w io.Writer, id string) error {
	mgr, err := manager()
	if err != nil {
		return err
	}

	if id == "" {
		manifests, err := mgr.List()
		if err != nil {
			if errors.Is(err, backup.ErrNoSnapshots) {
				return copaerrors.NewUserError(err, "nothing to restore; run 'copa backup list' to check")
			}
			return errors.Wrap(err, "listing backups")
		}
		id = manifests[0].ID
	}

	if err := mgr.Restore(id); err != nil {
		if errors.Is(err, backup.ErrCorrupted) {
			return copaerrors.NewUserError(err, "the snapshot failed checksum verification; the project was not modified")
		}
		return errors.Wrapf(err, "restoring backup %s", id)
	}

	fmt.Fprintf(w, "%s✓ Restored backup %s%s\n", colorGreen, id, colorReset)
	return nil
}
