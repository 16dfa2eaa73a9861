package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/copa/internal/backup"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	Long: `List the backups kept in the target project directory.

Backups are shown in chronological order with the most recent first.`,
	Example: `  # List backups in the current project
  copa backup list

  # List backups in another project
  copa backup list --target ../proj

  # Output as JSON
  copa backup list --json

  See Also:
    copa backup restore - Restore from a backup
    copa backup prune   - Remove old backups`,
	RunE: runList,
}

// infoOutput represents a single backup in JSON output.
type infoOutput struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	FileCount   int       `json:"file_count"`
	CopaVersion string    `json:"copa_version"`
}

func runList(_ *cobra.Command, _ []string) error {
	return runListWithWriter(os.Stdout)
}

func runListWithWriter(w io.Writer) error {
	mgr, err := manager()
	if err != nil {
		return err
	}

	manifests, err := mgr.List()
	if err != nil && !errors.Is(err, backup.ErrNoSnapshots) {
		return errors.Wrap(err, "listing backups")
	}

	if listJSON {
		return outputListJSON(w, manifests)
	}
	return outputListTabular(w, manifests)
}

func outputListJSON(w io.Writer, manifests []backup.Manifest) error {
	output := make([]infoOutput, len(manifests))
	for i, m := range manifests {
		output[i] = infoOutput{
			ID:          m.ID,
			CreatedAt:   m.CreatedAt,
			FileCount:   len(m.Files),
			CopaVersion: m.CopaVersion,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(output), "encoding output")
}

func outputListTabular(w io.Writer, manifests []backup.Manifest) error {
	if len(manifests) == 0 {
		fmt.Fprintln(w, "No backups available")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Backups are created automatically before copa overwrites an installation.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%sID%s\t%sCREATED%s\t%sFILES%s\t%sVERSION%s\n",
		colorBold, colorReset,
		colorBold, colorReset,
		colorBold, colorReset,
		colorBold, colorReset)

	for _, m := range manifests {
		fmt.Fprintf(tw, "%s%s%s\t%s\t%d\t%s\n",
			colorGreen, m.ID, colorReset,
			m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			len(m.Files),
			m.CopaVersion)
	}
	return errors.Wrap(tw.Flush(), "flushing output")
}
