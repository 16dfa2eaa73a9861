package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/copa/internal/backup"
	"github.com/thoreinstein/copa/internal/bundle"
)

var (
	statusJSON   bool
	statusTarget string
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	statusCmd.Flags().StringVarP(&statusTarget, "target", "t", ".",
		"target project directory")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installation overview",
	Long: `Show what is installed in the target project directory.

Reports whether the marker file and hidden directory are present, lists
the agent definitions found under .copilot/agents/, and summarizes any
pre-install backups kept in the target.`,
	Example: `  # Inspect the current directory
  copa status

  # Inspect another project
  copa status --target ../proj

  # Machine-readable output
  copa status --json`,
	RunE: runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	return runStatusWithWriter(os.Stdout)
}

// statusOutput is the JSON shape of the status report.
type statusOutput struct {
	TargetDir string          `json:"target_dir"`
	Installed bool            `json:"installed"`
	Marker    bool            `json:"marker_file"`
	HiddenDir bool            `json:"hidden_dir"`
	Agents    []bundle.Agent  `json:"agents"`
	Backups   []backupSummary `json:"backups"`
}

// backupSummary is one snapshot entry in status output.
type backupSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	FileCount int       `json:"file_count"`
}

// runStatusWithWriter allows injecting a writer for testing.
func runStatusWithWriter(w io.Writer) error {
	target, err := filepath.Abs(statusTarget)
	if err != nil {
		return errors.Wrap(err, "resolving target directory")
	}

	out := statusOutput{TargetDir: target}

	if _, err := os.Stat(bundle.MarkerPath(target)); err == nil {
		out.Marker = true
	}
	if info, err := os.Stat(bundle.HiddenDirPath(target)); err == nil && info.IsDir() {
		out.HiddenDir = true
	}
	out.Installed = out.Marker || out.HiddenDir

	out.Agents, err = bundle.Agents(bundle.HiddenDirPath(target))
	if err != nil {
		return errors.Wrap(err, "scanning agents")
	}

	manifests, err := backup.NewManager(target).List()
	if err != nil && !errors.Is(err, backup.ErrNoSnapshots) {
		return errors.Wrap(err, "listing backups")
	}
	for _, m := range manifests {
		out.Backups = append(out.Backups, backupSummary{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			FileCount: len(m.Files),
		})
	}

	if statusJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(out), "encoding output")
	}
	return printStatus(w, out)
}

func printStatus(w io.Writer, out statusOutput) error {
	fmt.Fprintf(w, "%sTarget: %s%s\n", colorCyan+colorBold, out.TargetDir, colorReset)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s  %s\n", presence(out.Marker),
		filepath.Join(bundle.MarkerDir, bundle.MarkerFile))
	fmt.Fprintf(w, "  %s  %s/\n", presence(out.HiddenDir), bundle.HiddenDir)

	if len(out.Agents) > 0 {
		fmt.Fprintf(w, "\n%sAgents (%d):%s\n", colorBold, len(out.Agents), colorReset)
		for _, a := range out.Agents {
			fmt.Fprintf(w, "  %s%s%s  %s\n",
				colorCyan, a.Name, colorReset, truncate(a.Description, 60))
		}
	}

	if len(out.Backups) > 0 {
		fmt.Fprintf(w, "\n%sBackups (%d):%s\n", colorBold, len(out.Backups), colorReset)
		for _, b := range out.Backups {
			fmt.Fprintf(w, "  %s%s%s  %s  (%d files)\n",
				colorGreen, b.ID, colorReset,
				b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.FileCount)
		}
	}

	if !out.Installed {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Not installed. Run: copa install --url <repository>")
	}
	return nil
}

func presence(present bool) string {
	if present {
		return colorGreen + "✓" + colorReset
	}
	return colorGray + "✗" + colorReset
}
