package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/copa/internal/backup"
	"github.com/thoreinstein/copa/internal/config"
	copaerrors "github.com/thoreinstein/copa/internal/errors"
	"github.com/thoreinstein/copa/internal/installer"
	"github.com/thoreinstein/copa/internal/logging"
)

var (
	installURL      string
	installTarget   string
	installBranch   string
	installForce    bool
	installNoBackup bool
)

func init() {
	installCmd.Flags().StringVar(&installURL, "url", "",
		"bundle repository or archive URL (default: 'source' config key)")
	installCmd.Flags().StringVarP(&installTarget, "target", "t", ".",
		"target project directory")
	installCmd.Flags().StringVarP(&installBranch, "branch", "b", "",
		"branch to install from a repository URL (default: 'branch' config key)")
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false,
		"overwrite an existing installation")
	installCmd.Flags().BoolVar(&installNoBackup, "no-backup", false,
		"skip the pre-install backup")
	rootCmd.AddCommand(installCmd)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the agents bundle into a project",
	Long: `Install the Copilot agents bundle into a project directory.

The bundle repository is downloaded as a zip archive and unpacked into
a temporary directory. The marker file is placed at
.github/copilot-instructions.md and the .copilot/ directory is copied
to the project root, replacing any previous contents.

When the target already contains an installation the command fails
unless --force is given. With --force, the existing files are snapshot
into a timestamped backup directory first (disable with --no-backup);
if the install then fails partway, the snapshot is restored so the
project is never left in a half-installed state.`,
	Example: `  # Install into the current directory
  copa install --url https://github.com/example/agents

  # Install a specific branch, overwriting a previous installation
  copa install --url https://github.com/example/agents --branch develop --force

  # Use the source configured in config.yaml
  copa install --target ../other-project

  See Also:
    copa status      - Inspect an installation
    copa backup list - List pre-install backups`,
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, _ []string) error {
	return runInstallWithIO(cmd.Context(), cmd.OutOrStdout())
}

// runInstallWithIO allows injecting the context and writer for testing.
func runInstallWithIO(ctx context.Context, w io.Writer) error {
	c := loadedConfig()

	source := installURL
	if source == "" {
		source = c.Source
	}
	if source == "" {
		return copaerrors.NewUserError(errors.New("no bundle source given"),
			"pass --url or set the 'source' key in the config file")
	}

	branch := installBranch
	if branch == "" {
		branch = c.Branch
	}
	if branch == "" {
		branch = config.DefaultBranch
	}

	in := installer.New(installer.Request{
		TargetDir: installTarget,
		SourceURL: source,
		Branch:    branch,
		Force:     installForce,
		Backup:    !installNoBackup,
	},
		installer.WithLogger(logging.FromContext(ctx)),
		installer.WithOutput(w),
	)

	res, err := in.Run(ctx)
	if err != nil {
		return installError(err)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%sInstallation complete%s\n", colorGreen+colorBold, colorReset)
	if len(res.Agents) > 0 {
		fmt.Fprintf(w, "\n%sAgents:%s\n", colorBold, colorReset)
		for _, a := range res.Agents {
			fmt.Fprintf(w, "  %s%s%s  %s\n",
				colorCyan, a.Name, colorReset, truncate(a.Description, 60))
		}
	}
	if res.SnapshotID != "" {
		fmt.Fprintf(w, "\n%sPrevious files saved to %s%s%s\n",
			colorGray, backup.Prefix, res.SnapshotID, colorReset)
	}
	return nil
}

// installError attaches an actionable suggestion to known failure kinds.
func installError(err error) error {
	switch {
	case errors.Is(err, copaerrors.ErrAlreadyInstalled):
		return copaerrors.NewUserError(err, "re-run with --force to overwrite the existing installation")
	case errors.Is(err, copaerrors.ErrInvalidTarget):
		return copaerrors.NewUserError(err, "create the directory first, or pass --target with an existing directory")
	case errors.Is(err, copaerrors.ErrFetch):
		return copaerrors.NewUserError(err, "check the URL, branch name, and your network connection")
	default:
		return copaerrors.NewExitError(err, copaerrors.ExitFailure)
	}
}
