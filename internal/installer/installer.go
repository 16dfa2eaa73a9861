// Package installer drives the agents bundle install workflow.
//
// The workflow is strictly sequential:
//
//	ValidateTarget -> CheckExisting -> Backup -> Fetch -> Install -> Cleanup
//
// Failures at ValidateTarget or CheckExisting terminate immediately;
// a Backup failure terminates before anything was fetched; a Fetch
// failure runs Cleanup only (the target was never touched); an Install
// failure runs Rollback then Cleanup. Cleanup always runs on every path
// that reached Fetch.
package installer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/copa/internal/backup"
	"github.com/thoreinstein/copa/internal/bundle"
	copaerrors "github.com/thoreinstein/copa/internal/errors"
)

// Request holds the immutable parameters of one installation run.
type Request struct {
	// TargetDir is the project directory receiving the bundle.
	TargetDir string

	// SourceURL is the repository or direct archive URL.
	SourceURL string

	// Branch is the branch used when deriving a repository archive URL.
	Branch string

	// Force allows overwriting an existing installation.
	Force bool

	// Backup controls whether a snapshot is taken before overwriting.
	Backup bool
}

// Result describes what a successful run installed.
type Result struct {
	// TargetDir is the absolute target directory.
	TargetDir string

	// SnapshotID is the ID of the pre-install snapshot, if one was taken.
	SnapshotID string

	// MarkerInstalled reports whether the marker file was found and copied.
	MarkerInstalled bool

	// HiddenInstalled reports whether the hidden directory was found and copied.
	HiddenInstalled bool

	// ReadmeInstalled reports whether the optional readme was copied.
	ReadmeInstalled bool

	// Agents lists the agent definitions found in the installed bundle.
	Agents []bundle.Agent
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(in *Installer) {
		in.log = log
	}
}

// WithOutput sets the writer for user-facing progress messages.
// Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Installer) {
		in.out = w
	}
}

// WithHTTPClient sets the HTTP client used for the archive download.
func WithHTTPClient(client *http.Client) Option {
	return func(in *Installer) {
		in.client = client
	}
}

// Installer runs the install workflow for a single request.
type Installer struct {
	req    Request
	log    *slog.Logger
	out    io.Writer
	client *http.Client

	// Transient state, owned by one Run and destroyed at its end.
	tempDir  string
	snapshot *backup.Manifest
	backups  *backup.Manager
}

// New creates an Installer for the given request.
func New(req Request, opts ...Option) *Installer {
	in := &Installer{
		req:    req,
		log:    slog.Default(),
		out:    os.Stdout,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run executes the full workflow. On success the returned Result
// describes the installed bundle; on failure the target tree is either
// untouched or restored from the snapshot (when one was taken).
func (in *Installer) Run(ctx context.Context) (*Result, error) {
	if err := in.validateTarget(); err != nil {
		return nil, err
	}
	if err := in.checkExisting(); err != nil {
		return nil, err
	}
	if err := in.createBackup(); err != nil {
		return nil, err
	}

	if err := in.fetchBundle(ctx); err != nil {
		in.cleanup()
		return nil, err
	}

	res, err := in.installFiles()
	if err != nil {
		in.rollback()
		in.cleanup()
		return nil, err
	}

	in.cleanup()
	return res, nil
}

// validateTarget resolves the target to an absolute path and requires it
// to be an existing directory.
func (in *Installer) validateTarget() error {
	abs, err := filepath.Abs(in.req.TargetDir)
	if err != nil {
		return errors.Wrap(copaerrors.ErrInvalidTarget, err.Error())
	}
	in.req.TargetDir = abs

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(copaerrors.ErrInvalidTarget, "directory does not exist: %s", abs)
		}
		return errors.Wrapf(copaerrors.ErrInvalidTarget, "stat %s: %v", abs, err)
	}
	if !info.IsDir() {
		return errors.Wrapf(copaerrors.ErrInvalidTarget, "path is not a directory: %s", abs)
	}

	in.success("Target directory: %s", abs)
	return nil
}

// checkExisting blocks on a prior installation unless force is set.
// This is a precondition check, not a lock; concurrent runs against the
// same target are not detected.
func (in *Installer) checkExisting() error {
	if !bundle.Installed(in.req.TargetDir) {
		return nil
	}

	if !in.req.Force {
		return errors.Wrapf(copaerrors.ErrAlreadyInstalled,
			"found %s or %s under %s",
			filepath.Join(bundle.MarkerDir, bundle.MarkerFile), bundle.HiddenDir, in.req.TargetDir)
	}

	in.warn("Existing installation will be overwritten (--force)")
	return nil
}

// createBackup snapshots the existing bundle files before any destructive
// change. Disabled backups and a clean target are both silent successes.
func (in *Installer) createBackup() error {
	if !in.req.Backup {
		return nil
	}

	in.backups = backup.NewManager(in.req.TargetDir)
	manifest, err := in.backups.Snapshot([]string{
		filepath.Join(bundle.MarkerDir, bundle.MarkerFile),
		bundle.HiddenDir,
	})
	if err != nil {
		if errors.Is(err, backup.ErrNothingToBackup) {
			return nil
		}
		return errors.Wrap(copaerrors.ErrBackup, err.Error())
	}

	in.snapshot = manifest
	in.success("Backup created: %s%s (%d files)", backup.Prefix, manifest.ID, len(manifest.Files))
	return nil
}

// fetchBundle downloads and extracts the bundle archive into a scoped
// temporary directory. The target tree is not touched by this step.
func (in *Installer) fetchBundle(ctx context.Context) error {
	archiveURL, err := bundle.ArchiveURL(in.req.SourceURL, in.req.Branch)
	if err != nil {
		return errors.Wrap(copaerrors.ErrFetch, err.Error())
	}

	tempDir, err := os.MkdirTemp("", "copa-install-*")
	if err != nil {
		return errors.Wrap(copaerrors.ErrFetch, err.Error())
	}
	in.tempDir = tempDir

	in.info("Downloading %s", archiveURL)
	in.log.Debug("fetching archive", "url", archiveURL, "temp_dir", tempDir)

	archivePath := filepath.Join(tempDir, "bundle.zip")
	if err := bundle.Download(ctx, in.client, archiveURL, archivePath); err != nil {
		return errors.Wrap(copaerrors.ErrFetch, err.Error())
	}

	in.info("Extracting archive")
	if err := bundle.Extract(archivePath, tempDir); err != nil {
		return errors.Wrap(copaerrors.ErrArchive, err.Error())
	}

	in.success("Download complete")
	return nil
}

// installFiles copies the bundle content from the extracted archive into
// the target tree. The hidden directory is replaced entirely, never
// merged. Missing optional items are warnings; a missing top-level
// directory in the archive is a hard failure.
func (in *Installer) installFiles() (*Result, error) {
	root, err := bundle.Root(in.tempDir)
	if err != nil {
		return nil, errors.Wrap(copaerrors.ErrInstall, err.Error())
	}

	res := &Result{TargetDir: in.req.TargetDir}
	if in.snapshot != nil {
		res.SnapshotID = in.snapshot.ID
	}

	// Marker file -> .github/copilot-instructions.md
	srcMarker := filepath.Join(root, bundle.MarkerFile)
	if _, err := os.Stat(srcMarker); err == nil {
		markerDir := filepath.Join(in.req.TargetDir, bundle.MarkerDir)
		if err := os.MkdirAll(markerDir, 0o755); err != nil {
			return nil, errors.Wrap(copaerrors.ErrInstall, err.Error())
		}
		if err := copyFile(srcMarker, bundle.MarkerPath(in.req.TargetDir)); err != nil {
			return nil, errors.Wrap(copaerrors.ErrInstall, err.Error())
		}
		res.MarkerInstalled = true
		in.success("Installed: %s", filepath.Join(bundle.MarkerDir, bundle.MarkerFile))
	} else {
		in.warn("%s not found in bundle", bundle.MarkerFile)
	}

	// Hidden directory -> .copilot/ (replace, never merge)
	srcHidden := filepath.Join(root, bundle.HiddenDir)
	destHidden := bundle.HiddenDirPath(in.req.TargetDir)
	if _, err := os.Stat(srcHidden); err == nil {
		if err := os.RemoveAll(destHidden); err != nil {
			return nil, errors.Wrap(copaerrors.ErrInstall, err.Error())
		}
		if err := os.MkdirAll(destHidden, 0o755); err != nil {
			return nil, errors.Wrap(copaerrors.ErrInstall, err.Error())
		}
		if err := copyDir(srcHidden, destHidden); err != nil {
			return nil, errors.Wrap(copaerrors.ErrInstall, err.Error())
		}
		res.HiddenInstalled = true

		agents, err := bundle.Agents(destHidden)
		if err != nil {
			in.log.Debug("scanning agents failed", "error", err)
		}
		res.Agents = agents
		in.success("Installed: %s/ (%d agents)", bundle.HiddenDir, len(agents))
	} else {
		in.warn("%s/ not found in bundle", bundle.HiddenDir)
	}

	// Optional readme -> .copilot/README.md
	srcReadme := filepath.Join(root, bundle.ReadmeName)
	if _, err := os.Stat(srcReadme); err == nil {
		if err := os.MkdirAll(destHidden, 0o755); err != nil {
			return nil, errors.Wrap(copaerrors.ErrInstall, err.Error())
		}
		if err := copyFile(srcReadme, filepath.Join(destHidden, bundle.ReadmeName)); err != nil {
			return nil, errors.Wrap(copaerrors.ErrInstall, err.Error())
		}
		res.ReadmeInstalled = true
		in.success("Installed: %s/%s", bundle.HiddenDir, bundle.ReadmeName)
	}

	return res, nil
}

// rollback restores the snapshot taken before the overwrite. Best-effort:
// failures are reported but the run is already failing.
func (in *Installer) rollback() {
	if in.snapshot == nil || in.backups == nil {
		return
	}

	in.warn("Restoring backup %s%s", backup.Prefix, in.snapshot.ID)
	if err := in.backups.Restore(in.snapshot.ID); err != nil {
		in.log.Error("rollback failed", "snapshot", in.snapshot.ID, "error", err)
		in.fail("Could not restore backup: %v", err)
		return
	}
	in.success("Backup restored")
}

// cleanup removes the temporary download area. Best-effort; failure is a
// warning only.
func (in *Installer) cleanup() {
	if in.tempDir == "" {
		return
	}
	if err := os.RemoveAll(in.tempDir); err != nil {
		in.warn("Could not remove temporary files: %v", err)
		return
	}
	in.log.Debug("removed temporary files", "temp_dir", in.tempDir)
	in.tempDir = ""
}
