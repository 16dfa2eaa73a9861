package bundle

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zip"
)

// ErrEmptyArchive indicates the archive extracted to nothing usable.
var ErrEmptyArchive = errors.New("archive contains no top-level directory")

// Download fetches archiveURL with a single GET and writes the body to
// dest. There is no retry; one failed attempt is terminal.
func Download(ctx context.Context, client *http.Client, archiveURL, dest string) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "requesting archive")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("unexpected status %s fetching %s", resp.Status, archiveURL)
	}

	f, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "creating archive file")
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return errors.Wrap(err, "writing archive file")
	}

	return errors.Wrap(f.Close(), "closing archive file")
}

// Extract unpacks the zip archive at archivePath into destDir.
// Entry paths are validated against directory traversal.
func Extract(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractEntry(f, destDir); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(f *zip.File, destDir string) error {
	// Reject entries that would escape destDir
	cleaned := filepath.Clean(f.Name)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return errors.Newf("archive entry escapes extraction directory: %s", f.Name)
	}
	dest := filepath.Join(destDir, cleaned)

	if f.FileInfo().IsDir() {
		return errors.Wrapf(os.MkdirAll(dest, 0o755), "creating directory %s", cleaned)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent of %s", cleaned)
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening archive entry %s", cleaned)
	}
	defer rc.Close()

	mode := f.FileInfo().Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, "creating %s", cleaned)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrapf(err, "extracting %s", cleaned)
	}

	return errors.Wrapf(out.Close(), "closing %s", cleaned)
}

// Root returns the first top-level directory inside extractDir. Repository
// archives wrap their content in a single "<repo>-<branch>/" directory;
// its absence means the archive did not contain a bundle.
func Root(extractDir string) (string, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", errors.Wrap(err, "reading extraction directory")
	}

	for _, entry := range entries {
		if entry.IsDir() {
			return filepath.Join(extractDir, entry.Name()), nil
		}
	}

	return "", ErrEmptyArchive
}
