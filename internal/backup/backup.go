package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/copa/pkg/fileutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// timestampFormat matches the snapshot directory naming of the original
// installer: .copilot_backup_20260825_153000.
const timestampFormat = "20060102_150405"

// Manager handles snapshot creation, restoration, and pruning for one
// target directory.
type Manager struct {
	targetDir string
}

// NewManager creates a snapshot Manager rooted at targetDir.
func NewManager(targetDir string) *Manager {
	return &Manager{targetDir: targetDir}
}

// Snapshot copies the given paths (relative to the target directory) into
// a new timestamped snapshot directory at the target root. Directories
// are copied recursively. Paths that do not exist are skipped; if none
// exist, the empty snapshot directory is removed and ErrNothingToBackup
// is returned.
func (m *Manager) Snapshot(relPaths []string) (*Manifest, error) {
	if len(relPaths) == 0 {
		return nil, errors.New("at least one path is required")
	}

	id, snapDir, err := m.createSnapshotDir()
	if err != nil {
		return nil, err
	}

	var files []File
	var roots []string

	for _, rel := range relPaths {
		src := filepath.Join(m.targetDir, rel)

		info, err := os.Stat(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "stat %s", rel)
		}
		roots = append(roots, rel)

		if info.IsDir() {
			dirFiles, err := m.snapshotDirectory(rel, snapDir)
			if err != nil {
				return nil, errors.Wrapf(err, "backing up directory %s", rel)
			}
			files = append(files, dirFiles...)
		} else {
			bf, err := m.snapshotFile(rel, snapDir)
			if err != nil {
				return nil, errors.Wrapf(err, "backing up file %s", rel)
			}
			files = append(files, *bf)
		}
	}

	if len(files) == 0 {
		// Clean up empty snapshot directory
		os.RemoveAll(snapDir)
		return nil, ErrNothingToBackup
	}

	manifest := &Manifest{
		Version:     ManifestVersion,
		CreatedAt:   time.Now().UTC(),
		Roots:       roots,
		Files:       files,
		CopaVersion: Version,
		ID:          id,
	}

	manifestPath := filepath.Join(snapDir, "manifest.json")
	if err := fileutil.AtomicWriteJSON(manifestPath, manifest); err != nil {
		return nil, errors.Wrap(err, "writing manifest")
	}

	return manifest, nil
}

// createSnapshotDir makes a fresh snapshot directory, appending a counter
// suffix when two snapshots land in the same second.
func (m *Manager) createSnapshotDir() (id, path string, err error) {
	base := time.Now().Format(timestampFormat)

	for i := 0; ; i++ {
		id = base
		if i > 0 {
			id = fmt.Sprintf("%s_%d", base, i+1)
		}
		path = m.SnapshotPath(id)

		err = os.Mkdir(path, 0o755)
		if err == nil {
			return id, path, nil
		}
		if !os.IsExist(err) {
			return "", "", errors.Wrap(err, "creating snapshot directory")
		}
	}
}

// snapshotFile copies a single file into the snapshot directory,
// preserving its path relative to the target.
func (m *Manager) snapshotFile(rel, snapDir string) (*File, error) {
	src := filepath.Join(m.targetDir, rel)
	dst := filepath.Join(snapDir, rel)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating parent directory")
	}

	hash, mode, err := copyFile(src, dst)
	if err != nil {
		return nil, err
	}

	return &File{
		RelPath:    rel,
		SHA256Hash: hash,
		Mode:       mode,
	}, nil
}

// snapshotDirectory recursively copies all files under a directory.
func (m *Manager) snapshotDirectory(rel, snapDir string) ([]File, error) {
	var files []File
	srcDir := filepath.Join(m.targetDir, rel)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Only files are tracked; directories are recreated on restore.
		if d.IsDir() {
			return nil
		}

		fileRel, err := filepath.Rel(m.targetDir, path)
		if err != nil {
			return err
		}

		bf, err := m.snapshotFile(fileRel, snapDir)
		if err != nil {
			return err
		}
		files = append(files, *bf)
		return nil
	})

	return files, err
}

// Restore restores files from a snapshot to the target directory. The
// snapshotted roots are removed first, so state left behind by a partial
// install is fully replaced.
func (m *Manager) Restore(id string) error {
	if id == "" {
		return errors.New("snapshot ID is required")
	}

	manifest, err := m.Get(id)
	if err != nil {
		return err
	}

	snapDir := m.SnapshotPath(id)

	// Verify integrity of every file before touching the target.
	for _, bf := range manifest.Files {
		src := filepath.Join(snapDir, bf.RelPath)
		hash, err := hashFile(src)
		if err != nil {
			return errors.Wrapf(err, "reading snapshot file %s", bf.RelPath)
		}
		if hash != bf.SHA256Hash {
			return errors.Wrapf(ErrCorrupted, "file %s hash mismatch", bf.RelPath)
		}
	}

	// Clear the snapshotted roots so extra files from a partial install
	// do not survive the restore.
	for _, root := range manifest.Roots {
		if err := os.RemoveAll(filepath.Join(m.targetDir, root)); err != nil {
			return errors.Wrapf(err, "removing %s", root)
		}
	}

	for _, bf := range manifest.Files {
		src := filepath.Join(snapDir, bf.RelPath)
		dst := filepath.Join(m.targetDir, bf.RelPath)

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return errors.Wrapf(err, "creating directory for %s", bf.RelPath)
		}
		if _, _, err := copyFile(src, dst); err != nil {
			return errors.Wrapf(err, "restoring %s", bf.RelPath)
		}
		if err := os.Chmod(dst, bf.Mode); err != nil {
			return errors.Wrapf(err, "setting permissions for %s", bf.RelPath)
		}
	}

	return nil
}

// List returns all snapshots under the target, sorted by date (newest first).
func (m *Manager) List() ([]Manifest, error) {
	entries, err := os.ReadDir(m.targetDir)
	if err != nil {
		return nil, errors.Wrap(err, "reading target directory")
	}

	var manifests []Manifest
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}

		id := strings.TrimPrefix(entry.Name(), Prefix)
		manifest, err := m.Get(id)
		if err != nil {
			// Skip directories without a readable manifest
			continue
		}
		manifests = append(manifests, *manifest)
	}

	if len(manifests) == 0 {
		return nil, ErrNoSnapshots
	}

	// Newest first
	slices.SortFunc(manifests, func(a, b Manifest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return manifests, nil
}

// Prune removes snapshots beyond the retention count, keeping the most
// recent 'keep'.
func (m *Manager) Prune(keep int) (removed int, err error) {
	if keep < 0 {
		return 0, errors.New("keep must be non-negative")
	}

	manifests, err := m.List()
	if err != nil {
		if errors.Is(err, ErrNoSnapshots) {
			return 0, nil // Nothing to prune
		}
		return 0, err
	}

	// Already sorted newest first; delete everything beyond 'keep'.
	for i := keep; i < len(manifests); i++ {
		if err := os.RemoveAll(m.SnapshotPath(manifests[i].ID)); err != nil {
			return removed, errors.Wrapf(err, "removing snapshot %s", manifests[i].ID)
		}
		removed++
	}

	return removed, nil
}

// Get returns the manifest for a specific snapshot.
func (m *Manager) Get(id string) (*Manifest, error) {
	if id == "" {
		return nil, errors.New("snapshot ID is required")
	}

	manifestPath := filepath.Join(m.SnapshotPath(id), "manifest.json")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoSnapshots, "snapshot %s not found", id)
		}
		return nil, errors.Wrap(err, "reading manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}

	manifest.ID = id
	return &manifest, nil
}

// SnapshotPath returns the directory of a snapshot with the given ID.
func (m *Manager) SnapshotPath(id string) string {
	return filepath.Join(m.targetDir, Prefix+id)
}

// hashFile computes the SHA256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "reading file")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile copies a file from src to dst, returning the SHA256 hash and
// mode. The destination is created with 0644 permissions initially, then
// updated to match the source file's permissions.
func copyFile(src, dst string) (hash string, mode fs.FileMode, err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return "", 0, errors.Wrap(err, "opening source file")
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return "", 0, errors.Wrap(err, "stat source file")
	}
	mode = srcInfo.Mode()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, errors.Wrap(err, "creating destination file")
	}

	// Compute hash while copying
	h := sha256.New()
	w := io.MultiWriter(dstFile, h)

	if _, err := io.Copy(w, srcFile); err != nil {
		dstFile.Close()
		return "", 0, errors.Wrap(err, "copying file")
	}

	if err := dstFile.Close(); err != nil {
		return "", 0, errors.Wrap(err, "closing destination file")
	}

	if err := os.Chmod(dst, mode); err != nil {
		return "", 0, errors.Wrap(err, "setting permissions")
	}

	return hex.EncodeToString(h.Sum(nil)), mode, nil
}
