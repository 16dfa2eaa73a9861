package backup

import (
	"io/fs"
	"time"

	"github.com/cockroachdb/errors"
)

// Manifest format version for forward compatibility.
const ManifestVersion = 1

// Prefix is the name prefix of snapshot directories at the target root.
// A full snapshot directory looks like .copilot_backup_20260825_153000.
const Prefix = ".copilot_backup_"

// Sentinel errors for snapshot operations.
var (
	// ErrNoSnapshots indicates no snapshots exist under the target.
	ErrNoSnapshots = errors.New("no snapshots found")

	// ErrNothingToBackup indicates none of the requested paths existed.
	ErrNothingToBackup = errors.New("nothing to back up")

	// ErrCorrupted indicates snapshot file integrity verification failed.
	// This occurs when a file's SHA256 hash doesn't match the manifest.
	ErrCorrupted = errors.New("snapshot corrupted")
)

// Manifest contains metadata about a snapshot.
// It is stored as manifest.json in each snapshot directory.
type Manifest struct {
	// Version is the manifest format version for forward compatibility.
	Version int `json:"version"`

	// CreatedAt is when the snapshot was created.
	CreatedAt time.Time `json:"created_at"`

	// Roots are the top-level paths (relative to the target directory)
	// that were snapshotted. Restore removes each existing root before
	// copying files back, so partial overwrites are fully undone.
	Roots []string `json:"roots"`

	// Files contains metadata for each snapshotted file.
	Files []File `json:"files"`

	// CopaVersion is the version of copa that created this snapshot.
	CopaVersion string `json:"copa_version"`

	// ID is the snapshot identifier (timestamp format: 20260825_153000).
	// Populated when loading from disk but not stored in JSON.
	ID string `json:"-"`
}

// File contains metadata for a single snapshotted file.
type File struct {
	// RelPath is the file's path relative to the target directory. The
	// same relative path is used inside the snapshot directory.
	RelPath string `json:"rel_path"`

	// SHA256Hash is the hex-encoded SHA256 hash of the file contents.
	SHA256Hash string `json:"sha256_hash"`

	// Mode is the file's permission bits.
	Mode fs.FileMode `json:"mode"`
}
