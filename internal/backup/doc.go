// Package backup creates and restores timestamped snapshots of installed
// bundle files.
//
// Snapshots live inside the target tree itself, as hidden directories
// named .copilot_backup_<timestamp> at the target root. Each snapshot
// holds copies of the requested paths (stored relative to the target
// root) plus a manifest.json recording per-file SHA-256 hashes and
// permission bits. Restore verifies every hash before writing anything
// back.
//
// Snapshots are consumed on rollback after a failed install and are
// otherwise left for the user to inspect or discard; `copa backup prune`
// removes old ones.
package backup
