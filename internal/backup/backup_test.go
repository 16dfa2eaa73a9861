package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
)

// seedTarget creates a target directory holding a marker file and a
// hidden directory with one agent file.
func seedTarget(t *testing.T) string {
	t.Helper()
	target := t.TempDir()

	if err := os.MkdirAll(filepath.Join(target, ".github"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, ".github", "copilot-instructions.md"), []byte("instructions v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(target, ".copilot", "agents"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, ".copilot", "agents", "rev.md"), []byte("agent v1"), 0o600); err != nil {
		t.Fatal(err)
	}
	return target
}

var bundlePaths = []string{
	filepath.Join(".github", "copilot-instructions.md"),
	".copilot",
}

func TestSnapshotAndRestore(t *testing.T) {
	target := seedTarget(t)
	m := NewManager(target)

	manifest, err := m.Snapshot(bundlePaths)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(manifest.Files) != 2 {
		t.Fatalf("expected 2 files in manifest, got %d", len(manifest.Files))
	}
	if len(manifest.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %v", manifest.Roots)
	}

	// Snapshot copies are byte-identical
	snapMarker := filepath.Join(m.SnapshotPath(manifest.ID), ".github", "copilot-instructions.md")
	data, err := os.ReadFile(snapMarker)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "instructions v1" {
		t.Errorf("snapshot marker = %q", data)
	}

	// Simulate a partial overwrite: changed marker, extra file, lost agent
	if err := os.WriteFile(filepath.Join(target, ".github", "copilot-instructions.md"), []byte("clobbered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, ".copilot", "stray.txt"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(target, ".copilot", "agents", "rev.md")); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(manifest.ID); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	data, err = os.ReadFile(filepath.Join(target, ".github", "copilot-instructions.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "instructions v1" {
		t.Errorf("restored marker = %q, want original content", data)
	}

	data, err = os.ReadFile(filepath.Join(target, ".copilot", "agents", "rev.md"))
	if err != nil {
		t.Fatalf("agent file should be restored: %v", err)
	}
	if string(data) != "agent v1" {
		t.Errorf("restored agent = %q", data)
	}

	info, err := os.Stat(filepath.Join(target, ".copilot", "agents", "rev.md"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("restored mode = %v, want 0600", info.Mode().Perm())
	}

	// The stray file from the partial install must be gone
	if _, err := os.Stat(filepath.Join(target, ".copilot", "stray.txt")); !os.IsNotExist(err) {
		t.Error("stray file should be removed by restore")
	}
}

func TestSnapshot_NothingToBackup(t *testing.T) {
	target := t.TempDir()
	m := NewManager(target)

	_, err := m.Snapshot(bundlePaths)
	if !errors.Is(err, ErrNothingToBackup) {
		t.Fatalf("expected ErrNothingToBackup, got %v", err)
	}

	// No empty snapshot directory left behind
	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("target should be empty, found %v", entries)
	}
}

func TestSnapshot_DistinctIDs(t *testing.T) {
	target := seedTarget(t)
	m := NewManager(target)

	// Two snapshots within the same second must not collide.
	m1, err := m.Snapshot(bundlePaths)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := m.Snapshot(bundlePaths)
	if err != nil {
		t.Fatal(err)
	}

	if m1.ID == m2.ID {
		t.Errorf("snapshot IDs collided: %s", m1.ID)
	}
}

func TestListAndPrune(t *testing.T) {
	target := seedTarget(t)
	m := NewManager(target)

	for i := 0; i < 3; i++ {
		if _, err := m.Snapshot(bundlePaths); err != nil {
			t.Fatal(err)
		}
	}

	manifests, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(manifests) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(manifests))
	}

	removed, err := m.Prune(1)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	manifests, err = m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(manifests) != 1 {
		t.Errorf("expected 1 snapshot after prune, got %d", len(manifests))
	}
}

func TestList_Empty(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.List(); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("expected ErrNoSnapshots, got %v", err)
	}
}

func TestRestore_CorruptedSnapshot(t *testing.T) {
	target := seedTarget(t)
	m := NewManager(target)

	manifest, err := m.Snapshot(bundlePaths)
	if err != nil {
		t.Fatal(err)
	}

	// Tamper with a snapshot file
	tampered := filepath.Join(m.SnapshotPath(manifest.ID), ".github", "copilot-instructions.md")
	if err := os.WriteFile(tampered, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(manifest.ID); !errors.Is(err, ErrCorrupted) {
		t.Errorf("expected ErrCorrupted, got %v", err)
	}

	// Target must be untouched when verification fails
	data, err := os.ReadFile(filepath.Join(target, ".github", "copilot-instructions.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "instructions v1" {
		t.Errorf("target modified despite corrupted snapshot: %q", data)
	}
}

func TestGet_Missing(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.Get("20260101_000000"); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("expected ErrNoSnapshots, got %v", err)
	}
}
