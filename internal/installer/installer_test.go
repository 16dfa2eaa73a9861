package installer

import (
	"bytes"
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zip"

	"github.com/thoreinstein/copa/internal/backup"
	copaerrors "github.com/thoreinstein/copa/internal/errors"
	"github.com/thoreinstein/copa/internal/logging"
)

// bundleFiles is a well-formed archive layout: a single top-level
// directory holding the marker file and the hidden directory with two
// agents.
var bundleFiles = map[string]string{
	"agents-main/copilot-instructions.md":     "# Instructions\n",
	"agents-main/README.md":                   "# Agents bundle\n",
	"agents-main/.copilot/agents/reviewer.md": "---\nname: reviewer\n---\nbody\n",
	"agents-main/.copilot/agents/planner.md":  "---\nname: planner\n---\nbody\n",
}

// serveZip starts a test server that responds to every request with a
// zip archive built from files.
func serveZip(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newInstaller builds an Installer with quiet logging and buffered output.
func newInstaller(t *testing.T, req Request) *Installer {
	t.Helper()
	return New(req,
		WithLogger(logging.ForTest(t)),
		WithOutput(&bytes.Buffer{}),
	)
}

// seedInstalled populates target with an existing installation.
func seedInstalled(t *testing.T, target string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(target, ".github"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, ".github", "copilot-instructions.md"), []byte("original instructions"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(target, ".copilot", "agents"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, ".copilot", "agents", "old.md"), []byte("old agent"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// treeDigest maps every file under dir (relative path -> content),
// skipping snapshot directories so pre/post trees can be compared.
func treeDigest(t *testing.T, dir string) map[string]string {
	t.Helper()
	digest := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), backup.Prefix) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		digest[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return digest
}

func assertTreesEqual(t *testing.T, want, got map[string]string) {
	t.Helper()
	for rel, content := range want {
		if got[rel] != content {
			t.Errorf("file %s = %q, want %q", rel, got[rel], content)
		}
	}
	for rel := range got {
		if _, ok := want[rel]; !ok {
			t.Errorf("unexpected file %s", rel)
		}
	}
}

// tempAreas counts copa's scoped temp directories, to verify cleanup.
func tempAreas(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "copa-install-*"))
	if err != nil {
		t.Fatal(err)
	}
	return len(matches)
}

func TestRun_InvalidTarget(t *testing.T) {
	srv := serveZip(t, bundleFiles)

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	in := newInstaller(t, Request{
		TargetDir: missing,
		SourceURL: srv.URL,
		Branch:    "main",
		Backup:    true,
	})

	_, err := in.Run(context.Background())
	if !errors.Is(err, copaerrors.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if _, statErr := os.Stat(missing); !os.IsNotExist(statErr) {
		t.Error("no filesystem writes should occur on validation failure")
	}
}

func TestRun_TargetIsFile(t *testing.T) {
	srv := serveZip(t, bundleFiles)

	file := filepath.Join(t.TempDir(), "a-file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	in := newInstaller(t, Request{TargetDir: file, SourceURL: srv.URL, Branch: "main"})
	if _, err := in.Run(context.Background()); !errors.Is(err, copaerrors.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestRun_ConflictWithoutForce(t *testing.T) {
	srv := serveZip(t, bundleFiles)

	target := t.TempDir()
	seedInstalled(t, target)
	before := treeDigest(t, target)

	in := newInstaller(t, Request{
		TargetDir: target,
		SourceURL: srv.URL,
		Branch:    "main",
		Backup:    true,
	})

	_, err := in.Run(context.Background())
	if !errors.Is(err, copaerrors.ErrAlreadyInstalled) {
		t.Fatalf("expected ErrAlreadyInstalled, got %v", err)
	}

	assertTreesEqual(t, before, treeDigest(t, target))

	// No snapshot directory either; the run stopped before backup.
	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), backup.Prefix) {
			t.Error("no snapshot should be created on conflict")
		}
	}
}

func TestRun_SuccessEmptyTarget(t *testing.T) {
	srv := serveZip(t, bundleFiles)

	target := t.TempDir()
	tempsBefore := tempAreas(t)

	in := newInstaller(t, Request{
		TargetDir: target,
		SourceURL: srv.URL,
		Branch:    "main",
		Backup:    true,
	})

	res, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !res.MarkerInstalled || !res.HiddenInstalled || !res.ReadmeInstalled {
		t.Errorf("result = %+v, want all parts installed", res)
	}
	if len(res.Agents) != 2 {
		t.Errorf("agents = %d, want 2", len(res.Agents))
	}
	if res.SnapshotID != "" {
		t.Errorf("no snapshot expected for an empty target, got %q", res.SnapshotID)
	}

	want := map[string]string{
		filepath.Join(".github", "copilot-instructions.md"): "# Instructions\n",
		filepath.Join(".copilot", "README.md"):              "# Agents bundle\n",
		filepath.Join(".copilot", "agents", "reviewer.md"):  "---\nname: reviewer\n---\nbody\n",
		filepath.Join(".copilot", "agents", "planner.md"):   "---\nname: planner\n---\nbody\n",
	}
	assertTreesEqual(t, want, treeDigest(t, target))

	if tempAreas(t) != tempsBefore {
		t.Error("temporary download area should be removed")
	}
}

func TestRun_ForceWithBackup(t *testing.T) {
	srv := serveZip(t, bundleFiles)

	target := t.TempDir()
	seedInstalled(t, target)

	in := newInstaller(t, Request{
		TargetDir: target,
		SourceURL: srv.URL,
		Branch:    "main",
		Force:     true,
		Backup:    true,
	})

	res, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.SnapshotID == "" {
		t.Fatal("expected a snapshot to be taken")
	}

	// Snapshot holds byte-identical copies of the pre-existing files.
	snapDir := filepath.Join(target, backup.Prefix+res.SnapshotID)
	data, err := os.ReadFile(filepath.Join(snapDir, ".github", "copilot-instructions.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "original instructions" {
		t.Errorf("snapshot marker = %q", data)
	}
	data, err = os.ReadFile(filepath.Join(snapDir, ".copilot", "agents", "old.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "old agent" {
		t.Errorf("snapshot agent = %q", data)
	}

	// The hidden directory was replaced, not merged.
	if _, err := os.Stat(filepath.Join(target, ".copilot", "agents", "old.md")); !os.IsNotExist(err) {
		t.Error("old agent should be gone after replace-install")
	}
	data, err = os.ReadFile(filepath.Join(target, ".github", "copilot-instructions.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# Instructions\n" {
		t.Errorf("installed marker = %q", data)
	}
}

func TestRun_ForceWithoutBackup(t *testing.T) {
	srv := serveZip(t, bundleFiles)

	target := t.TempDir()
	seedInstalled(t, target)

	in := newInstaller(t, Request{
		TargetDir: target,
		SourceURL: srv.URL,
		Branch:    "main",
		Force:     true,
		Backup:    false,
	})

	res, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.SnapshotID != "" {
		t.Error("no snapshot expected with backup disabled")
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), backup.Prefix) {
			t.Error("no snapshot directory should exist with backup disabled")
		}
	}
}

func TestRun_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	target := t.TempDir()
	seedInstalled(t, target)
	before := treeDigest(t, target)
	tempsBefore := tempAreas(t)

	in := newInstaller(t, Request{
		TargetDir: target,
		SourceURL: srv.URL,
		Branch:    "main",
		Force:     true,
		Backup:    true,
	})

	_, err := in.Run(context.Background())
	if !errors.Is(err, copaerrors.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}

	// Target tree is byte-identical to its pre-run state.
	assertTreesEqual(t, before, treeDigest(t, target))

	// A snapshot was taken before the fetch and contains the same content.
	var snapDir string
	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), backup.Prefix) {
			snapDir = filepath.Join(target, e.Name())
		}
	}
	if snapDir == "" {
		t.Fatal("expected a snapshot directory to exist after fetch failure")
	}
	data, err := os.ReadFile(filepath.Join(snapDir, ".github", "copilot-instructions.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "original instructions" {
		t.Errorf("snapshot marker = %q", data)
	}

	if tempAreas(t) != tempsBefore {
		t.Error("temporary download area should be removed after fetch failure")
	}
}

func TestRun_MalformedArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("this is not a zip archive"))
	}))
	t.Cleanup(srv.Close)

	target := t.TempDir()
	before := treeDigest(t, target)

	in := newInstaller(t, Request{TargetDir: target, SourceURL: srv.URL, Branch: "main"})

	_, err := in.Run(context.Background())
	if !errors.Is(err, copaerrors.ErrArchive) {
		t.Fatalf("expected ErrArchive, got %v", err)
	}
	assertTreesEqual(t, before, treeDigest(t, target))
}

func TestRun_InstallFailureRollsBack(t *testing.T) {
	// Archive with no top-level directory: extraction succeeds but the
	// bundle root cannot be located, failing the install step.
	srv := serveZip(t, map[string]string{
		"loose-file.md": "not wrapped in a directory\n",
	})

	target := t.TempDir()
	seedInstalled(t, target)
	before := treeDigest(t, target)
	tempsBefore := tempAreas(t)

	in := newInstaller(t, Request{
		TargetDir: target,
		SourceURL: srv.URL,
		Branch:    "main",
		Force:     true,
		Backup:    true,
	})

	_, err := in.Run(context.Background())
	if !errors.Is(err, copaerrors.ErrInstall) {
		t.Fatalf("expected ErrInstall, got %v", err)
	}

	// Rollback restored the pre-run tree byte-for-byte.
	assertTreesEqual(t, before, treeDigest(t, target))

	if tempAreas(t) != tempsBefore {
		t.Error("temporary download area should be removed after install failure")
	}
}

func TestRun_DerivesRepositoryURL(t *testing.T) {
	// The install step only sees the derived archive path; serve the
	// bundle only under the expected refs/heads path.
	var gotPath string
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("agents-main/copilot-instructions.md")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("# Instructions\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = rw.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)

	target := t.TempDir()
	in := newInstaller(t, Request{
		TargetDir: target,
		SourceURL: srv.URL + "/example/agents",
		Branch:    "main",
	})

	// The test server is not a known repository host, so the URL is used
	// verbatim; assert that behavior.
	if _, err := in.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if gotPath != "/example/agents" {
		t.Errorf("requested path = %q, want verbatim URL", gotPath)
	}
}
