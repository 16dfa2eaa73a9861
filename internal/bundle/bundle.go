// Package bundle describes the agents bundle layout and handles fetching
// it from a remote repository.
//
// A bundle is the pair of artifacts the installer manages: the marker
// file .github/copilot-instructions.md and the hidden .copilot/ directory
// holding the agent definitions.
package bundle

import (
	"os"
	"path/filepath"
)

// Fixed names inside the bundle and the target tree.
const (
	// MarkerDir is the directory under the target that holds the marker file.
	MarkerDir = ".github"

	// MarkerFile is the file whose presence signals an existing installation.
	MarkerFile = "copilot-instructions.md"

	// HiddenDir is the hidden directory copied wholesale from the bundle.
	HiddenDir = ".copilot"

	// AgentsSubdir is the subdirectory of HiddenDir holding agent definitions.
	AgentsSubdir = "agents"

	// ReadmeName is the optional readme copied into HiddenDir on install.
	ReadmeName = "README.md"
)

// MarkerPath returns the marker file path under the target directory.
func MarkerPath(targetDir string) string {
	return filepath.Join(targetDir, MarkerDir, MarkerFile)
}

// HiddenDirPath returns the hidden bundle directory under the target directory.
func HiddenDirPath(targetDir string) string {
	return filepath.Join(targetDir, HiddenDir)
}

// Installed reports whether a bundle is present under targetDir, judged by
// the marker file or the hidden directory existing.
func Installed(targetDir string) bool {
	if _, err := os.Stat(MarkerPath(targetDir)); err == nil {
		return true
	}
	if _, err := os.Stat(HiddenDirPath(targetDir)); err == nil {
		return true
	}
	return false
}
