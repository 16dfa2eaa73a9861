package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAgent(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func TestAgents(t *testing.T) {
	hidden := filepath.Join(t.TempDir(), HiddenDir)
	agentsDir := filepath.Join(hidden, AgentsSubdir)

	writeAgent(t, agentsDir, "reviewer.md", "---\nname: code-reviewer\ndescription: Reviews changes\n---\nbody\n")
	writeAgent(t, agentsDir, "planner.md", "# no frontmatter\n")
	writeAgent(t, agentsDir, "notes.txt", "ignored, not markdown\n")

	agents, err := Agents(hidden)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	// Sorted by name: "code-reviewer" before "planner"
	assert.Equal(t, "code-reviewer", agents[0].Name)
	assert.Equal(t, "Reviews changes", agents[0].Description)
	assert.Equal(t, filepath.Join(AgentsSubdir, "reviewer.md"), agents[0].File)

	assert.Equal(t, "planner", agents[1].Name)
	assert.Empty(t, agents[1].Description)
}

func TestAgents_MissingDir(t *testing.T) {
	agents, err := Agents(filepath.Join(t.TempDir(), HiddenDir))
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestInstalled(t *testing.T) {
	target := t.TempDir()
	assert.False(t, Installed(target))

	// Marker file alone is enough
	require.NoError(t, os.MkdirAll(filepath.Join(target, MarkerDir), 0o755))
	require.NoError(t, os.WriteFile(MarkerPath(target), []byte("x"), 0o644))
	assert.True(t, Installed(target))

	// Hidden dir alone is enough too
	target2 := t.TempDir()
	require.NoError(t, os.MkdirAll(HiddenDirPath(target2), 0o755))
	assert.True(t, Installed(target2))
}
