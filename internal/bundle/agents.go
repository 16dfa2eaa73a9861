package bundle

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/copa/pkg/frontmatter"
)

// Agent describes a single agent definition inside the bundle.
type Agent struct {
	// Name is taken from the file's frontmatter, falling back to the
	// file name without extension.
	Name string `json:"name"`

	// Description is taken from the frontmatter; may be empty.
	Description string `json:"description"`

	// File is the path of the definition relative to the hidden directory.
	File string `json:"file"`
}

// agentMatter is the frontmatter schema of an agent definition file.
type agentMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Agents scans the agents subdirectory of an installed (or extracted)
// hidden directory and returns the agent definitions found, sorted by
// name. A missing agents subdirectory yields an empty slice.
func Agents(hiddenDir string) ([]Agent, error) {
	agentsDir := filepath.Join(hiddenDir, AgentsSubdir)

	entries, err := os.ReadDir(agentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading agents directory")
	}

	var agents []Agent
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		agent := Agent{
			Name: strings.TrimSuffix(entry.Name(), ".md"),
			File: filepath.Join(AgentsSubdir, entry.Name()),
		}

		f, err := os.Open(filepath.Join(agentsDir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "opening agent file %s", entry.Name())
		}

		var matter agentMatter
		parseErr := frontmatter.ParseHeader(f, &matter)
		f.Close()
		if parseErr != nil {
			// A broken frontmatter block should not hide the agent;
			// fall back to the file name.
			agents = append(agents, agent)
			continue
		}

		if matter.Name != "" {
			agent.Name = matter.Name
		}
		agent.Description = matter.Description
		agents = append(agents, agent)
	}

	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}
