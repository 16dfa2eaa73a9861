// Package frontmatter provides utilities for parsing YAML frontmatter
// in markdown files.
package frontmatter

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse extracts YAML frontmatter and body content from a reader.
// If no frontmatter is present, it returns the full content as body and
// leaves matter untouched. Agent files may omit frontmatter entirely, so
// a missing block is not an error.
func Parse[T any](r io.Reader, matter *T) (body []byte, err error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// Check for start delimiter
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return content, nil
	}

	// Skip past the opening delimiter line
	startOffset := 3
	if len(content) > 3 && content[3] == '\r' {
		startOffset = 4
	}
	if len(content) > startOffset && content[startOffset] == '\n' {
		startOffset++
	}

	// Search for the closing "---" on a new line
	parts := bytes.SplitN(content[startOffset:], []byte("\n---"), 2)
	if len(parts) < 2 {
		parts = bytes.SplitN(content[startOffset:], []byte("\r\n---"), 2)
	}
	if len(parts) < 2 {
		// No closing delimiter; treat the whole file as body
		return content, nil
	}

	fm := parts[0]
	bodyContent := parts[1]

	// Trim leading newline from body (residue from split)
	if len(bodyContent) > 0 {
		if bodyContent[0] == '\r' {
			bodyContent = bodyContent[1:]
		}
		if len(bodyContent) > 0 && bodyContent[0] == '\n' {
			bodyContent = bodyContent[1:]
		}
	}

	if err := yaml.Unmarshal(fm, matter); err != nil {
		return nil, err
	}

	return bodyContent, nil
}

// ParseHeader parses only the frontmatter from the reader.
// It stops reading after the closing delimiter "---"; the body is not
// consumed or returned. Returns nil if no frontmatter is found (silent
// success, matter remains empty).
func ParseHeader(r io.Reader, matter any) error {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return scanner.Err()
	}
	if strings.TrimSpace(scanner.Text()) != "---" {
		// No frontmatter start delimiter
		return nil
	}

	var buf bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			return yaml.Unmarshal(buf.Bytes(), matter)
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	return scanner.Err()
}
