package bundle

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrBadRepoURL indicates a repository URL without an owner/repo path.
var ErrBadRepoURL = errors.New("repository URL must end in owner/repo")

// repoHosts are hosts whose URLs are treated as repository pages rather
// than direct archive downloads.
var repoHosts = []string{"github.com"}

// IsRepoURL reports whether raw points at a repository page on a known
// host, as opposed to a direct archive download.
func IsRepoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range repoHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ArchiveURL resolves a source location to the URL of a zip archive.
//
// A repository URL has its last two path segments taken as owner and
// repo, yielding the branch archive download:
//
//	https://github.com/owner/repo -> https://github.com/owner/repo/archive/refs/heads/<branch>.zip
//
// Any other URL is returned verbatim and assumed to be a direct download.
func ArchiveURL(source, branch string) (string, error) {
	if !IsRepoURL(source) {
		return source, nil
	}

	u, err := url.Parse(source)
	if err != nil {
		return "", errors.Wrap(err, "parsing source URL")
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", errors.WithDetail(ErrBadRepoURL, source)
	}

	owner := segments[len(segments)-2]
	repo := strings.TrimSuffix(segments[len(segments)-1], ".git")

	return fmt.Sprintf("https://%s/%s/%s/archive/refs/heads/%s.zip",
		u.Hostname(), owner, repo, branch), nil
}
