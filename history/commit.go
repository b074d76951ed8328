// Package history fetches the commits between the versions of apps that are
// out of sync.
package history

import (
	"strings"
	"time"

	"github.com/jeffrom/envee/versions"
)

type Commit struct {
	SHA        string
	Message    string
	AuthorName string
	AuthorDate time.Time
	HTMLURL    string
}

// ShortSHA returns the first 7 characters of the commit hash.
func (c Commit) ShortSHA() string {
	if len(c.SHA) <= 7 {
		return c.SHA
	}
	return c.SHA[:7]
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimRight(subject, "\r")
}

// CommitLog is the list of commits taking App from FromVersion, deployed in
// FromEnv, to ToVersion, deployed in ToEnv. Commits are oldest first.
type CommitLog struct {
	App         versions.App
	FromEnv     versions.Env
	ToEnv       versions.Env
	FromVersion versions.Version
	ToVersion   versions.Version
	Commits     []Commit
	HTMLURL     string
}

// Results are the outcome of a batch of commit log fetches. Logs are sorted
// by app.
type Results struct {
	Logs   []CommitLog
	Errors FetchErrors
}
