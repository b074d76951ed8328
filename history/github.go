package history

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/go-github/v59/github"
)

const (
	DefaultGitHubAPIURL = "https://api.github.com"
	userAgent           = "envee"
)

// CompareRequest identifies the commits between two tags of a repository.
type CompareRequest struct {
	Org  string
	Repo string
	Base string
	Head string
}

// Comparison is a remote comparison. Commits are in the order the remote
// returned them, newest first.
type Comparison struct {
	Commits []Commit
	HTMLURL string
}

// Comparer compares two tags of a repository.
type Comparer interface {
	Compare(ctx context.Context, req CompareRequest) (*Comparison, error)
}

type GitHubOpts struct {
	// BaseURL is the API root, https://api.github.com by default.
	BaseURL string

	// HTTPClient is used for requests, http.DefaultClient by default.
	HTTPClient *http.Client
}

// GitHubComparer compares tags using the GitHub REST API.
type GitHubComparer struct {
	client *github.Client
}

// NewGitHubComparer returns a comparer authenticating every request with
// token as a bearer credential.
func NewGitHubComparer(token string, opts GitHubOpts) (*GitHubComparer, error) {
	client := github.NewClient(opts.HTTPClient).WithAuthToken(token)
	client.UserAgent = userAgent

	if opts.BaseURL != "" && opts.BaseURL != DefaultGitHubAPIURL {
		raw := opts.BaseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid GitHub API URL %q", opts.BaseURL)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.Newf("invalid GitHub API URL %q", opts.BaseURL)
		}
		client.BaseURL = u
	}
	return &GitHubComparer{client: client}, nil
}

func (c *GitHubComparer) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	cmp, _, err := c.client.Repositories.CompareCommits(ctx, req.Org, req.Repo, req.Base, req.Head, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't compare %s...%s", req.Base, req.Head)
	}

	res := &Comparison{
		Commits: make([]Commit, 0, len(cmp.Commits)),
		HTMLURL: cmp.GetHTMLURL(),
	}
	for _, rc := range cmp.Commits {
		if rc == nil {
			continue
		}
		commit := Commit{
			SHA:     rc.GetSHA(),
			HTMLURL: rc.GetHTMLURL(),
		}
		if detail := rc.GetCommit(); detail != nil {
			commit.Message = detail.GetMessage()
			if author := detail.GetAuthor(); author != nil {
				commit.AuthorName = author.GetName()
				if author.Date != nil {
					commit.AuthorDate = author.Date.Time
				}
			}
		}
		res.Commits = append(res.Commits, commit)
	}
	return res, nil
}
