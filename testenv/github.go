package testenv

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// FixtureCommit is a commit served by GitHubServer.
type FixtureCommit struct {
	SHA     string
	Message string
	Author  string
	Date    time.Time
	HTMLURL string
}

// Comparison is the body served for one compare request. Commits are served
// in the order given, which for GitHub is newest first.
type Comparison struct {
	HTMLURL string
	Commits []FixtureCommit
}

// RecordedRequest holds the parts of a compare request tests care about.
type RecordedRequest struct {
	Path          string
	Authorization string
	APIVersion    string
}

// GitHubServer is a fake of the GitHub compare endpoint
// (GET /repos/{owner}/{repo}/compare/{base}...{head}). It counts requests in
// flight so tests can assert on concurrency.
type GitHubServer struct {
	*httptest.Server

	// Delay is how long every request is held before responding.
	Delay time.Duration

	mu          sync.Mutex
	comparisons map[string]Comparison
	failures    map[string]int
	requests    []RecordedRequest

	inFlight    int64
	maxInFlight int64
}

// NewGitHubServer starts a fake GitHub server which is closed when the test
// finishes.
func NewGitHubServer(t testing.TB) *GitHubServer {
	t.Helper()
	s := &GitHubServer{
		comparisons: make(map[string]Comparison),
		failures:    make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

func compareKey(owner, repo, base, head string) string {
	return fmt.Sprintf("%s/%s/%s...%s", owner, repo, base, head)
}

// AddComparison registers the response for a compare request.
func (s *GitHubServer) AddComparison(owner, repo, base, head string, c Comparison) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparisons[compareKey(owner, repo, base, head)] = c
}

// FailComparison makes a compare request respond with status.
func (s *GitHubServer) FailComparison(owner, repo, base, head string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[compareKey(owner, repo, base, head)] = status
}

// MaxInFlight returns the highest number of requests handled at once.
func (s *GitHubServer) MaxInFlight() int64 { return atomic.LoadInt64(&s.maxInFlight) }

// Requests returns the compare requests received so far.
func (s *GitHubServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

func (s *GitHubServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	n := atomic.AddInt64(&s.inFlight, 1)
	defer atomic.AddInt64(&s.inFlight, -1)
	for {
		highest := atomic.LoadInt64(&s.maxInFlight)
		if n <= highest || atomic.CompareAndSwapInt64(&s.maxInFlight, highest, n) {
			break
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		APIVersion:    r.Header.Get("X-GitHub-Api-Version"),
	})
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-r.Context().Done():
			return
		}
	}

	// repos/{owner}/{repo}/compare/{base}...{head}
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 4)
	if r.Method != http.MethodGet || len(parts) != 4 || parts[0] != "repos" || !strings.HasPrefix(parts[3], "compare/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	basehead := strings.TrimPrefix(parts[3], "compare/")
	base, head, ok := strings.Cut(basehead, "...")
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	key := compareKey(parts[1], parts[2], base, head)

	s.mu.Lock()
	status, failed := s.failures[key]
	c, found := s.comparisons[key]
	s.mu.Unlock()

	switch {
	case failed:
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
	case !found:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	default:
		writeJSON(w, http.StatusOK, comparisonBody(c))
	}
}

func comparisonBody(c Comparison) map[string]interface{} {
	commits := make([]map[string]interface{}, len(c.Commits))
	for i, fc := range c.Commits {
		commits[i] = map[string]interface{}{
			"sha":      fc.SHA,
			"html_url": fc.HTMLURL,
			"commit": map[string]interface{}{
				"message": fc.Message,
				"author": map[string]interface{}{
					"name": fc.Author,
					"date": fc.Date.UTC().Format(time.RFC3339),
				},
			},
		}
	}
	return map[string]interface{}{
		"html_url": c.HTMLURL,
		"commits":  commits,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
