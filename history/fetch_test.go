package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/jeffrom/envee/diff"
	"github.com/jeffrom/envee/versions"
)

type fakeComparer struct {
	mu    sync.Mutex
	calls []CompareRequest
	delay time.Duration
	fn    func(req CompareRequest) (*Comparison, error)

	inFlight    int64
	maxInFlight int64
}

func (c *fakeComparer) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	n := atomic.AddInt64(&c.inFlight, 1)
	defer atomic.AddInt64(&c.inFlight, -1)
	for {
		highest := atomic.LoadInt64(&c.maxInFlight)
		if n <= highest || atomic.CompareAndSwapInt64(&c.maxInFlight, highest, n) {
			break
		}
	}

	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.fn != nil {
		return c.fn(req)
	}
	return &Comparison{
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s/compare/%s...%s", req.Org, req.Repo, req.Base, req.Head),
		Commits: []Commit{
			{SHA: "2222222222", Message: "newer"},
			{SHA: "1111111111", Message: "older"},
		},
	}, nil
}

func (c *fakeComparer) requests() []CompareRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CompareRequest(nil), c.calls...)
}

type values = map[versions.Env]versions.Version

func outOfSync(app string, vals values) diff.AppResult {
	return diff.AppResult{App: versions.App(app), Values: vals, Status: diff.OutOfSync}
}

func testVersions() *versions.Versions {
	return &versions.Versions{Org: "org", TagTransform: "v{{version}}"}
}

func manyApps(n int) diff.Result {
	res := diff.Result{Envs: []versions.Env{"dev", "prod"}}
	for i := 0; i < n; i++ {
		res.Apps = append(res.Apps, outOfSync(fmt.Sprintf("app-%02d", i), values{"dev": "2.0.0", "prod": "1.0.0"}))
	}
	return res
}

func TestFetchCommitLogs(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	result := diff.Result{
		Envs: []versions.Env{"dev", "staging", "prod"},
		Apps: []diff.AppResult{
			outOfSync("app-a", values{"dev": "1.1.0", "staging": "1.0.0", "prod": "1.0.0"}),
			{App: "app-b", Values: values{"dev": "1.0.0", "prod": "1.0.0"}, Status: diff.InSync},
			outOfSync("app-c", values{"dev": "2.0.0", "staging": "1.0.0"}),
			{App: "app-d", Values: values{"dev": "1.0.0"}, Status: diff.NotApplicable},
		},
	}
	comparer := &fakeComparer{}

	res := NewFetcher(comparer, Opts{}).FetchCommitLogs(context.Background(), result, testVersions())

	if !res.Errors.Empty() {
		t.Fatal("unexpected errors:", res.Errors.Err())
	}

	expectedReqs := []CompareRequest{{Org: "org", Repo: "app-a", Base: "v1.0.0", Head: "v1.1.0"}}
	if diff := cmp.Diff(expectedReqs, comparer.requests()); diff != "" {
		t.Errorf("unexpected requests (-want +got):\n%s", diff)
	}

	expected := []CommitLog{
		{
			App:         "app-a",
			FromEnv:     "prod",
			ToEnv:       "dev",
			FromVersion: "1.0.0",
			ToVersion:   "1.1.0",
			Commits: []Commit{
				{SHA: "1111111111", Message: "older"},
				{SHA: "2222222222", Message: "newer"},
			},
			HTMLURL: "https://github.com/org/app-a/compare/v1.0.0...v1.1.0",
		},
	}
	if diff := cmp.Diff(expected, res.Logs); diff != "" {
		t.Errorf("unexpected logs (-want +got):\n%s", diff)
	}
}

func TestFetchCommitLogsNothingOutOfSync(t *testing.T) {
	result := diff.Result{
		Envs: []versions.Env{"dev", "prod"},
		Apps: []diff.AppResult{{App: "a", Values: values{"dev": "1", "prod": "1"}, Status: diff.InSync}},
	}
	comparer := &fakeComparer{}
	res := NewFetcher(comparer, Opts{}).FetchCommitLogs(context.Background(), result, testVersions())
	if len(res.Logs) != 0 || !res.Errors.Empty() {
		t.Errorf("expected empty results, got %+v", res)
	}
	if len(comparer.requests()) != 0 {
		t.Errorf("expected no requests, got %d", len(comparer.requests()))
	}
}

func TestFetchCommitLogsIsolatesFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	comparer := &fakeComparer{
		delay: 10 * time.Millisecond,
		fn: func(req CompareRequest) (*Comparison, error) {
			if req.Repo == "app-01" {
				return nil, errors.New("404 Not Found")
			}
			return &Comparison{HTMLURL: "https://example.com/" + req.Repo}, nil
		},
	}

	res := NewFetcher(comparer, Opts{}).FetchCommitLogs(context.Background(), manyApps(3), testVersions())

	if len(res.Logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(res.Logs))
	}
	if res.Logs[0].App != "app-00" || res.Logs[1].App != "app-02" {
		t.Errorf("unexpected logs: %s, %s", res.Logs[0].App, res.Logs[1].App)
	}
	appErrs := res.Errors.AppErrors()
	if len(appErrs) != 1 || appErrs[0].App != "app-01" {
		t.Fatalf("expected one app error for app-01, got %v", res.Errors.Err())
	}
	if len(res.Errors.SystemErrors()) != 0 {
		t.Errorf("expected no system errors, got %v", res.Errors.SystemErrors())
	}
}

func TestFetchCommitLogsRecoversCrashes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	comparer := &fakeComparer{
		fn: func(req CompareRequest) (*Comparison, error) {
			if req.Repo == "app-00" {
				panic("boom")
			}
			return &Comparison{}, nil
		},
	}

	res := NewFetcher(comparer, Opts{MaxConcurrent: 1}).FetchCommitLogs(context.Background(), manyApps(3), testVersions())

	if len(res.Logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(res.Logs))
	}
	sysErrs := res.Errors.SystemErrors()
	if len(sysErrs) != 1 {
		t.Fatalf("expected 1 system error, got %v", res.Errors.Err())
	}
	if msg := sysErrs[0].Error(); !strings.Contains(msg, "app-00 crashed: boom") {
		t.Errorf("unexpected system error %q", msg)
	}
	if len(res.Errors.AppErrors()) != 0 {
		t.Errorf("expected no app errors, got %v", res.Errors.AppErrors())
	}
}

func TestFetchCommitLogsCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	comparer := &fakeComparer{}
	res := NewFetcher(comparer, Opts{MaxConcurrent: 2}).FetchCommitLogs(ctx, manyApps(4), testVersions())

	if len(res.Logs) != 0 {
		t.Errorf("expected no logs, got %d", len(res.Logs))
	}
	if n := len(res.Errors.SystemErrors()); n != 4 {
		t.Fatalf("expected 4 system errors, got %d: %v", n, res.Errors.Err())
	}
	for _, err := range res.Errors.SystemErrors() {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	}
	if len(comparer.requests()) != 0 {
		t.Errorf("expected no requests, got %d", len(comparer.requests()))
	}
}

func TestFetchCommitLogsRequestTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	comparer := &fakeComparer{delay: time.Second}
	res := NewFetcher(comparer, Opts{RequestTimeout: 10 * time.Millisecond}).FetchCommitLogs(context.Background(), manyApps(2), testVersions())

	appErrs := res.Errors.AppErrors()
	if len(appErrs) != 2 {
		t.Fatalf("expected 2 app errors, got %v", res.Errors.Err())
	}
	for _, err := range appErrs {
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	}
}

func TestFetchCommitLogsBoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	comparer := &fakeComparer{delay: 20 * time.Millisecond}
	res := NewFetcher(comparer, Opts{MaxConcurrent: 2}).FetchCommitLogs(context.Background(), manyApps(5), testVersions())

	if len(res.Logs) != 5 {
		t.Fatalf("expected 5 logs, got %d (%v)", len(res.Logs), res.Errors.Err())
	}
	if highest := atomic.LoadInt64(&comparer.maxInFlight); highest > 2 || highest < 1 {
		t.Errorf("expected at most 2 comparisons in flight, saw %d", highest)
	}
}

func TestFetchCommitLogsSortsLogs(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	comparer := &fakeComparer{
		fn: func(req CompareRequest) (*Comparison, error) {
			// finish in roughly reverse order
			var n int
			fmt.Sscanf(req.Repo, "app-%d", &n)
			time.Sleep(time.Duration(20-n) * time.Millisecond)
			if n%4 == 0 {
				return nil, fmt.Errorf("failed %d", n)
			}
			return &Comparison{}, nil
		},
	}

	res := NewFetcher(comparer, Opts{}).FetchCommitLogs(context.Background(), manyApps(20), testVersions())

	for i := 1; i < len(res.Logs); i++ {
		if res.Logs[i-1].App >= res.Logs[i].App {
			t.Fatalf("logs not sorted at %d: %s >= %s", i, res.Logs[i-1].App, res.Logs[i].App)
		}
	}
	appErrs := res.Errors.AppErrors()
	for i := 1; i < len(appErrs); i++ {
		if appErrs[i-1].App >= appErrs[i].App {
			t.Fatalf("app errors not sorted at %d", i)
		}
	}
	if len(res.Logs)+len(appErrs) != 20 {
		t.Errorf("expected 20 outcomes, got %d", len(res.Logs)+len(appErrs))
	}
}

func TestFetchErrors(t *testing.T) {
	var errs FetchErrors
	if errs.Err() != nil {
		t.Fatal("expected nil error when empty")
	}

	errs.Add(&SystemError{Err: errors.New("fetch for app-z crashed: boom")})
	errs.Add(&AppError{App: "app-b", Err: errors.New("500 Internal Server Error")})
	errs.Add(&AppError{App: "app-a", Err: errors.New("404 Not Found")})
	errs.sort()

	expected := `couldn't fetch commit logs (3 error(s)):
 - app-a: 404 Not Found
 - app-b: 500 Internal Server Error
 - system: fetch for app-z crashed: boom`
	if diff := cmp.Diff(expected, errs.Err().Error()); diff != "" {
		t.Errorf("unexpected rendering (-want +got):\n%s", diff)
	}

	var appErr *AppError
	if !errors.As(errs.Err(), &appErr) || appErr.App != "app-a" {
		t.Errorf("expected to find app-a's error, got %v", appErr)
	}
}

func TestCommit(t *testing.T) {
	c := Commit{SHA: "abc1234567890", Message: "first line\r\n\nbody"}
	if c.ShortSHA() != "abc1234" {
		t.Errorf("unexpected short sha %q", c.ShortSHA())
	}
	if c.Subject() != "first line" {
		t.Errorf("unexpected subject %q", c.Subject())
	}
	if (Commit{SHA: "abc"}).ShortSHA() != "abc" {
		t.Error("expected short hashes to be kept as is")
	}
}
