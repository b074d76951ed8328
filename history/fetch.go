package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/semaphore"

	"github.com/jeffrom/envee/diff"
	"github.com/jeffrom/envee/stdio"
	"github.com/jeffrom/envee/versions"
)

const (
	DefaultMaxConcurrent  = 20
	DefaultRequestTimeout = 30 * time.Second
)

type Opts struct {
	// MaxConcurrent is the most comparisons in flight at once.
	MaxConcurrent int

	// RequestTimeout bounds each comparison. Zero means no limit beyond the
	// context passed to FetchCommitLogs.
	RequestTimeout time.Duration
}

func (o Opts) withDefaults() Opts {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	return o
}

// Fetcher fetches the commit logs of out of sync apps concurrently.
type Fetcher struct {
	comparer Comparer
	opts     Opts
}

func NewFetcher(comparer Comparer, opts Opts) *Fetcher {
	return &Fetcher{comparer: comparer, opts: opts.withDefaults()}
}

// FetchCommitLogs fetches commit logs from GitHub, authenticating with token.
func FetchCommitLogs(ctx context.Context, result diff.Result, vs *versions.Versions, token string, opts Opts, ghOpts GitHubOpts) (*Results, error) {
	comparer, err := NewGitHubComparer(token, ghOpts)
	if err != nil {
		return nil, err
	}
	return NewFetcher(comparer, opts).FetchCommitLogs(ctx, result, vs), nil
}

// fetchParams is everything one fetch needs. Each fetch owns its copy.
type fetchParams struct {
	org          versions.Org
	app          versions.App
	fromEnv      versions.Env
	toEnv        versions.Env
	fromVersion  versions.Version
	toVersion    versions.Version
	tagTransform versions.TagTransform
}

type fetchOutcome struct {
	log *CommitLog
	err FetchError
}

// FetchCommitLogs fetches the commit log of every out of sync app in result.
// Logs compare the last env in result.Envs against the first. Apps missing a
// version in either of those envs are skipped. A failed fetch never stops
// the others; failures are reported in the returned Results.
func (f *Fetcher) FetchCommitLogs(ctx context.Context, result diff.Result, vs *versions.Versions) *Results {
	o := stdio.FromContext(ctx).AppendScope("history")
	params := f.plan(result, vs)
	res := &Results{}
	if len(params) == 0 {
		return res
	}

	o.Debug("fetching commit logs", "apps", len(params), "concurrency", f.opts.MaxConcurrent)
	sem := semaphore.NewWeighted(int64(f.opts.MaxConcurrent))
	out := make(chan fetchOutcome, len(params))
	var wg sync.WaitGroup

	for _, p := range params {
		wg.Add(1)
		go f.run(ctx, sem, p, out, &wg)
	}

	wg.Wait()
	close(out)

	for outcome := range out {
		if outcome.err != nil {
			res.Errors.Add(outcome.err)
			continue
		}
		res.Logs = append(res.Logs, *outcome.log)
	}

	sort.Slice(res.Logs, func(i, j int) bool { return res.Logs[i].App < res.Logs[j].App })
	res.Errors.sort()
	o.Debug("fetched commit logs", "logs", len(res.Logs), "errors", res.Errors.Len())
	return res
}

func (f *Fetcher) plan(result diff.Result, vs *versions.Versions) []fetchParams {
	if len(result.Envs) == 0 {
		return nil
	}
	fromEnv := result.Envs[len(result.Envs)-1]
	toEnv := result.Envs[0]

	var params []fetchParams
	for _, row := range result.OutOfSync() {
		fromVersion, ok := row.Values[fromEnv]
		if !ok {
			continue
		}
		toVersion, ok := row.Values[toEnv]
		if !ok {
			continue
		}
		params = append(params, fetchParams{
			org:          vs.Org,
			app:          row.App,
			fromEnv:      fromEnv,
			toEnv:        toEnv,
			fromVersion:  fromVersion,
			toVersion:    toVersion,
			tagTransform: vs.TagTransform,
		})
	}
	return params
}

func (f *Fetcher) run(ctx context.Context, sem *semaphore.Weighted, p fetchParams, out chan<- fetchOutcome, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			out <- fetchOutcome{err: &SystemError{Err: fmt.Errorf("fetch for %s crashed: %v", p.app, r)}}
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		out <- fetchOutcome{err: &SystemError{Err: errors.Wrapf(err, "couldn't acquire fetch slot for %s", p.app)}}
		return
	}
	defer sem.Release(1)

	log, err := f.fetchCommitLog(ctx, p)
	if err != nil {
		out <- fetchOutcome{err: &AppError{App: p.app, Err: err}}
		return
	}
	out <- fetchOutcome{log: log}
}

func (f *Fetcher) fetchCommitLog(ctx context.Context, p fetchParams) (*CommitLog, error) {
	if f.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.RequestTimeout)
		defer cancel()
	}

	req := CompareRequest{
		Org:  string(p.org),
		Repo: string(p.app),
		Base: versions.BuildTag(p.tagTransform, p.fromVersion),
		Head: versions.BuildTag(p.tagTransform, p.toVersion),
	}
	stdio.FromContext(ctx).WithScope("history").Debug("comparing", "app", p.app, "base", req.Base, "head", req.Head)

	cmp, err := f.comparer.Compare(ctx, req)
	if err != nil {
		return nil, err
	}

	commits := make([]Commit, len(cmp.Commits))
	for i, c := range cmp.Commits {
		commits[len(commits)-1-i] = c
	}

	return &CommitLog{
		App:         p.app,
		FromEnv:     p.fromEnv,
		ToEnv:       p.toEnv,
		FromVersion: p.fromVersion,
		ToVersion:   p.toVersion,
		Commits:     commits,
		HTMLURL:     cmp.HTMLURL,
	}, nil
}
