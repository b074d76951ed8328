// Package diff classifies apps by whether their versions agree across
// environments.
package diff

import (
	"sort"

	"github.com/jeffrom/envee/versions"
)

type SyncStatus int

const (
	// NotApplicable means the app has a version in only one of the
	// considered envs, so there is nothing to compare it against.
	NotApplicable SyncStatus = iota
	InSync
	OutOfSync
)

func (s SyncStatus) String() string {
	switch s {
	case InSync:
		return "in-sync"
	case OutOfSync:
		return "out-of-sync"
	default:
		return "not-applicable"
	}
}

// AppResult is the classification of one app. Values holds the app's version
// for each considered env it has a record in.
type AppResult struct {
	App    versions.App
	Values map[versions.Env]versions.Version
	Status SyncStatus
}

// Result is the classification of every app, sorted by app name.
type Result struct {
	Envs []versions.Env
	Apps []AppResult
}

// OutOfSync returns the apps whose versions disagree.
func (r Result) OutOfSync() []AppResult {
	var res []AppResult
	for _, row := range r.Apps {
		if row.Status == OutOfSync {
			res = append(res, row)
		}
	}
	return res
}

// Compute groups records by app and classifies each app across envs. Only
// envs in the envs list are considered; apps with no record in any of them
// are left out. When an app/env pair is recorded more than once, the last
// record wins.
func Compute(envs []versions.Env, records []versions.AppVersion) Result {
	byApp := make(map[versions.App]map[versions.Env]versions.Version)
	for _, rec := range records {
		m, ok := byApp[rec.App]
		if !ok {
			m = make(map[versions.Env]versions.Version)
			byApp[rec.App] = m
		}
		m[rec.Env] = rec.Version
	}

	rows := make([]AppResult, 0, len(byApp))
	for app, all := range byApp {
		values := make(map[versions.Env]versions.Version)
		distinct := make(map[versions.Version]struct{})
		for _, env := range envs {
			v, ok := all[env]
			if !ok {
				continue
			}
			values[env] = v
			distinct[v] = struct{}{}
		}
		if len(values) == 0 {
			continue
		}

		rows = append(rows, AppResult{
			App:    app,
			Values: values,
			Status: classify(len(values), len(distinct)),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].App < rows[j].App })

	return Result{Envs: envs, Apps: rows}
}

func classify(numValues, numDistinct int) SyncStatus {
	switch {
	case numValues == 1:
		return NotApplicable
	case numDistinct == 1:
		return InSync
	default:
		return OutOfSync
	}
}
