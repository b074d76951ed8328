// Package versions contains the versions file model: the raw records read from
// disk and the validated configuration the rest of envee works with.
package versions

import (
	"fmt"
	"strings"
)

// TagPlaceholder is replaced by a version string when building git tags.
const TagPlaceholder = "{{version}}"

// Env is the name of a deployment environment, such as "prod".
type Env string

// App is the name of an application. It is also the name of its repository.
type App string

// Version is the version of an app deployed to an environment.
type Version string

// Org is the GitHub organization (or user) owning the apps' repositories.
type Org string

// TagTransform is a template that turns a version into a git tag. The zero
// value means versions are used as tags unchanged.
type TagTransform string

func NewEnv(s string) (Env, error) {
	v, err := nonEmpty(s, "env is empty")
	return Env(v), err
}

func NewApp(s string) (App, error) {
	v, err := nonEmpty(s, "app is empty")
	return App(v), err
}

func NewVersion(s string) (Version, error) {
	v, err := nonEmpty(s, "version is empty")
	return Version(v), err
}

func NewOrg(s string) (Org, error) {
	v, err := nonEmpty(s, "github_org is empty")
	return Org(v), err
}

func NewTagTransform(s string) (TagTransform, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.Contains(trimmed, TagPlaceholder) {
		return "", fmt.Errorf("git_tag_transform doesn't include the placeholder %q", TagPlaceholder)
	}
	return TagTransform(trimmed), nil
}

type validationMessage string

func (m validationMessage) Error() string { return string(m) }

func nonEmpty(s, msg string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", validationMessage(msg)
	}
	return trimmed, nil
}

// RawVersions is a versions file as decoded, before any validation.
type RawVersions struct {
	Envs            []string        `toml:"envs" json:"envs"`
	GithubOrg       string          `toml:"github_org" json:"github_org"`
	GitTagTransform *string         `toml:"git_tag_transform" json:"git_tag_transform,omitempty"`
	Versions        []RawAppVersion `toml:"versions" json:"versions"`
}

type RawAppVersion struct {
	App     string `toml:"app" json:"app"`
	Env     string `toml:"env" json:"env"`
	Version string `toml:"version" json:"version"`
}

// AppVersion records that App runs Version in Env.
type AppVersion struct {
	App     App
	Env     Env
	Version Version
}

// Versions is a validated versions file. Envs has at least two entries, each
// of which is referenced by at least one record.
type Versions struct {
	Envs         []Env
	Org          Org
	Versions     []AppVersion
	TagTransform TagTransform
}

// FromRaw validates raw and returns the resulting configuration. Every check
// runs regardless of earlier failures; if any of them fail, the returned error
// is a *ValidationError listing all of them.
func FromRaw(raw RawVersions) (*Versions, error) {
	verr := &ValidationError{}

	seenEnvs := make(map[Env]bool)
	appVersions := make([]AppVersion, 0, len(raw.Versions))
	for i, rv := range raw.Versions {
		av, problems := newAppVersion(rv)
		if len(problems) > 0 {
			verr.addRecord(i, problems)
			continue
		}
		seenEnvs[av.Env] = true
		appVersions = append(appVersions, av)
	}

	if n := len(raw.Envs); n < 2 {
		suffix := "s"
		if n == 1 {
			suffix = ""
		}
		verr.addTopLevel(fmt.Sprintf("envs array has only %d element%s, need at least 2", n, suffix))
	}

	envs := make([]Env, 0, len(raw.Envs))
	for i, s := range raw.Envs {
		env, err := NewEnv(s)
		if err != nil {
			verr.addTopLevel(fmt.Sprintf("envs[%d]: %s", i, err))
			continue
		}
		envs = append(envs, env)
	}
	for _, env := range envs {
		if !seenEnvs[env] {
			verr.addTopLevel(fmt.Sprintf("env %q is not present in any of the versions configured", env))
		}
	}

	org, err := NewOrg(raw.GithubOrg)
	if err != nil {
		verr.addTopLevel(err.Error())
	}

	var transform TagTransform
	if raw.GitTagTransform != nil {
		transform, err = NewTagTransform(*raw.GitTagTransform)
		if err != nil {
			verr.addTopLevel(err.Error())
		}
	}

	if !verr.empty() {
		return nil, verr
	}
	return &Versions{
		Envs:         envs,
		Org:          org,
		Versions:     appVersions,
		TagTransform: transform,
	}, nil
}

func newAppVersion(raw RawAppVersion) (AppVersion, []string) {
	var problems []string
	app, err := NewApp(raw.App)
	if err != nil {
		problems = append(problems, err.Error())
	}
	env, err := NewEnv(raw.Env)
	if err != nil {
		problems = append(problems, err.Error())
	}
	version, err := NewVersion(raw.Version)
	if err != nil {
		problems = append(problems, err.Error())
	}
	return AppVersion{App: app, Env: env, Version: version}, problems
}

// Duplicate is an app/env pair declared more than once.
type Duplicate struct {
	App   App
	Env   Env
	Count int
}

// Duplicates returns the app/env pairs recorded more than once, in order of
// first appearance. Only the last of these records takes effect.
func (v *Versions) Duplicates() []Duplicate {
	type key struct {
		app App
		env Env
	}
	counts := make(map[key]int)
	var order []key
	for _, av := range v.Versions {
		k := key{av.App, av.Env}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	var dups []Duplicate
	for _, k := range order {
		if n := counts[k]; n > 1 {
			dups = append(dups, Duplicate{App: k.app, Env: k.env, Count: n})
		}
	}
	return dups
}

// RecordError holds the problems found in one versions record.
type RecordError struct {
	Index    int
	Problems []string
}

// ValidationError collects every problem found while validating a versions
// file.
type ValidationError struct {
	TopLevel []string
	Records  []RecordError
}

func (e *ValidationError) addTopLevel(msg string) {
	e.TopLevel = append(e.TopLevel, msg)
}

func (e *ValidationError) addRecord(index int, problems []string) {
	e.Records = append(e.Records, RecordError{Index: index, Problems: problems})
}

func (e *ValidationError) empty() bool {
	return len(e.TopLevel) == 0 && len(e.Records) == 0
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("versions config has errors:")
	for _, msg := range e.TopLevel {
		b.WriteString("\n - ")
		b.WriteString(msg)
	}
	for _, rec := range e.Records {
		fmt.Fprintf(&b, "\n - version #%d has errors:", rec.Index)
		for _, msg := range rec.Problems {
			b.WriteString("\n   - ")
			b.WriteString(msg)
		}
	}
	return b.String()
}
