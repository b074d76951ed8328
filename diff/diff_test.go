package diff

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jeffrom/envee/versions"
)

type values = map[versions.Env]versions.Version

func av(app, env, version string) versions.AppVersion {
	return versions.AppVersion{App: versions.App(app), Env: versions.Env(env), Version: versions.Version(version)}
}

func TestCompute(t *testing.T) {
	envs := []versions.Env{"dev", "prod"}
	records := []versions.AppVersion{
		av("app1", "dev", "1.0.0"),
		av("app1", "prod", "1.0.0"),
		av("app2", "dev", "2.0.0"),
		av("app2", "prod", "1.9.0"),
		av("app3", "dev", "0.1.0"),
	}

	expected := Result{
		Envs: envs,
		Apps: []AppResult{
			{App: "app1", Values: values{"dev": "1.0.0", "prod": "1.0.0"}, Status: InSync},
			{App: "app2", Values: values{"dev": "2.0.0", "prod": "1.9.0"}, Status: OutOfSync},
			{App: "app3", Values: values{"dev": "0.1.0"}, Status: NotApplicable},
		},
	}
	if diff := cmp.Diff(expected, Compute(envs, records)); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestComputeIgnoresUnlistedEnvs(t *testing.T) {
	envs := []versions.Env{"dev", "prod"}
	records := []versions.AppVersion{
		av("app1", "dev", "1.0.0"),
		av("app1", "prod", "1.0.0"),
		av("app1", "staging", "0.9.0"),
		av("only-staging", "staging", "3.0.0"),
		av("app2", "dev", "2.0.0"),
		av("app2", "qa", "1.0.0"),
	}

	expected := Result{
		Envs: envs,
		Apps: []AppResult{
			{App: "app1", Values: values{"dev": "1.0.0", "prod": "1.0.0"}, Status: InSync},
			{App: "app2", Values: values{"dev": "2.0.0"}, Status: NotApplicable},
		},
	}
	if diff := cmp.Diff(expected, Compute(envs, records)); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestComputeThreeEnvs(t *testing.T) {
	envs := []versions.Env{"dev", "staging", "prod"}
	records := []versions.AppVersion{
		av("partial-drift", "dev", "2.0.0"),
		av("partial-drift", "staging", "1.0.0"),
		av("partial-drift", "prod", "1.0.0"),
		av("two-of-three", "dev", "1.0.0"),
		av("two-of-three", "prod", "1.0.0"),
		av("single-env-app", "staging", "2.0.0"),
	}

	res := Compute(envs, records)
	got := make(map[versions.App]SyncStatus)
	for _, row := range res.Apps {
		got[row.App] = row.Status
	}
	expected := map[versions.App]SyncStatus{
		"partial-drift":  OutOfSync,
		"two-of-three":   InSync,
		"single-env-app": NotApplicable,
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("unexpected statuses (-want +got):\n%s", diff)
	}
}

func TestComputeLastRecordWins(t *testing.T) {
	envs := []versions.Env{"dev", "prod"}
	records := []versions.AppVersion{
		av("app", "dev", "1.0.0"),
		av("app", "prod", "2.0.0"),
		av("app", "dev", "2.0.0"),
	}

	res := Compute(envs, records)
	if len(res.Apps) != 1 {
		t.Fatalf("expected 1 app, got %d", len(res.Apps))
	}
	if res.Apps[0].Status != InSync {
		t.Errorf("expected later record to win and app to be in sync, got %s", res.Apps[0].Status)
	}
	if v := res.Apps[0].Values["dev"]; v != "2.0.0" {
		t.Errorf("expected dev version 2.0.0, got %s", v)
	}
}

func TestComputeSortsByApp(t *testing.T) {
	envs := []versions.Env{"dev", "prod"}
	var records []versions.AppVersion
	for i := 0; i < 50; i++ {
		app := fmt.Sprintf("app-%02d", i)
		records = append(records, av(app, "dev", "1"), av(app, "prod", fmt.Sprint(i%3)))
	}

	rnd := rand.New(rand.NewSource(1))
	for round := 0; round < 5; round++ {
		rnd.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
		res := Compute(envs, records)
		if len(res.Apps) != 50 {
			t.Fatalf("expected 50 apps, got %d", len(res.Apps))
		}
		for i, row := range res.Apps {
			if want := versions.App(fmt.Sprintf("app-%02d", i)); row.App != want {
				t.Fatalf("round %d: expected row %d to be %s, got %s", round, i, want, row.App)
			}
		}
	}
}

func TestOutOfSync(t *testing.T) {
	res := Result{
		Apps: []AppResult{
			{App: "a", Status: InSync},
			{App: "b", Status: OutOfSync},
			{App: "c", Status: NotApplicable},
			{App: "d", Status: OutOfSync},
		},
	}
	var apps []versions.App
	for _, row := range res.OutOfSync() {
		apps = append(apps, row.App)
	}
	if diff := cmp.Diff([]versions.App{"b", "d"}, apps); diff != "" {
		t.Errorf("unexpected apps (-want +got):\n%s", diff)
	}
}

func TestSyncStatusString(t *testing.T) {
	tcs := map[SyncStatus]string{
		InSync:        "in-sync",
		OutOfSync:     "out-of-sync",
		NotApplicable: "not-applicable",
	}
	for st, expected := range tcs {
		if st.String() != expected {
			t.Errorf("expected %q, got %q", expected, st.String())
		}
	}
}
