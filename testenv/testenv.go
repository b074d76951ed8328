// Package testenv contains testing helpers for fixtures, temp files and a fake
// GitHub API.
package testenv

import "testing"

func die(err error) {
	if err != nil {
		panic(err)
	}
}

func logError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Logf("testenv: unhandled error: %+v", err)
	}
}
