package testenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/otiai10/copy"
)

// Fixture returns the path of a versions file under testdata/versions.
func Fixture(name string) string {
	return Path("testdata", "versions", name)
}

// TempVersionsDir copies the versions fixtures into the "versions" directory
// of a fresh temp dir and returns the temp dir. Tests can then modify the
// copies freely.
func TempVersionsDir(t testing.TB) string {
	t.Helper()
	fixtureDir := Path("testdata", "versions")
	if info, err := os.Stat(fixtureDir); err != nil {
		panic(err)
	} else if !info.IsDir() {
		panic(fixtureDir + " is not a directory")
	}
	tmpDir := TempDir(t, "")
	die(copy.Copy(fixtureDir, filepath.Join(tmpDir, "versions"), copy.Options{
		OnDirExists: func(src, dest string) copy.DirExistsAction { return copy.Replace },
	}))
	return tmpDir
}
