// Package testutil provides fixture loading and golden-file comparison for tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixtureContext holds information about a loaded fixture.
type FixtureContext struct {
	// Name is the fixture directory name under testdata/fixtures
	Name string

	// Root is the absolute path to the fixture directory
	Root string

	// ExpectedDir holds the golden files, outside the fixture tree
	ExpectedDir string
}

// LoadFixture loads a fixture, failing the test when it does not exist.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	root := getTestdataRoot(t)
	fixtureDir := filepath.Join(root, "fixtures", name)
	if _, err := os.Stat(fixtureDir); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", fixtureDir)
	}

	return &FixtureContext{
		Name:        name,
		Root:        fixtureDir,
		ExpectedDir: filepath.Join(root, "golden", name),
	}
}

// ExpectedPath returns the path to a golden file of the fixture.
// The name should not include the .json extension.
func (f *FixtureContext) ExpectedPath(name string) string {
	return filepath.Join(f.ExpectedDir, name+".json")
}

// Path returns the absolute path of a file inside the fixture.
func (f *FixtureContext) Path(rel string) string {
	return filepath.Join(f.Root, filepath.FromSlash(rel))
}

// getTestdataRoot returns the absolute path to testdata/.
func getTestdataRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	root := filepath.Join(projectRoot, "testdata")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		t.Fatalf("testdata not found: %s", root)
	}
	return root
}
