// Package paths resolves doccov's on-disk locations and normalizes repo paths.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DataDirName is the per-project directory holding config, history and logs.
	DataDirName = ".doccov"
	// DatabaseName is the history database file inside DataDirName.
	DatabaseName = "doccov.db"
	// LogFileName is the default log file inside the logs directory.
	LogFileName = "doccov.log"
)

// DataDir returns <root>/.doccov.
func DataDir(repoRoot string) string {
	return filepath.Join(repoRoot, DataDirName)
}

// DatabasePath returns <root>/.doccov/doccov.db.
func DatabasePath(repoRoot string) string {
	return filepath.Join(DataDir(repoRoot), DatabaseName)
}

// LogsDir returns <root>/.doccov/logs.
func LogsDir(repoRoot string) string {
	return filepath.Join(DataDir(repoRoot), "logs")
}

// LogPath returns the default log file path.
func LogPath(repoRoot string) string {
	return filepath.Join(LogsDir(repoRoot), LogFileName)
}

// EnsureDataDir creates <root>/.doccov if needed and returns it.
func EnsureDataDir(repoRoot string) (string, error) {
	dir := DataDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureLogsDir creates <root>/.doccov/logs if needed and returns it.
func EnsureLogsDir(repoRoot string) (string, error) {
	dir := LogsDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// FindRepoRoot walks up from start looking for a project marker
// (.doccov, pyproject.toml, .git). It returns start when none is found.
func FindRepoRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for dir := abs; ; {
		for _, marker := range []string{DataDirName, "pyproject.toml", ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}

// CanonicalizePath converts a path to a repo-relative path with forward
// slashes. Symlinks are resolved when the target exists.
func CanonicalizePath(path string, repoRoot string) (string, error) {
	resolved, err := resolve(path)
	if err != nil {
		return "", err
	}
	rootResolved, err := resolve(repoRoot)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}
