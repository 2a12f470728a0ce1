package analyzer

import "runtime"

// ExtractorVersion changes whenever extraction output changes for the same
// source, so that cached reports of an older extractor are not reused.
const ExtractorVersion = 3

// DefaultExclude lists path-segment substrings of directories never walked into.
var DefaultExclude = []string{"venv", "site-packages", "__pycache__", "node_modules"}

// Options tunes a tree scan.
type Options struct {
	// Exclude holds substrings; a directory whose name contains any of them is skipped.
	Exclude []string
	// Workers bounds concurrent file parses. Zero means runtime.NumCPU().
	Workers int
	// MaxFileSizeBytes skips larger files. Zero disables the limit.
	MaxFileSizeBytes int64
	// Cache, when set, serves reports of files unchanged since an earlier scan.
	Cache Cache
}

// Cache stores parse results keyed by file path and content.
// Implementations must be safe for concurrent use.
type Cache interface {
	Lookup(path string, content []byte) (FileReport, bool)
	Store(path string, content []byte, report FileReport)
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	exclude := make([]string, len(DefaultExclude))
	copy(exclude, DefaultExclude)
	return Options{
		Exclude: exclude,
		Workers: runtime.NumCPU(),
	}
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}
