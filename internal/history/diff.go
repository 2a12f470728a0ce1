package history

import (
	"sort"

	"doccov/internal/coverage"
	"doccov/internal/storage"
)

// ChangeKind classifies how a file differs between two runs.
type ChangeKind string

const (
	Added     ChangeKind = "added"
	Removed   ChangeKind = "removed"
	Changed   ChangeKind = "changed"
)

// FileChange compares one file across two runs.
type FileChange struct {
	Path   string     `json:"file_path"`
	Kind   ChangeKind `json:"kind"`
	Before float64    `json:"before_percent"`
	After  float64    `json:"after_percent"`
}

// RunDiff compares two runs of the same root.
type RunDiff struct {
	From          string       `json:"from"`
	To            string       `json:"to"`
	CoverageDelta float64      `json:"coverage_delta"`
	FunctionDelta int          `json:"function_delta"`
	Files         []FileChange `json:"files"`
}

// Compare reports what changed from older to newer. Files are keyed by path;
// a file whose content hash and counts both match is unchanged and omitted.
func Compare(older, newer *storage.Run) *RunDiff {
	d := &RunDiff{
		From:          older.ID,
		To:            newer.ID,
		CoverageDelta: coverage.Round1(newer.CoveragePercent - older.CoveragePercent),
		FunctionDelta: newer.TotalFunctions - older.TotalFunctions,
		Files:         []FileChange{},
	}

	before := make(map[string]storage.RunFile, len(older.Files))
	for _, f := range older.Files {
		before[f.Path] = f
	}

	seen := make(map[string]bool, len(newer.Files))
	for _, f := range newer.Files {
		seen[f.Path] = true
		old, ok := before[f.Path]
		switch {
		case !ok:
			d.Files = append(d.Files, FileChange{Path: f.Path, Kind: Added, After: f.CoveragePercent})
		case old.ContentHash != f.ContentHash || old.DocumentedCount != f.DocumentedCount || old.TotalFunctions != f.TotalFunctions:
			d.Files = append(d.Files, FileChange{Path: f.Path, Kind: Changed, Before: old.CoveragePercent, After: f.CoveragePercent})
		}
	}
	for _, f := range older.Files {
		if !seen[f.Path] {
			d.Files = append(d.Files, FileChange{Path: f.Path, Kind: Removed, Before: f.CoveragePercent})
		}
	}

	sort.SliceStable(d.Files, func(i, j int) bool { return d.Files[i].Path < d.Files[j].Path })
	return d
}
