package review

import (
	"strings"

	"doccov/internal/analyzer"
)

// Status selects functions or files by completeness.
type Status string

const (
	StatusAll      Status = "All"
	StatusNeedsFix Status = "Needs Fix"
	StatusOK       Status = "OK"
)

// ParseStatus accepts the display names and their lowercase, dashed forms.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAll, true
	case "needs fix", "needs-fix", "needsfix", "fix":
		return StatusNeedsFix, true
	case "ok":
		return StatusOK, true
	}
	return "", false
}

// placeholderMarker flags generated text that still needs a human.
const placeholderMarker = "DESCRIPTION"

// minDocLength is the shortest docstring that can be complete.
const minDocLength = 10

// IsComplete reports whether fn carries a real docstring in style.
func IsComplete(fn analyzer.FunctionRecord, style Style) bool {
	if !fn.HasDoc {
		return false
	}
	doc := fn.Doc()
	if len(strings.TrimSpace(doc)) < minDocLength || strings.Contains(doc, placeholderMarker) {
		return false
	}
	return DetectStyle(doc) == style
}

// NeedsAttention reports whether any function of the file is incomplete.
func NeedsAttention(report analyzer.FileReport, style Style) bool {
	for _, fn := range report.Functions {
		if !IsComplete(fn, style) {
			return true
		}
	}
	return false
}

// Filter returns the functions whose name contains search (case-insensitive,
// surrounding space ignored) and whose completeness matches status. Order is
// preserved and the input is not modified.
func Filter(fns []analyzer.FunctionRecord, search string, status Status, style Style) []analyzer.FunctionRecord {
	term := strings.ToLower(strings.TrimSpace(search))
	out := []analyzer.FunctionRecord{}
	for _, fn := range fns {
		if term != "" && !strings.Contains(strings.ToLower(fn.Name), term) {
			continue
		}
		if !matches(IsComplete(fn, style), status) {
			continue
		}
		out = append(out, fn)
	}
	return out
}

// FilterFiles keeps the files whose overall state matches status. A file is
// OK only if every function in it is complete.
func FilterFiles(reports []analyzer.FileReport, status Status, style Style) []analyzer.FileReport {
	out := []analyzer.FileReport{}
	for _, r := range reports {
		if matches(!NeedsAttention(r, style), status) {
			out = append(out, r)
		}
	}
	return out
}

func matches(complete bool, status Status) bool {
	switch status {
	case StatusNeedsFix:
		return !complete
	case StatusOK:
		return complete
	default:
		return true
	}
}

// Summary counts files, functions and documented functions.
type Summary struct {
	Files      int `json:"files"`
	Functions  int `json:"functions"`
	Documented int `json:"documented"`
}

// Stats summarizes a scan. Documented counts has_doc, regardless of style.
func Stats(reports []analyzer.FileReport) Summary {
	s := Summary{Files: len(reports)}
	for _, r := range reports {
		s.Functions += len(r.Functions)
		s.Documented += r.Documented()
	}
	return s
}
