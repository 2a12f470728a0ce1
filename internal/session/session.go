// Package session holds the state of one interactive review: the latest
// scan, its coverage, the selected file and pending docstring previews.
package session

import (
	"fmt"
	"sort"
	"sync"

	"doccov/internal/analyzer"
	"doccov/internal/coverage"
)

// Preview is generated docstring text awaiting acceptance.
type Preview struct {
	Function analyzer.FunctionRecord
	Text     string
}

// State is safe for concurrent use. The zero value has no scan.
type State struct {
	mu       sync.RWMutex
	scan     *analyzer.ScanResult
	coverage *coverage.Report
	selected string
	previews map[string]Preview
}

// New returns an empty state.
func New() *State {
	return &State{previews: map[string]Preview{}}
}

// PreviewKey identifies a function within the selected file. Names may
// repeat, so the start line is part of the key.
func PreviewKey(fn analyzer.FunctionRecord) string {
	return fmt.Sprintf("%s:%d", fn.Name, fn.StartLine)
}

// SetScan replaces the scan and its coverage wholesale; nil clears both. The selection is
// kept only if the file is still part of the scan.
func (s *State) SetScan(scan *analyzer.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scan = scan
	s.coverage = nil
	if scan != nil {
		s.coverage = coverage.Compute(scan.Reports)
	}
	if _, ok := findFile(scan, s.selected); !ok {
		s.selected = ""
	}
	s.previews = map[string]Preview{}
}

// Scan returns the current scan, or nil.
func (s *State) Scan() *analyzer.ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scan
}

// Coverage returns the coverage of the current scan, or nil.
func (s *State) Coverage() *coverage.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coverage
}

// Select makes path the selected file and drops previews of the previous
// selection. It fails when path is not part of the current scan.
func (s *State) Select(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := findFile(s.scan, path); !ok {
		return fmt.Errorf("file not found in current scan: %s", path)
	}
	if path != s.selected {
		s.previews = map[string]Preview{}
	}
	s.selected = path
	return nil
}

// Selected returns the selected file report.
func (s *State) Selected() (analyzer.FileReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return analyzer.FileReport{}, false
	}
	return findFile(s.scan, s.selected)
}

// SetPreview stores generated text for a function of the selected file.
func (s *State) SetPreview(fn analyzer.FunctionRecord, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return fmt.Errorf("no file selected")
	}
	if s.previews == nil {
		s.previews = map[string]Preview{}
	}
	s.previews[PreviewKey(fn)] = Preview{Function: fn, Text: text}
	return nil
}

// Preview returns the pending preview for fn.
func (s *State) Preview(fn analyzer.FunctionRecord) (Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.previews[PreviewKey(fn)]
	return p, ok
}

// TakePreview removes and returns the preview for fn, as when it is applied.
func (s *State) TakePreview(fn analyzer.FunctionRecord) (Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := PreviewKey(fn)
	p, ok := s.previews[key]
	delete(s.previews, key)
	return p, ok
}

// Previews returns the pending previews ordered by start line.
func (s *State) Previews() []Preview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Preview, 0, len(s.previews))
	for _, p := range s.previews {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Function.StartLine < out[j].Function.StartLine
	})
	return out
}

func findFile(scan *analyzer.ScanResult, path string) (analyzer.FileReport, bool) {
	if scan == nil || path == "" {
		return analyzer.FileReport{}, false
	}
	for _, r := range scan.Reports {
		if r.Path == path {
			return r, true
		}
	}
	return analyzer.FileReport{}, false
}
