// Package insert splices generated docstrings into Python source.
package insert

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"doccov/internal/analyzer"
	"doccov/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Insertion pairs a function with the docstring text to give it.
type Insertion struct {
	Function  analyzer.FunctionRecord
	Docstring string
}

// Clean strips surrounding triple quotes, removes common indentation and
// trims blank space, so model output and rendered text look alike.
func Clean(text string) string {
	s := strings.TrimRight(text, " \t\r\n")
	for _, q := range []string{`"""`, `'''`} {
		s = strings.TrimSuffix(s, q)
		if lead := strings.TrimLeft(s, " \t\r\n"); strings.HasPrefix(lead, q) {
			s = lead[len(q):]
		}
	}
	return strings.TrimSpace(dedent(s))
}

// dedent removes the longest common leading whitespace of non-blank lines.
// Whitespace-only lines become empty.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	var margin string
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			margin = indent
			first = false
			continue
		}
		margin = commonPrefix(margin, indent)
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// Format renders text as a triple-quoted block whose lines start with pad.
// Blank lines carry no indentation.
func Format(text, pad string) []string {
	out := []string{pad + `"""`}
	for _, line := range strings.Split(Clean(text), "\n") {
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		out = append(out, pad+line)
	}
	return append(out, pad+`"""`)
}

// bodyPad is the indentation of fn's body, or one level of four spaces
// past the def when the record does not carry it.
func bodyPad(fn analyzer.FunctionRecord) string {
	if fn.BodyIndent != "" {
		return fn.BodyIndent
	}
	return strings.Repeat(" ", fn.Indent+4)
}

// Apply inserts one docstring. See ApplyAll.
func Apply(source []byte, fn analyzer.FunctionRecord, docstring string) ([]byte, error) {
	return ApplyAll(source, []Insertion{{Function: fn, Docstring: docstring}})
}

// ApplyAll splices docstrings into source and returns the new text. Each
// docstring goes right after its def header; an existing docstring is
// replaced. Functions whose body shares the header line cannot be edited,
// and a function whose def no longer sits at its recorded position means the
// source changed since the scan. Either aborts the whole edit.
func ApplyAll(source []byte, edits []Insertion) ([]byte, error) {
	bom := bytes.HasPrefix(source, utf8BOM)
	source = bytes.TrimPrefix(source, utf8BOM)

	eol := "\n"
	switch {
	case bytes.Contains(source, []byte("\r\n")):
		eol = "\r\n"
	case bytes.ContainsRune(source, '\r') && !bytes.ContainsRune(source, '\n'):
		eol = "\r"
	}
	text := strings.ReplaceAll(string(source), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	trailing := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	sorted := make([]Insertion, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Function.HeaderEndLine > sorted[j].Function.HeaderEndLine
	})

	for _, e := range sorted {
		fn := e.Function
		if err := check(lines, fn); err != nil {
			return nil, err
		}

		block := Format(e.Docstring, bodyPad(fn))
		from, to := fn.HeaderEndLine, fn.HeaderEndLine
		if replaceable(lines, fn) {
			from, to = fn.BodyLine-1, fn.DocEndLine
		}

		next := make([]string, 0, len(lines)+len(block))
		next = append(next, lines[:from]...)
		next = append(next, block...)
		next = append(next, lines[to:]...)
		lines = next
	}

	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	if eol != "\n" {
		out = strings.ReplaceAll(out, "\n", eol)
	}
	if bom {
		out = string(utf8BOM) + out
	}
	return []byte(out), nil
}

func check(lines []string, fn analyzer.FunctionRecord) error {
	if fn.IsOneLiner() {
		return errors.New(errors.InsertionFailed,
			fmt.Sprintf("%s at line %d has its body on the header line", fn.Name, fn.StartLine), nil)
	}
	if fn.StartLine < 1 || fn.HeaderEndLine < fn.StartLine || fn.HeaderEndLine > len(lines) {
		return errors.New(errors.InsertionFailed,
			fmt.Sprintf("%s: line %d is outside the file", fn.Name, fn.HeaderEndLine), nil)
	}
	line := lines[fn.StartLine-1]
	if fn.Indent > len(line) {
		return stale(fn)
	}
	head := strings.TrimSpace(line[fn.Indent:])
	head = strings.TrimSpace(strings.TrimPrefix(head, "async"))
	rest, ok := strings.CutPrefix(head, "def")
	rest = strings.TrimSpace(rest)
	if !ok || !strings.HasPrefix(rest, fn.Name) {
		return stale(fn)
	}
	if after := rest[len(fn.Name):]; after != "" && !strings.ContainsAny(after[:1], "( [\\") {
		return stale(fn)
	}
	return nil
}

func stale(fn analyzer.FunctionRecord) error {
	return errors.New(errors.InsertionFailed,
		fmt.Sprintf("%s is no longer defined at line %d; rescan and retry", fn.Name, fn.StartLine), nil)
}

// replaceable reports whether the existing docstring occupies whole lines of
// its own, so that it can be swapped without touching other statements.
func replaceable(lines []string, fn analyzer.FunctionRecord) bool {
	if !fn.HasDoc || fn.DocEndLine < fn.BodyLine || fn.BodyLine <= fn.HeaderEndLine || fn.DocEndLine > len(lines) {
		return false
	}
	last := strings.TrimSpace(lines[fn.DocEndLine-1])
	return strings.HasSuffix(last, `"`) || strings.HasSuffix(last, `'`)
}

// Diff returns a unified diff between two versions of a file.
func Diff(before, after []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "Original",
		ToFile:   "Proposed",
		Context:  3,
	})
}

// Edit is a pending change to one file.
type Edit struct {
	Path   string
	Before []byte
	After  []byte
}

// Plan reads path and computes the result of applying edits to it.
func Plan(path string, edits []Insertion) (*Edit, error) {
	before, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.UnreadableFile, "cannot read "+path, err)
	}
	after, err := ApplyAll(before, edits)
	if err != nil {
		return nil, err
	}
	return &Edit{Path: path, Before: before, After: after}, nil
}

// Diff returns the unified diff of the edit.
func (e *Edit) Diff() (string, error) {
	return Diff(e.Before, e.After)
}

// Write saves the edited text, keeping the file mode. It refuses to
// overwrite a file changed since Plan read it.
func (e *Edit) Write() error {
	current, err := os.ReadFile(e.Path)
	if err != nil {
		return errors.New(errors.InsertionFailed, "cannot read "+e.Path, err)
	}
	if !bytes.Equal(current, e.Before) {
		return errors.New(errors.InsertionFailed, e.Path+" changed since the edit was planned", nil)
	}
	info, err := os.Stat(e.Path)
	if err != nil {
		return errors.New(errors.InsertionFailed, "cannot stat "+e.Path, err)
	}
	if err := os.WriteFile(e.Path, e.After, info.Mode().Perm()); err != nil {
		return errors.New(errors.InsertionFailed, "cannot write "+e.Path, err)
	}
	return nil
}
