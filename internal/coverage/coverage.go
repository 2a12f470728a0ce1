// Package coverage reduces analyzer reports into documentation coverage figures.
package coverage

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"doccov/internal/analyzer"
)

// Threshold is the aggregate percentage a project must reach to pass.
const Threshold = 80.0

// Percent is a coverage percentage rounded to one decimal place.
// It always serializes with one decimal, e.g. 50.0.
type Percent float64

// MarshalJSON implements json.Marshaler.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Percent) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: p.String()}, nil
}

func (p Percent) String() string {
	return strconv.FormatFloat(float64(p), 'f', 1, 64)
}

// FileCoverage summarizes one file.
type FileCoverage struct {
	Path            string  `json:"file_path" yaml:"file_path"`
	TotalFunctions  int     `json:"total_functions" yaml:"total_functions"`
	DocumentedCount int     `json:"documented_count" yaml:"documented_count"`
	CoveragePercent Percent `json:"coverage_percent" yaml:"coverage_percent"`
}

// Aggregate summarizes every file in a scan.
type Aggregate struct {
	TotalFunctions  int     `json:"total_functions" yaml:"total_functions"`
	DocumentedCount int     `json:"documented_count" yaml:"documented_count"`
	CoveragePercent Percent `json:"coverage_percent" yaml:"coverage_percent"`
	MeetsThreshold  bool    `json:"meets_threshold" yaml:"meets_threshold"`
}

// Report is the coverage of one scan. It is recomputed on every run.
type Report struct {
	Aggregate Aggregate      `json:"aggregate" yaml:"aggregate"`
	Files     []FileCoverage `json:"per_file" yaml:"per_file"`
}

// Compute builds a coverage report. Files keep the order of reports.
func Compute(reports []analyzer.FileReport) *Report {
	out := &Report{Files: make([]FileCoverage, 0, len(reports))}

	for _, r := range reports {
		total := len(r.Functions)
		documented := r.Documented()
		out.Files = append(out.Files, FileCoverage{
			Path:            r.Path,
			TotalFunctions:  total,
			DocumentedCount: documented,
			CoveragePercent: percent(documented, total),
		})
		out.Aggregate.TotalFunctions += total
		out.Aggregate.DocumentedCount += documented
	}

	out.Aggregate.CoveragePercent = percent(out.Aggregate.DocumentedCount, out.Aggregate.TotalFunctions)
	out.Aggregate.MeetsThreshold = float64(out.Aggregate.CoveragePercent) >= Threshold
	return out
}

// percent returns documented/total*100 rounded half-to-even on the binary
// value to one decimal, or 0 when total is 0.
func percent(documented, total int) Percent {
	if total == 0 {
		return 0
	}
	return Percent(Round1(float64(documented) / float64(total) * 100))
}

// Round1 rounds x to one decimal place with round-half-even applied to the
// exact binary value of x.
func Round1(x float64) float64 {
	s := strconv.FormatFloat(x, 'f', 1, 64)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return x
	}
	return v
}

// Field is one key/value pair of a flattened report.
type Field struct {
	Key   string
	Value string
}

// Fields flattens the aggregate section into ordered key/value pairs.
func (r *Report) Fields() []Field {
	a := r.Aggregate
	return []Field{
		{"total_functions", strconv.Itoa(a.TotalFunctions)},
		{"documented_count", strconv.Itoa(a.DocumentedCount)},
		{"coverage_percent", a.CoveragePercent.String()},
		{"meets_threshold", strconv.FormatBool(a.MeetsThreshold)},
		{"files", strconv.Itoa(len(r.Files))},
	}
}

// Undocumented returns the number of functions lacking a docstring.
func (a Aggregate) Undocumented() int {
	return a.TotalFunctions - a.DocumentedCount
}
