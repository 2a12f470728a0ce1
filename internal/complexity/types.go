// Package complexity computes per-function complexity metrics and a
// maintainability index for Python sources via tree-sitter.
package complexity

// FunctionComplexity contains metrics for a single function or method.
type FunctionComplexity struct {
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Lines     int    `json:"lines"`

	// Cyclomatic is the number of decision points plus one.
	Cyclomatic int `json:"cyclomatic"`
	// Cognitive weights each decision point by its nesting depth.
	Cognitive int `json:"cognitive"`
}

// Rank grades cyclomatic complexity from A (simple) to F (untestable).
func (f FunctionComplexity) Rank() string {
	switch c := f.Cyclomatic; {
	case c <= 5:
		return "A"
	case c <= 10:
		return "B"
	case c <= 20:
		return "C"
	case c <= 30:
		return "D"
	case c <= 40:
		return "E"
	default:
		return "F"
	}
}

// Halstead holds the operator/operand counts behind the maintainability index.
type Halstead struct {
	DistinctOperators int     `json:"distinct_operators"`
	DistinctOperands  int     `json:"distinct_operands"`
	TotalOperators    int     `json:"total_operators"`
	TotalOperands     int     `json:"total_operands"`
	Volume            float64 `json:"volume"`
}

// FileComplexity contains metrics for an entire file.
type FileComplexity struct {
	Path      string               `json:"file_path"`
	Functions []FunctionComplexity `json:"functions"`

	TotalCyclomatic   int     `json:"total_cyclomatic"`
	TotalCognitive    int     `json:"total_cognitive"`
	AverageCyclomatic float64 `json:"average_cyclomatic"`
	MaxCyclomatic     int     `json:"max_cyclomatic"`
	MaxCognitive      int     `json:"max_cognitive"`
	FunctionCount     int     `json:"function_count"`

	// SourceLines counts non-blank lines that are not comment-only.
	SourceLines  int `json:"source_lines"`
	CommentLines int `json:"comment_lines"`

	Halstead Halstead `json:"halstead"`
	// Maintainability is the maintainability index on a 0-100 scale.
	Maintainability float64 `json:"maintainability"`

	Error string `json:"error,omitempty"`
}

// Aggregate computes file totals from the function results.
func (fc *FileComplexity) Aggregate() {
	fc.FunctionCount = len(fc.Functions)
	fc.TotalCyclomatic, fc.TotalCognitive = 0, 0
	fc.MaxCyclomatic, fc.MaxCognitive = 0, 0
	fc.AverageCyclomatic = 0
	if fc.FunctionCount == 0 {
		return
	}

	for _, f := range fc.Functions {
		fc.TotalCyclomatic += f.Cyclomatic
		fc.TotalCognitive += f.Cognitive
		fc.MaxCyclomatic = max(fc.MaxCyclomatic, f.Cyclomatic)
		fc.MaxCognitive = max(fc.MaxCognitive, f.Cognitive)
	}
	fc.AverageCyclomatic = float64(fc.TotalCyclomatic) / float64(fc.FunctionCount)
}
