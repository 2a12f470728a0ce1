//go:build cgo

package complexity

import (
	"context"
	"fmt"
	"os"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// decisionTypes contribute one to cyclomatic complexity each.
var decisionTypes = map[string]bool{
	"if_statement":             true,
	"elif_clause":              true,
	"for_statement":            true,
	"while_statement":          true,
	"except_clause":            true,
	"with_statement":           true,
	"boolean_operator":         true, // and, or
	"conditional_expression":   true, // x if c else y
	"list_comprehension":       true,
	"dictionary_comprehension": true,
	"set_comprehension":        true,
	"generator_expression":     true,
	"case_clause":              true,
}

// nestingTypes increase nesting depth for cognitive complexity.
var nestingTypes = map[string]bool{
	"if_statement":             true,
	"for_statement":            true,
	"while_statement":          true,
	"try_statement":            true,
	"with_statement":           true,
	"match_statement":          true,
	"lambda":                   true,
	"list_comprehension":       true,
	"dictionary_comprehension": true,
	"set_comprehension":        true,
	"generator_expression":     true,
}

// operatorNodes are the expressions whose tokens feed the Halstead counts.
var operatorNodes = map[string]bool{
	"binary_operator":      true,
	"boolean_operator":     true,
	"comparison_operator":  true,
	"not_operator":         true,
	"unary_operator":       true,
	"augmented_assignment": true,
}

// Analyzer computes complexity metrics for Python sources.
// It is safe for concurrent use.
type Analyzer struct {
	parsers sync.Pool
}

// NewAnalyzer creates a new complexity analyzer.
func NewAnalyzer() *Analyzer {
	a := &Analyzer{}
	a.parsers.New = func() any {
		p := sitter.NewParser()
		p.SetLanguage(python.GetLanguage())
		return p
	}
	return a
}

// AnalyzeFile reads and analyzes one file. Read and parse failures are
// reported in FileComplexity.Error, not as an error.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileComplexity, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return &FileComplexity{
			Path:      path,
			Functions: []FunctionComplexity{},
			Error:     "failed to read file: " + err.Error(),
		}, nil
	}
	return a.AnalyzeSource(ctx, path, source)
}

// AnalyzeSource analyzes source code and returns complexity metrics.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte) (*FileComplexity, error) {
	fc := &FileComplexity{
		Path:      path,
		Functions: []FunctionComplexity{},
	}

	p := a.parsers.Get().(*sitter.Parser)
	defer a.parsers.Put(p)

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fc.Error = fmt.Sprintf("parse error: %v", err)
		return fc, nil
	}
	root := tree.RootNode()
	if root.HasError() {
		fc.Error = "syntax error"
		return fc, nil
	}

	for _, fn := range findNodes(root, "function_definition") {
		fc.Functions = append(fc.Functions, analyzeFunction(fn, source))
	}
	fc.Aggregate()

	fc.SourceLines, fc.CommentLines = countLines(source)
	fc.Halstead = halstead(root, source)
	fc.Maintainability = MaintainabilityIndex(
		fc.Halstead.Volume,
		fc.TotalCyclomatic,
		fc.SourceLines,
		commentPercent(fc.SourceLines, fc.CommentLines),
	)
	return fc, nil
}

func analyzeFunction(node *sitter.Node, source []byte) FunctionComplexity {
	name := "<unknown>"
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Content(source)
	}
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	body := node.ChildByFieldName("body")
	return FunctionComplexity{
		Name:       name,
		StartLine:  startLine,
		EndLine:    endLine,
		Lines:      endLine - startLine + 1,
		Cyclomatic: 1 + countDecisions(body),
		Cognitive:  cognitive(body, 0),
	}
}

// countDecisions counts decision points below node without descending into
// nested function definitions, which are measured on their own.
func countDecisions(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if decisionTypes[node.Type()] {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || child.Type() == "function_definition" {
			continue
		}
		count += countDecisions(child)
	}
	return count
}

func cognitive(node *sitter.Node, nesting int) int {
	if node == nil {
		return 0
	}
	score := 0
	if decisionTypes[node.Type()] {
		score += 1 + nesting
	}
	childNesting := nesting
	if nestingTypes[node.Type()] {
		childNesting++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || child.Type() == "function_definition" {
			continue
		}
		score += cognitive(child, childNesting)
	}
	return score
}

// halstead counts operators and operands of arithmetic, boolean,
// comparison and augmented-assignment expressions.
func halstead(root *sitter.Node, source []byte) Halstead {
	operators := map[string]int{}
	operands := map[string]int{}

	for _, expr := range findNodes(root, keys(operatorNodes)...) {
		for i := 0; i < int(expr.ChildCount()); i++ {
			child := expr.Child(i)
			if child == nil {
				continue
			}
			if child.IsNamed() {
				operands[child.Content(source)]++
			} else {
				operators[child.Type()]++
			}
		}
	}

	h := Halstead{
		DistinctOperators: len(operators),
		DistinctOperands:  len(operands),
	}
	for _, n := range operators {
		h.TotalOperators += n
	}
	for _, n := range operands {
		h.TotalOperands += n
	}
	h.Volume = h.volume()
	return h
}

// findNodes returns every node of the given types in depth-first order.
func findNodes(root *sitter.Node, types ...string) []*sitter.Node {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	var result []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if want[node.Type()] {
			result = append(result, node)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(root)
	return result
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// IsAvailable returns whether complexity analysis is available.
// Returns true when CGO is enabled.
func IsAvailable() bool {
	return true
}
