//go:build cgo

package analyzer

import (
	"bytes"
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"doccov/internal/errors"
)

// transparentNodes have no counterpart in Python's own AST. The walk expands
// them in place so discovery order follows ast.walk's breadth-first order.
var transparentNodes = map[string]bool{
	"block":                true,
	"decorated_definition": true,
	"else_clause":          true,
	"finally_clause":       true,
}

// spacedOperators get a space on both sides when annotations are rendered.
var spacedOperators = map[string]bool{
	"|":   true,
	"&":   true,
	"==":  true,
	"!=":  true,
	"and": true,
	"or":  true,
}

func (a *Analyzer) initParsers() {
	a.parsers.New = func() any {
		p := sitter.NewParser()
		p.SetLanguage(python.GetLanguage())
		return p
	}
}

// ParseSource extracts function records from source text. Invalid syntax is
// reported as an UNPARSABLE_SOURCE error.
func (a *Analyzer) ParseSource(ctx context.Context, source []byte) ([]FunctionRecord, error) {
	source = normalizeNewlines(source)

	p := a.parsers.Get().(*sitter.Parser)
	defer a.parsers.Put(p)

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.New(errors.UnparsableSource, "parse error", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, errors.Newf(errors.UnparsableSource, "syntax error at line %d", firstErrorLine(root))
	}
	if v := checkGrammar(root); v != nil {
		return nil, errors.Newf(errors.UnparsableSource, "syntax error at line %d: %s", v.line, v.message)
	}

	return extractFunctions(root, source), nil
}

// normalizeNewlines turns lone carriage returns into line feeds. Python
// treats a bare \r as a line break; tree-sitter does not. The replacement
// keeps every byte offset, so line and column positions stay valid.
func normalizeNewlines(source []byte) []byte {
	if !bytes.ContainsRune(source, '\r') {
		return source
	}
	out := make([]byte, len(source))
	copy(out, source)
	for i, c := range out {
		if c == '\r' && (i+1 >= len(out) || out[i+1] != '\n') {
			out[i] = '\n'
		}
	}
	return out
}

// IsAvailable returns whether source analysis is available.
// Returns true when CGO is enabled.
func IsAvailable() bool {
	return true
}

type pending struct {
	node      *sitter.Node
	enclosing string
	// orelse holds the elif and else clauses that follow node in its
	// if_statement. Python nests each of them inside the previous one.
	orelse []*sitter.Node
}

// extractFunctions walks the tree breadth-first and records every
// function_definition it meets, at any depth.
func extractFunctions(root *sitter.Node, source []byte) []FunctionRecord {
	records := []FunctionRecord{}

	queue := []pending{{node: root}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		enclosing := item.enclosing
		switch item.node.Type() {
		case "function_definition":
			records = append(records, buildRecord(item.node, source, enclosing))
			enclosing = nodeText(item.node.ChildByFieldName("name"), source)
		case "class_definition":
			enclosing = nodeText(item.node.ChildByFieldName("name"), source)
		}
		queue = appendChildren(queue, item.node, enclosing)
		queue = appendOrElse(queue, item.orelse, enclosing)
	}
	return records
}

func appendChildren(queue []pending, node *sitter.Node, enclosing string) []pending {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if child.Type() == "elif_clause" {
			return append(queue, pending{node: child, enclosing: enclosing, orelse: alternatives(node, i+1)})
		}
		if transparentNodes[child.Type()] {
			queue = appendChildren(queue, child, enclosing)
			continue
		}
		queue = append(queue, pending{node: child, enclosing: enclosing})
	}
	return queue
}

// appendOrElse queues the clause that follows an elif. Another elif becomes
// a nested node; a final else contributes its statements at this level.
func appendOrElse(queue []pending, orelse []*sitter.Node, enclosing string) []pending {
	if len(orelse) == 0 {
		return queue
	}
	next := orelse[0]
	if next.Type() == "elif_clause" {
		return append(queue, pending{node: next, enclosing: enclosing, orelse: orelse[1:]})
	}
	return appendChildren(queue, next, enclosing)
}

// alternatives returns the elif and else clauses of an if_statement from
// child index start on.
func alternatives(ifStmt *sitter.Node, start int) []*sitter.Node {
	var out []*sitter.Node
	for i := start; i < int(ifStmt.NamedChildCount()); i++ {
		child := ifStmt.NamedChild(i)
		if child != nil && (child.Type() == "elif_clause" || child.Type() == "else_clause") {
			out = append(out, child)
		}
	}
	return out
}

func buildRecord(node *sitter.Node, source []byte, enclosing string) FunctionRecord {
	start := node.StartPoint()
	rec := FunctionRecord{
		Name:          nodeText(node.ChildByFieldName("name"), source),
		Arguments:     extractArguments(node.ChildByFieldName("parameters"), source),
		StartLine:     int(start.Row) + 1,
		Indent:        int(start.Column),
		IsAsync:       node.ChildCount() > 0 && node.Child(0).Type() == "async",
		EnclosingName: enclosing,
	}
	if parent := node.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		rec.Decorated = true
	}

	if rt := node.ChildByFieldName("return_type"); rt != nil {
		ann := renderAnnotation(rt, source)
		rec.ReturnAnnotation = &ann
	}

	body := node.ChildByFieldName("body")
	rec.HeaderEndLine = headerEndLine(node, body)
	rec.BodyLine = rec.HeaderEndLine
	if body != nil {
		rec.BodyLine = int(body.StartPoint().Row) + 1
		first := firstStatement(body)
		if first != nil {
			rec.BodyLine = int(first.StartPoint().Row) + 1
			if rec.BodyLine > rec.HeaderEndLine {
				rec.BodyIndent = lineIndent(first, source)
			}
		}
		if doc, ok := docstring(first, source); ok {
			rec.HasDoc = true
			rec.DocText = &doc
			rec.DocEndLine = int(first.EndPoint().Row) + 1
		}
	}
	return rec
}

// lineIndent returns the whitespace between the start of node's line and
// node, or "" when anything else precedes it on the line.
func lineIndent(node *sitter.Node, source []byte) string {
	end := node.StartByte()
	prefix := string(source[end-node.StartPoint().Column : end])
	if strings.Trim(prefix, " \t\f") != "" {
		return ""
	}
	return prefix
}

// headerEndLine returns the line of the colon closing the def header.
func headerEndLine(node, body *sitter.Node) int {
	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || child.Type() != ":" {
			continue
		}
		if body != nil && child.StartByte() >= body.StartByte() {
			break
		}
		line = int(child.StartPoint().Row) + 1
	}
	return line
}

// firstStatement returns the first statement of a block; comments are not statements.
func firstStatement(block *sitter.Node) *sitter.Node {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		child := block.NamedChild(i)
		if child != nil && child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// docstring reports the cleaned docstring when stmt is a bare str literal
// expression, matching what Python attaches as __doc__.
func docstring(stmt *sitter.Node, source []byte) (string, bool) {
	if stmt == nil || stmt.Type() != "expression_statement" || stmt.ChildCount() != 1 {
		return "", false
	}
	expr := stmt.Child(0)
	for expr != nil && expr.Type() == "parenthesized_expression" {
		expr = firstNonComment(expr)
	}
	if expr == nil {
		return "", false
	}

	var value string
	switch expr.Type() {
	case "string":
		v, ok := evalStringLiteral(nodeText(expr, source))
		if !ok {
			return "", false
		}
		value = v
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(expr.NamedChildCount()); i++ {
			part := expr.NamedChild(i)
			if part == nil || part.Type() != "string" {
				continue
			}
			v, ok := evalStringLiteral(nodeText(part, source))
			if !ok {
				return "", false
			}
			b.WriteString(v)
		}
		value = b.String()
	default:
		return "", false
	}
	return cleanDoc(value), true
}

func firstNonComment(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// extractArguments lists parameters in declaration order. Separators (* and /)
// only change the kind of neighbouring parameters.
func extractArguments(params *sitter.Node, source []byte) []Argument {
	args := []Argument{}
	if params == nil {
		return args
	}

	keywordOnly := false
	plain := func() ArgumentKind {
		if keywordOnly {
			return ArgKeywordOnly
		}
		return ArgPositional
	}

	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Type() {
		case "identifier", "tuple_pattern":
			args = append(args, Argument{Name: nodeText(p, source), Kind: plain()})

		case "default_parameter":
			args = append(args, Argument{Name: nodeText(p.ChildByFieldName("name"), source), Kind: plain()})

		case "typed_default_parameter":
			arg := Argument{Name: nodeText(p.ChildByFieldName("name"), source), Kind: plain()}
			ann := renderAnnotation(p.ChildByFieldName("type"), source)
			arg.TypeAnnotation = &ann
			args = append(args, arg)

		case "typed_parameter":
			arg := Argument{Kind: plain()}
			if inner := p.NamedChild(0); inner != nil {
				switch inner.Type() {
				case "list_splat_pattern":
					arg.Name = splatName(inner, source)
					arg.Kind = ArgVarPositional
					keywordOnly = true
				case "dictionary_splat_pattern":
					arg.Name = splatName(inner, source)
					arg.Kind = ArgVarKeyword
				default:
					arg.Name = nodeText(inner, source)
				}
			}
			ann := renderAnnotation(p.ChildByFieldName("type"), source)
			arg.TypeAnnotation = &ann
			args = append(args, arg)

		case "list_splat_pattern":
			keywordOnly = true
			if name := splatName(p, source); name != "" {
				args = append(args, Argument{Name: name, Kind: ArgVarPositional})
			}

		case "dictionary_splat_pattern":
			args = append(args, Argument{Name: splatName(p, source), Kind: ArgVarKeyword})

		case "keyword_separator":
			keywordOnly = true

		case "positional_separator":
			for j := range args {
				if args[j].Kind == ArgPositional {
					args[j].Kind = ArgPositionalOnly
				}
			}
		}
	}
	return args
}

// splatName returns the identifier after * or **, or "" for a bare *.
func splatName(node *sitter.Node, source []byte) string {
	if inner := firstNonComment(node); inner != nil {
		return nodeText(inner, source)
	}
	return ""
}

// renderAnnotation renders an annotation from its tokens with normalized
// spacing. Anything that cannot be rendered becomes UnknownAnnotation.
func renderAnnotation(node *sitter.Node, source []byte) string {
	if node == nil || node.IsMissing() || node.HasError() {
		return UnknownAnnotation
	}

	var tokens []string
	collectTokens(node, source, &tokens)
	text := joinTokens(tokens)
	if strings.TrimSpace(text) == "" {
		return UnknownAnnotation
	}
	return text
}

func collectTokens(node *sitter.Node, source []byte, tokens *[]string) {
	switch {
	case node.Type() == "comment":
		return
	case node.Type() == "string" || node.ChildCount() == 0:
		if text := nodeText(node, source); text != "" {
			*tokens = append(*tokens, text)
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			collectTokens(child, source, tokens)
		}
	}
}

func joinTokens(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			prev := tokens[i-1]
			switch {
			case tok == "," || tok == ")" || tok == "]" || tok == "}":
			case prev == "(" || prev == "[" || prev == "{":
			case prev == ",":
				b.WriteByte(' ')
			case spacedOperators[tok] || spacedOperators[prev]:
				b.WriteByte(' ')
			case isWordByte(prev[len(prev)-1]) && isWordByte(tok[0]):
				b.WriteByte(' ')
			}
		}
		b.WriteString(tok)
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// firstErrorLine returns the 1-based line of the first ERROR or MISSING node.
func firstErrorLine(root *sitter.Node) int {
	var walk func(*sitter.Node) int
	walk = func(n *sitter.Node) int {
		if n.Type() == "ERROR" || n.IsMissing() {
			return int(n.StartPoint().Row) + 1
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child != nil && child.HasError() {
				if line := walk(child); line > 0 {
					return line
				}
			}
		}
		return 0
	}
	if line := walk(root); line > 0 {
		return line
	}
	return int(root.StartPoint().Row) + 1
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}
