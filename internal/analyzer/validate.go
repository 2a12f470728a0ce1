//go:build cgo

package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// violation is a construct the tree-sitter grammar accepts but Python 3
// rejects.
type violation struct {
	line    int
	message string
}

// checkGrammar walks the tree for Python 2 statements, bad parameter lists
// and unparenthesized walrus statements. It returns the first one found.
func checkGrammar(root *sitter.Node) *violation {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if v := checkNode(n); v != nil {
			return v
		}
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if child := n.NamedChild(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return nil
}

func checkNode(n *sitter.Node) *violation {
	switch n.Type() {
	case "print_statement":
		return at(n, "missing parentheses in call to 'print'")
	case "exec_statement":
		return at(n, "missing parentheses in call to 'exec'")
	case "expression_statement":
		if n.NamedChildCount() > 0 {
			if child := n.NamedChild(0); child != nil && child.Type() == "named_expression" {
				return at(n, "unparenthesized assignment expression")
			}
		}
	case "parameters", "lambda_parameters":
		return checkParameters(n)
	}
	return nil
}

// checkParameters enforces that defaults are not followed by plain
// positional parameters and that a bare * is followed by a named parameter.
func checkParameters(params *sitter.Node) *violation {
	sawDefault := false
	starred := false
	bareStar := false

	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p == nil || p.Type() == "comment" {
			continue
		}
		switch p.Type() {
		case "default_parameter", "typed_default_parameter":
			sawDefault = true
			bareStar = false
		case "identifier", "tuple_pattern":
			if sawDefault && !starred {
				return at(p, "parameter without a default follows parameter with a default")
			}
			bareStar = false
		case "typed_parameter":
			if inner := p.NamedChild(0); inner != nil {
				switch inner.Type() {
				case "list_splat_pattern":
					starred = true
					continue
				case "dictionary_splat_pattern":
					if bareStar {
						return at(p, "named arguments must follow bare *")
					}
					continue
				}
			}
			if sawDefault && !starred {
				return at(p, "parameter without a default follows parameter with a default")
			}
			bareStar = false
		case "keyword_separator":
			starred = true
			bareStar = true
		case "list_splat_pattern":
			starred = true
			bareStar = firstNonComment(p) == nil
		case "dictionary_splat_pattern":
			if bareStar {
				return at(p, "named arguments must follow bare *")
			}
		}
	}
	if bareStar {
		return at(params, "named arguments must follow bare *")
	}
	return nil
}

func at(n *sitter.Node, message string) *violation {
	return &violation{line: int(n.StartPoint().Row) + 1, message: message}
}
