// Package review classifies docstrings by style and filters functions and
// files by documentation status.
package review

import (
	"fmt"
	"strings"
)

// Style is a docstring convention.
type Style string

const (
	StyleNone   Style = ""
	StyleGoogle Style = "google"
	StyleNumpy  Style = "numpy"
	StyleReST   Style = "rest"
)

// Styles lists the conventions a docstring can be generated in.
var Styles = []Style{StyleGoogle, StyleNumpy, StyleReST}

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case StyleGoogle, StyleNumpy, StyleReST:
		return st, nil
	case "restructuredtext", "sphinx":
		return StyleReST, nil
	default:
		return StyleNone, fmt.Errorf("unknown docstring style %q (want google, numpy or rest)", s)
	}
}

var googleSections = []string{"args:", "returns:", "raises:", "yields:"}

// DetectStyle guesses the convention of doc from its section markers.
// Google wins over NumPy, NumPy over reST. Unrecognized text is StyleNone.
func DetectStyle(doc string) Style {
	if doc == "" {
		return StyleNone
	}
	lower := strings.ToLower(doc)

	for _, marker := range googleSections {
		if strings.Contains(lower, marker) {
			return StyleGoogle
		}
	}

	if strings.Contains(doc, "----") &&
		(strings.Contains(lower, "parameters") || strings.Contains(lower, "returns")) {
		return StyleNumpy
	}

	if strings.Contains(lower, ":param") || strings.Contains(lower, ":return") {
		return StyleReST
	}
	return StyleNone
}
