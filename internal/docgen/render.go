package docgen

import (
	"fmt"
	"sort"
	"strings"

	"doccov/internal/analyzer"
	"doccov/internal/review"
)

type param struct {
	name, typ, desc string
}

// Render formats c as docstring text in style, without surrounding quotes
// or indentation. Arguments follow the declaration order of fn; described
// names fn does not declare are dropped. A leading self or cls is omitted.
func Render(c Content, fn analyzer.FunctionRecord, style review.Style) string {
	params := parameters(c, fn)
	raises := sortedPairs(c.Raises)
	var rtype string
	if fn.ReturnAnnotation != nil && *fn.ReturnAnnotation != analyzer.UnknownAnnotation {
		rtype = *fn.ReturnAnnotation
	}

	var sections []string
	summary := strings.TrimSpace(c.Summary)
	if summary == "" {
		summary = "Summary of " + fn.Name + "."
	}
	sections = append(sections, summary)

	switch style {
	case review.StyleNumpy:
		sections = append(sections, numpySections(params, c.Returns, rtype, raises)...)
	case review.StyleReST:
		if body := restFields(params, c.Returns, rtype, raises); body != "" {
			sections = append(sections, body)
		}
	default:
		sections = append(sections, googleSections(params, c.Returns, rtype, raises)...)
	}
	return strings.Join(sections, "\n\n")
}

func googleSections(params []param, returns, rtype string, raises [][2]string) []string {
	var out []string
	if len(params) > 0 {
		lines := []string{"Args:"}
		for _, p := range params {
			name := p.name
			if p.typ != "" {
				name += " (" + p.typ + ")"
			}
			lines = append(lines, fmt.Sprintf("    %s: %s", name, p.desc))
		}
		out = append(out, strings.Join(lines, "\n"))
	}
	if returns = strings.TrimSpace(returns); returns != "" {
		if rtype != "" {
			returns = rtype + ": " + returns
		}
		out = append(out, "Returns:\n    "+returns)
	}
	if len(raises) > 0 {
		lines := []string{"Raises:"}
		for _, r := range raises {
			lines = append(lines, fmt.Sprintf("    %s: %s", r[0], r[1]))
		}
		out = append(out, strings.Join(lines, "\n"))
	}
	return out
}

func numpySections(params []param, returns, rtype string, raises [][2]string) []string {
	var out []string
	if len(params) > 0 {
		lines := []string{"Parameters", "----------"}
		for _, p := range params {
			head := p.name
			if p.typ != "" {
				head += " : " + p.typ
			}
			lines = append(lines, head, "    "+p.desc)
		}
		out = append(out, strings.Join(lines, "\n"))
	}
	if returns = strings.TrimSpace(returns); returns != "" {
		head := rtype
		if head == "" {
			head = "object"
		}
		out = append(out, strings.Join([]string{"Returns", "-------", head, "    " + returns}, "\n"))
	}
	if len(raises) > 0 {
		lines := []string{"Raises", "------"}
		for _, r := range raises {
			lines = append(lines, r[0], "    "+r[1])
		}
		out = append(out, strings.Join(lines, "\n"))
	}
	return out
}

func restFields(params []param, returns, rtype string, raises [][2]string) string {
	var lines []string
	for _, p := range params {
		lines = append(lines, fmt.Sprintf(":param %s: %s", p.name, p.desc))
		if p.typ != "" {
			lines = append(lines, fmt.Sprintf(":type %s: %s", p.name, p.typ))
		}
	}
	if returns = strings.TrimSpace(returns); returns != "" {
		lines = append(lines, ":return: "+returns)
		if rtype != "" {
			lines = append(lines, ":rtype: "+rtype)
		}
	}
	for _, r := range raises {
		lines = append(lines, fmt.Sprintf(":raises %s: %s", r[0], r[1]))
	}
	return strings.Join(lines, "\n")
}

func parameters(c Content, fn analyzer.FunctionRecord) []param {
	var out []param
	for i, a := range fn.Arguments {
		if i == 0 && (a.Name == "self" || a.Name == "cls") {
			continue
		}
		desc := strings.TrimSpace(c.Args[a.Name])
		if desc == "" {
			desc = "Description needed"
		}
		var typ string
		if a.TypeAnnotation != nil && *a.TypeAnnotation != analyzer.UnknownAnnotation {
			typ = *a.TypeAnnotation
		}
		out = append(out, param{name: a.Name, typ: typ, desc: desc})
	}
	return out
}

func sortedPairs(m map[string]string) [][2]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, strings.TrimSpace(m[k])}
	}
	return out
}
