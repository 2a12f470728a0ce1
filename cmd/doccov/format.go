package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"doccov/internal/analyzer"
	"doccov/internal/coverage"
	"doccov/internal/history"
	"doccov/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatYAML renders the JSON form of resp as block YAML, so field names and
// order follow the json tags.
func formatYAML(resp interface{}) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", fmt.Errorf("failed to convert to YAML: %w", err)
	}
	blockStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// blockStyle drops the flow and quoting styles inherited from JSON.
// Empty collections stay in flow style ([] and {}).
func blockStyle(n *yaml.Node) {
	if len(n.Content) > 0 || n.Kind == yaml.ScalarNode {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ScanResponseCLI:
		return formatScanHuman(v)
	case *coverage.Report:
		return formatCoverageHuman(v)
	case *ListResponseCLI:
		return formatListHuman(v)
	case *GenerateResponseCLI:
		return formatGenerateHuman(v)
	case *FixResponseCLI:
		return formatFixHuman(v)
	case *HistoryResponseCLI:
		return formatHistoryHuman(v)
	case *storage.Run:
		return formatRunHuman(v)
	case *history.RunDiff:
		return formatRunDiffHuman(v)
	case *MetricsResponseCLI:
		return formatMetricsHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func header(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
}

// signature renders fn as name(arg: type, ...) -> ret.
func signature(fn analyzer.FunctionRecord) string {
	args := make([]string, 0, len(fn.Arguments))
	for _, a := range fn.Arguments {
		name := a.Name
		switch a.Kind {
		case analyzer.ArgVarPositional:
			name = "*" + name
		case analyzer.ArgVarKeyword:
			name = "**" + name
		}
		if a.TypeAnnotation != nil {
			name += ": " + *a.TypeAnnotation
		}
		args = append(args, name)
	}
	s := fn.Name + "(" + strings.Join(args, ", ") + ")"
	if fn.ReturnAnnotation != nil {
		s += " -> " + *fn.ReturnAnnotation
	}
	if fn.IsAsync {
		s = "async " + s
	}
	return s
}

func formatScanHuman(resp *ScanResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Scan: "+resp.Root)

	functions := 0
	for _, f := range resp.Files {
		functions += len(f.Functions)
	}
	b.WriteString(fmt.Sprintf("Files scanned: %d\n", resp.FilesScanned))
	b.WriteString(fmt.Sprintf("Files with functions: %d\n", len(resp.Files)))
	b.WriteString(fmt.Sprintf("Functions: %d\n", functions))

	for _, f := range resp.Files {
		b.WriteString(fmt.Sprintf("\n%s (%d/%d documented)\n", f.Path, f.Documented(), len(f.Functions)))
		for _, fn := range f.Functions {
			mark := " "
			if fn.HasDoc {
				mark = "✓"
			}
			b.WriteString(fmt.Sprintf("  %s %5d  %s\n", mark, fn.StartLine, signature(fn)))
		}
	}

	if len(resp.Dropped) > 0 {
		b.WriteString("\nNot analyzed:\n")
		for _, d := range resp.Dropped {
			line := fmt.Sprintf("  %s [%s]", d.Path, d.Status)
			if d.Error != "" {
				line += " " + d.Error
			}
			b.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatCoverageHuman(r *coverage.Report) (string, error) {
	var b strings.Builder
	header(&b, "Documentation Coverage")

	verdict := "PASS"
	if !r.Aggregate.MeetsThreshold {
		verdict = "FAIL"
	}
	b.WriteString(fmt.Sprintf("Functions:  %d\n", r.Aggregate.TotalFunctions))
	b.WriteString(fmt.Sprintf("Documented: %d\n", r.Aggregate.DocumentedCount))
	b.WriteString(fmt.Sprintf("Missing:    %d\n", r.Aggregate.Undocumented()))
	b.WriteString(fmt.Sprintf("Coverage:   %s%% (threshold %.1f%%: %s)\n",
		r.Aggregate.CoveragePercent, coverage.Threshold, verdict))

	if len(r.Files) > 0 {
		b.WriteString("\nPer file:\n")
		for _, f := range r.Files {
			b.WriteString(fmt.Sprintf("  %6s%%  %4d/%-4d  %s\n",
				f.CoveragePercent, f.DocumentedCount, f.TotalFunctions, f.Path))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatListHuman(resp *ListResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, fmt.Sprintf("Functions (%s, style %s)", resp.Status, resp.Style))

	b.WriteString(fmt.Sprintf("Files: %d  Functions: %d  Documented: %d\n",
		resp.Summary.Files, resp.Summary.Functions, resp.Summary.Documented))

	if len(resp.Files) == 0 {
		b.WriteString("\nNo matching functions.")
		return b.String(), nil
	}
	for _, f := range resp.Files {
		b.WriteString("\n" + f.Path + "\n")
		for _, fn := range f.Functions {
			state := "needs fix"
			if fn.Complete {
				state = "ok"
			}
			detected := fn.DetectedStyle
			if detected == "" {
				detected = "-"
			}
			b.WriteString(fmt.Sprintf("  %5d  %-40s %-10s %s\n", fn.StartLine, fn.Name, state, detected))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatGenerateHuman(resp *GenerateResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, fmt.Sprintf("Docstrings for %s (%s, %s)", resp.File, resp.Style, resp.Generator))

	if len(resp.Docstrings) == 0 {
		b.WriteString("Nothing to generate.")
		return b.String(), nil
	}
	for _, d := range resp.Docstrings {
		b.WriteString(fmt.Sprintf("%s (line %d)\n", d.Function, d.StartLine))
		b.WriteString(strings.Repeat("-", 40) + "\n")
		if d.Error != "" {
			b.WriteString("Error: " + d.Error + "\n")
		}
		b.WriteString(d.Docstring + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatFixHuman(resp *FixResponseCLI) (string, error) {
	var b strings.Builder
	if resp.Diff != "" {
		b.WriteString(resp.Diff)
		if !strings.HasSuffix(resp.Diff, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	switch {
	case len(resp.Applied) == 0:
		b.WriteString(fmt.Sprintf("No docstrings inserted into %s\n", resp.File))
	case resp.Written:
		b.WriteString(fmt.Sprintf("Inserted %d docstring(s) into %s\n", len(resp.Applied), resp.File))
	default:
		b.WriteString(fmt.Sprintf("Dry run: %d docstring(s) would be inserted into %s\n", len(resp.Applied), resp.File))
	}
	for _, s := range resp.Skipped {
		b.WriteString(fmt.Sprintf("  skipped %s (line %d): %s\n", s.Function, s.StartLine, s.Reason))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatHistoryHuman(resp *HistoryResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Coverage History")

	if len(resp.Runs) == 0 {
		b.WriteString("No runs recorded.")
		return b.String(), nil
	}
	for _, r := range resp.Runs {
		mark := "✗"
		if r.MeetsThreshold {
			mark = "✓"
		}
		b.WriteString(fmt.Sprintf("%s %s  %s  %5.1f%%  %d/%d  %s\n",
			mark, r.ID, r.CreatedAt, r.CoveragePercent, r.DocumentedCount, r.TotalFunctions, r.Root))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatRunHuman(run *storage.Run) (string, error) {
	var b strings.Builder
	header(&b, "Run "+run.ID)

	b.WriteString(fmt.Sprintf("Root:       %s\n", run.Root))
	b.WriteString(fmt.Sprintf("Recorded:   %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Files:      %d scanned\n", run.FilesScanned))
	b.WriteString(fmt.Sprintf("Coverage:   %.1f%% (%d/%d)\n", run.CoveragePercent, run.DocumentedCount, run.TotalFunctions))

	if len(run.Files) > 0 {
		b.WriteString("\nPer file:\n")
		for _, f := range run.Files {
			b.WriteString(fmt.Sprintf("  %5.1f%%  %4d/%-4d  %s\n",
				f.CoveragePercent, f.DocumentedCount, f.TotalFunctions, f.Path))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatRunDiffHuman(d *history.RunDiff) (string, error) {
	var b strings.Builder
	header(&b, fmt.Sprintf("Coverage change %s -> %s", d.From, d.To))

	b.WriteString(fmt.Sprintf("Coverage:  %+.1f points\n", d.CoverageDelta))
	b.WriteString(fmt.Sprintf("Functions: %+d\n", d.FunctionDelta))

	if len(d.Files) == 0 {
		b.WriteString("\nNo file changes.")
		return b.String(), nil
	}
	b.WriteString("\nFiles:\n")
	for _, f := range d.Files {
		switch f.Kind {
		case history.Added:
			b.WriteString(fmt.Sprintf("  + %s (%.1f%%)\n", f.Path, f.After))
		case history.Removed:
			b.WriteString(fmt.Sprintf("  - %s (was %.1f%%)\n", f.Path, f.Before))
		default:
			b.WriteString(fmt.Sprintf("  ~ %s %.1f%% -> %.1f%%\n", f.Path, f.Before, f.After))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatMetricsHuman(resp *MetricsResponseCLI) (string, error) {
	var b strings.Builder
	header(&b, "Complexity")

	b.WriteString(fmt.Sprintf("Files: %d  Functions: %d  Max cyclomatic: %d  Average maintainability: %.1f\n",
		len(resp.Files), resp.Summary.FunctionCount, resp.Summary.MaxCyclomatic, resp.Summary.AverageMaintainability))

	for _, f := range resp.Files {
		b.WriteString(fmt.Sprintf("\n%s  MI %.1f  cyclomatic %d (max %d)  cognitive %d\n",
			f.File, f.Maintainability, f.TotalCyclomatic, f.MaxCyclomatic, f.TotalCognitive))
		if f.Error != "" {
			b.WriteString("  error: " + f.Error + "\n")
		}
		for _, fn := range f.Functions {
			b.WriteString(fmt.Sprintf("  %s %5d  %-40s cc=%-3d cog=%-3d %s\n",
				fn.Rank, fn.StartLine, fn.Name, fn.Cyclomatic, fn.Cognitive, fn.Risk))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
