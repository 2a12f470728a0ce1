package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"doccov/internal/complexity"
	"doccov/internal/coverage"
	"doccov/internal/errors"
)

var (
	metricsFormat           string
	metricsIncludeFunctions bool
	metricsSortBy           string
	metricsLimit            int
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [path]",
	Short: "Get complexity metrics for Python sources",
	Long: `Get code complexity metrics using tree-sitter parsing.

Returns cyclomatic and cognitive complexity for each function plus file-level
aggregates and a maintainability index (0-100). Functions are ranked A (simple)
to F (untestable) by cyclomatic complexity.

Examples:
  doccov metrics pkg/module.py
  doccov metrics --include-functions=false src/
  doccov metrics --sort=cognitive --limit=10 src/
  doccov metrics --format=human pkg/module.py`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsFormat, "format", "json", "Output format (json, yaml, human)")
	metricsCmd.Flags().BoolVar(&metricsIncludeFunctions, "include-functions", true, "Include per-function complexity")
	metricsCmd.Flags().StringVar(&metricsSortBy, "sort", "cyclomatic", "Sort by: cyclomatic, cognitive, or name")
	metricsCmd.Flags().IntVar(&metricsLimit, "limit", 0, "Limit number of functions shown per file (0 for all)")
	rootCmd.AddCommand(metricsCmd)
}

// MetricsResponseCLI contains complexity results for CLI output
type MetricsResponseCLI struct {
	Summary MetricsSummaryCLI `json:"summary"`
	Files   []MetricsFileCLI  `json:"files"`
}

type MetricsSummaryCLI struct {
	FunctionCount          int     `json:"function_count"`
	MaxCyclomatic          int     `json:"max_cyclomatic"`
	MaxCognitive           int     `json:"max_cognitive"`
	AverageMaintainability float64 `json:"average_maintainability"`
}

type MetricsFileCLI struct {
	File              string                  `json:"file"`
	FunctionCount     int                     `json:"function_count"`
	TotalCyclomatic   int                     `json:"total_cyclomatic"`
	TotalCognitive    int                     `json:"total_cognitive"`
	MaxCyclomatic     int                     `json:"max_cyclomatic"`
	MaxCognitive      int                     `json:"max_cognitive"`
	AverageCyclomatic float64                 `json:"average_cyclomatic"`
	Maintainability   float64                 `json:"maintainability"`
	Functions         []FunctionComplexityCLI `json:"functions,omitempty"`
	Error             string                  `json:"error,omitempty"`
}

type FunctionComplexityCLI struct {
	Name       string `json:"name"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Cyclomatic int    `json:"cyclomatic"`
	Cognitive  int    `json:"cognitive"`
	Rank       string `json:"rank"`
	Risk       string `json:"risk"` // low, medium, high
}

func runMetrics(cmd *cobra.Command, args []string) error {
	start := time.Now()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Check if complexity analysis is available (requires CGO)
	if !complexity.IsAvailable() {
		return errors.Newf(errors.AnalyzerUnavailable, "complexity analysis requires cgo (tree-sitter); this binary was built without it")
	}

	target, err := a.resolveTarget(args)
	if err != nil {
		return err
	}
	an, err := a.newAnalyzer(nil)
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	result, err := an.Scan(ctx, target)
	if err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}

	ca := complexity.NewAnalyzer()
	files := make([]*complexity.FileComplexity, 0, len(result.Reports))
	for _, r := range result.Reports {
		fc, err := ca.AnalyzeFile(ctx, r.Path)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("analysis interrupted: %w", ctx.Err())
			}
			fc = &complexity.FileComplexity{Path: r.Path, Error: err.Error()}
		}
		files = append(files, fc)
	}

	output, err := FormatResponse(convertMetricsResponse(files), OutputFormat(metricsFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)

	a.logger.Debug("Metrics analysis completed",
		"root", target,
		"files", len(files),
		"duration", time.Since(start).Milliseconds(),
	)
	return nil
}

func convertMetricsResponse(files []*complexity.FileComplexity) *MetricsResponseCLI {
	resp := &MetricsResponseCLI{Files: make([]MetricsFileCLI, 0, len(files))}

	var miTotal float64
	var miCount int
	for _, fc := range files {
		resp.Files = append(resp.Files, convertFileComplexity(fc))
		if fc.Error != "" {
			continue
		}
		resp.Summary.FunctionCount += fc.FunctionCount
		resp.Summary.MaxCyclomatic = max(resp.Summary.MaxCyclomatic, fc.MaxCyclomatic)
		resp.Summary.MaxCognitive = max(resp.Summary.MaxCognitive, fc.MaxCognitive)
		miTotal += fc.Maintainability
		miCount++
	}
	if miCount > 0 {
		resp.Summary.AverageMaintainability = coverage.Round1(miTotal / float64(miCount))
	}
	return resp
}

func convertFileComplexity(fc *complexity.FileComplexity) MetricsFileCLI {
	result := MetricsFileCLI{
		File:              fc.Path,
		FunctionCount:     fc.FunctionCount,
		TotalCyclomatic:   fc.TotalCyclomatic,
		TotalCognitive:    fc.TotalCognitive,
		MaxCyclomatic:     fc.MaxCyclomatic,
		MaxCognitive:      fc.MaxCognitive,
		AverageCyclomatic: fc.AverageCyclomatic,
		Maintainability:   fc.Maintainability,
		Error:             fc.Error,
	}

	if !metricsIncludeFunctions || len(fc.Functions) == 0 {
		return result
	}

	functions := make([]FunctionComplexityCLI, 0, len(fc.Functions))
	for _, f := range fc.Functions {
		risk := "low"
		if f.Cyclomatic > 10 || f.Cognitive > 15 {
			risk = "medium"
		}
		if f.Cyclomatic > 20 || f.Cognitive > 30 {
			risk = "high"
		}

		functions = append(functions, FunctionComplexityCLI{
			Name:       f.Name,
			StartLine:  f.StartLine,
			EndLine:    f.EndLine,
			Cyclomatic: f.Cyclomatic,
			Cognitive:  f.Cognitive,
			Rank:       f.Rank(),
			Risk:       risk,
		})
	}

	switch metricsSortBy {
	case "cognitive":
		sort.SliceStable(functions, func(i, j int) bool {
			return functions[i].Cognitive > functions[j].Cognitive
		})
	case "name":
		sort.SliceStable(functions, func(i, j int) bool {
			return functions[i].Name < functions[j].Name
		})
	default: // cyclomatic
		sort.SliceStable(functions, func(i, j int) bool {
			return functions[i].Cyclomatic > functions[j].Cyclomatic
		})
	}

	if metricsLimit > 0 && len(functions) > metricsLimit {
		functions = functions[:metricsLimit]
	}

	result.Functions = functions
	return result
}
