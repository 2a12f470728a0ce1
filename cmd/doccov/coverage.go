package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"doccov/internal/coverage"
	"doccov/internal/report"
)

var (
	coverageFormat    string
	coverageFailUnder float64
	coverageOutput    string
	coverageWrite     bool
	coverageNoHistory bool
)

var coverageCmd = &cobra.Command{
	Use:   "coverage [path]",
	Short: "Report docstring coverage",
	Long: `Compute the share of functions that carry a docstring, per file and in
aggregate. Coverage meets the threshold at 80.0%.

With --fail-under the command exits with status 2 when aggregate coverage is
below the given percentage (80 when the flag has no value). Each run is
recorded in .doccov/doccov.db unless history is disabled.

Examples:
  doccov coverage
  doccov coverage --fail-under src/
  doccov coverage --fail-under=65 --format=json
  doccov coverage --output=reports/coverage.yaml.gz`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCoverage,
}

func init() {
	coverageCmd.Flags().StringVar(&coverageFormat, "format", "human", "Output format (json, yaml, human)")
	coverageCmd.Flags().Float64Var(&coverageFailUnder, "fail-under", 0, "Exit with status 2 when coverage is below this percentage")
	coverageCmd.Flags().Lookup("fail-under").NoOptDefVal = strconv.FormatFloat(coverage.Threshold, 'f', -1, 64)
	coverageCmd.Flags().StringVarP(&coverageOutput, "output", "o", "", "Write the report to this path (.json, .yaml, .txt, optionally .gz)")
	coverageCmd.Flags().BoolVar(&coverageWrite, "write", false, "Write the report to the configured report.output path")
	coverageCmd.Flags().BoolVar(&coverageNoHistory, "no-history", false, "Do not record this run")
	rootCmd.AddCommand(coverageCmd)
}

func runCoverage(cmd *cobra.Command, args []string) error {
	start := time.Now()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := a.resolveTarget(args)
	if err != nil {
		return err
	}

	store, err := a.openHistory(coverageNoHistory)
	if err != nil {
		a.logger.Warn("History unavailable", "error", err.Error())
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	an, err := a.newAnalyzer(store)
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	result, err := an.Scan(ctx, target)
	if err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}
	rep := coverage.Compute(result.Reports)

	output, err := FormatResponse(rep, OutputFormat(coverageFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)

	if path := a.reportPath(coverageOutput, coverageWrite); path != "" {
		format, err := report.ParseFormat(a.cfg.Report.Format)
		if err != nil {
			return err
		}
		if err := report.Write(path, rep, report.FormatFor(path, format)); err != nil {
			return err
		}
		a.logger.Info("Report written", "path", path)
	}

	if store != nil {
		abs, err := filepath.Abs(target)
		if err != nil {
			abs = target
		}
		run, err := store.Record(ctx, abs, result, rep)
		if err != nil {
			a.logger.Warn("Failed to record run", "error", err.Error())
		} else {
			a.logger.Info("Run recorded", "id", run.ID)
		}
	}

	a.logger.Debug("Coverage command completed",
		"root", target,
		"coverage", rep.Aggregate.CoveragePercent.String(),
		"duration", time.Since(start).Milliseconds(),
	)

	if cmd.Flags().Changed("fail-under") && belowThreshold(rep, coverageFailUnder) {
		return &exitError{code: 2, err: fmt.Errorf("coverage %s%% is below %.1f%%",
			rep.Aggregate.CoveragePercent, coverageFailUnder)}
	}
	return nil
}

// reportPath returns where the report should be written, or "" for nowhere.
// An explicit --output wins over --write. Relative configured paths are
// taken from the project root.
func (a *app) reportPath(output string, write bool) string {
	if output != "" {
		return output
	}
	if !write || a.cfg.Report.Output == "" {
		return ""
	}
	if filepath.IsAbs(a.cfg.Report.Output) {
		return a.cfg.Report.Output
	}
	return filepath.Join(a.root, a.cfg.Report.Output)
}

// belowThreshold compares the rounded aggregate percentage with limit.
func belowThreshold(rep *coverage.Report, limit float64) bool {
	return float64(rep.Aggregate.CoveragePercent) < limit
}
