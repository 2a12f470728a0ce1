package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doccov/internal/analyzer"
	"doccov/internal/docgen"
	"doccov/internal/errors"
	"doccov/internal/insert"
	"doccov/internal/review"
	"doccov/internal/session"
)

var (
	fixFormat    string
	fixFunctions []string
	fixStyle     string
	fixMode      string
	fixAll       bool
	fixDryRun    bool
)

var fixCmd = &cobra.Command{
	Use:   "fix <file>",
	Short: "Generate and insert missing docstrings",
	Long: `Generate docstrings for the incomplete functions of a file and insert them
right after each def header. An existing docstring is replaced.

Functions whose body sits on the header line (def f(): pass) are skipped, as
are functions whose generation failed. Use --dry-run to print the diff
without writing.

Examples:
  doccov fix --dry-run pkg/module.py
  doccov fix --function=parse pkg/module.py
  doccov fix --all --style=rest pkg/module.py`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixFormat, "format", "human", "Output format (json, yaml, human)")
	fixCmd.Flags().StringSliceVar(&fixFunctions, "function", nil, "Only these functions (repeatable)")
	fixCmd.Flags().StringVar(&fixStyle, "style", "", "Docstring style (default: review.style from config)")
	fixCmd.Flags().StringVar(&fixMode, "mode", "", "Generator mode: auto, placeholder, chat (default: generator.mode from config)")
	fixCmd.Flags().BoolVar(&fixAll, "all", false, "Regenerate docstrings that are already complete")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Print the diff without modifying the file")
	rootCmd.AddCommand(fixCmd)
}

// FixResponseCLI is the fix command output.
type FixResponseCLI struct {
	File    string         `json:"file"`
	DryRun  bool           `json:"dry_run"`
	Written bool           `json:"written"`
	Applied []FixedFnCLI   `json:"applied"`
	Skipped []SkippedFnCLI `json:"skipped,omitempty"`
	Diff    string         `json:"diff,omitempty"`
}

type FixedFnCLI struct {
	Function  string `json:"function"`
	StartLine int    `json:"start_line"`
}

type SkippedFnCLI struct {
	Function  string `json:"function"`
	StartLine int    `json:"start_line"`
	Reason    string `json:"reason"`
}

func runFix(cmd *cobra.Command, args []string) error {
	start := time.Now()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	style, err := a.style(fixStyle)
	if err != nil {
		return err
	}
	gen, err := a.generator(fixMode)
	if err != nil {
		return err
	}
	an, err := a.newAnalyzer(nil)
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	file, err := loadFile(ctx, an, args[0])
	if err != nil {
		return err
	}
	fns, err := pickFunctions(file.Functions, fixFunctions, fixAll, style)
	if err != nil {
		return err
	}

	state := session.New()
	state.SetScan(&analyzer.ScanResult{
		Root:         file.Path,
		Reports:      []analyzer.FileReport{file},
		FilesScanned: 1,
	})
	resp := &FixResponseCLI{File: file.Path, DryRun: fixDryRun, Applied: []FixedFnCLI{}}
	if len(fns) == 0 {
		return printFix(resp)
	}
	if err := state.Select(file.Path); err != nil {
		return err
	}

	if err := preview(ctx, a, state, gen, fns, style, resp); err != nil {
		return err
	}

	var edits []insert.Insertion
	for _, fn := range fns {
		p, ok := state.TakePreview(fn)
		if !ok {
			continue
		}
		edits = append(edits, insert.Insertion{Function: p.Function, Docstring: p.Text})
		resp.Applied = append(resp.Applied, FixedFnCLI{Function: fn.Name, StartLine: fn.StartLine})
	}
	if len(edits) == 0 {
		return printFix(resp)
	}

	edit, err := insert.Plan(file.Path, edits)
	if err != nil {
		return err
	}
	if resp.Diff, err = edit.Diff(); err != nil {
		return errors.New(errors.InternalError, "cannot compute diff", err)
	}
	if !fixDryRun {
		if err := edit.Write(); err != nil {
			return err
		}
		resp.Written = true
		a.logger.Info("Docstrings inserted", "file", file.Path, "count", len(edits))
	}

	a.logger.Debug("Fix command completed",
		"file", file.Path,
		"applied", len(resp.Applied),
		"skipped", len(resp.Skipped),
		"duration", time.Since(start).Milliseconds(),
	)
	return printFix(resp)
}

// preview generates a docstring for each function and stores it in state.
// Functions that cannot be edited or whose generation failed are recorded
// in resp.Skipped instead.
func preview(ctx context.Context, a *app, state *session.State, gen docgen.Generator, fns []analyzer.FunctionRecord, style review.Style, resp *FixResponseCLI) error {
	for _, fn := range fns {
		if fn.IsOneLiner() {
			resp.Skipped = append(resp.Skipped, SkippedFnCLI{fn.Name, fn.StartLine, "body is on the header line"})
			continue
		}
		text, err := docgen.Docstring(ctx, gen, fn, style)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("generation interrupted: %w", ctx.Err())
			}
			a.logger.Warn("Docstring generation failed", "function", fn.Name, "error", err.Error())
			resp.Skipped = append(resp.Skipped, SkippedFnCLI{fn.Name, fn.StartLine, err.Error()})
			continue
		}
		if err := state.SetPreview(fn, text); err != nil {
			return err
		}
	}
	return nil
}

func printFix(resp *FixResponseCLI) error {
	output, err := FormatResponse(resp, OutputFormat(fixFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
