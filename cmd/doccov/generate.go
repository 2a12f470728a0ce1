package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doccov/internal/analyzer"
	"doccov/internal/docgen"
	"doccov/internal/errors"
	"doccov/internal/review"
)

var (
	generateFormat    string
	generateFunctions []string
	generateStyle     string
	generateMode      string
	generateAll       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Generate docstrings for the functions of a file",
	Long: `Generate docstring text for functions whose docstrings are missing or
incomplete, without touching the file.

The generator is chosen by generator.mode: "chat" calls an OpenAI-compatible
chat completions endpoint, "placeholder" fills in fixed text, and "auto" uses
the endpoint only when an API key is configured (DOCCOV_GENERATOR_APIKEY or
GROQ_API_KEY).

Examples:
  doccov generate pkg/module.py
  doccov generate --function=parse --function=load pkg/module.py
  doccov generate --mode=placeholder --style=numpy pkg/module.py`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateFormat, "format", "human", "Output format (json, yaml, human)")
	generateCmd.Flags().StringSliceVar(&generateFunctions, "function", nil, "Only these functions (repeatable)")
	generateCmd.Flags().StringVar(&generateStyle, "style", "", "Docstring style (default: review.style from config)")
	generateCmd.Flags().StringVar(&generateMode, "mode", "", "Generator mode: auto, placeholder, chat (default: generator.mode from config)")
	generateCmd.Flags().BoolVar(&generateAll, "all", false, "Include functions whose docstrings are already complete")
	rootCmd.AddCommand(generateCmd)
}

// GenerateResponseCLI is the generate command output.
type GenerateResponseCLI struct {
	File       string            `json:"file"`
	Generator  string            `json:"generator"`
	Style      review.Style      `json:"style"`
	Docstrings []GeneratedDocCLI `json:"docstrings"`
}

type GeneratedDocCLI struct {
	Function  string `json:"function"`
	StartLine int    `json:"start_line"`
	Docstring string `json:"docstring"`
	Error     string `json:"error,omitempty"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	style, err := a.style(generateStyle)
	if err != nil {
		return err
	}
	gen, err := a.generator(generateMode)
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
	fns, err := pickFunctions(file.Functions, generateFunctions, generateAll, style)
	if err != nil {
		return err
	}

	resp := &GenerateResponseCLI{
		File:       file.Path,
		Generator:  gen.Name(),
		Style:      style,
		Docstrings: make([]GeneratedDocCLI, 0, len(fns)),
	}
	for _, fn := range fns {
		text, err := docgen.Docstring(ctx, gen, fn, style)
		doc := GeneratedDocCLI{Function: fn.Name, StartLine: fn.StartLine, Docstring: text}
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("generation interrupted: %w", ctx.Err())
			}
			doc.Error = err.Error()
			a.logger.Warn("Docstring generation failed", "function", fn.Name, "error", err.Error())
		}
		resp.Docstrings = append(resp.Docstrings, doc)
	}

	output, err := FormatResponse(resp, OutputFormat(generateFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)

	a.logger.Debug("Generate command completed",
		"file", file.Path,
		"functions", len(fns),
		"generator", gen.Name(),
		"duration", time.Since(start).Milliseconds(),
	)
	return nil
}

// generator builds the configured generator, with mode overriding
// generator.mode when set.
func (a *app) generator(mode string) (docgen.Generator, error) {
	cfg := a.cfg.Generator
	if mode != "" {
		switch mode {
		case "auto", "placeholder", "chat":
			cfg.Mode = mode
		default:
			return nil, errors.Newf(errors.ConfigInvalid, "unknown generator mode %q (want auto, placeholder or chat)", mode)
		}
	}
	if cfg.Mode == "chat" && cfg.APIKey == "" {
		return nil, errors.Newf(errors.ConfigInvalid, "generator mode chat needs an API key (DOCCOV_GENERATOR_APIKEY or GROQ_API_KEY)")
	}
	return docgen.New(cfg, a.logger), nil
}

// loadFile parses a single Python file and fails unless it could be read and parsed.
func loadFile(ctx context.Context, an *analyzer.Analyzer, path string) (analyzer.FileReport, error) {
	file := an.ParseFile(ctx, path)
	switch file.Status {
	case analyzer.StatusUnparsable:
		return file, errors.Newf(errors.UnparsableSource, "%s is not valid Python", path)
	case analyzer.StatusUnreadable, analyzer.StatusSkipped:
		return file, errors.Newf(errors.UnreadableFile, "cannot analyze %s: %s", path, file.Error)
	}
	return file, nil
}

// pickFunctions selects the functions to work on: the named ones, every
// function with all, or else those whose docstrings are incomplete.
func pickFunctions(fns []analyzer.FunctionRecord, names []string, all bool, style review.Style) ([]analyzer.FunctionRecord, error) {
	if len(names) > 0 {
		wanted := make(map[string]bool, len(names))
		for _, n := range names {
			wanted[n] = false
		}
		var out []analyzer.FunctionRecord
		for _, fn := range fns {
			if _, ok := wanted[fn.Name]; ok {
				wanted[fn.Name] = true
				out = append(out, fn)
			}
		}
		for _, n := range names {
			if !wanted[n] {
				return nil, errors.Newf(errors.InsertionFailed, "no function named %q", n)
			}
		}
		return out, nil
	}
	if all {
		return fns, nil
	}
	return review.Filter(fns, "", review.StatusNeedsFix, style), nil
}
