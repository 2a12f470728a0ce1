package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"doccov/internal/analyzer"
	"doccov/internal/errors"
	"doccov/internal/review"
)

var (
	listFormat string
	listSearch string
	listStatus string
	listStyle  string
)

var listCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List functions by docstring state",
	Long: `List functions and whether their docstrings are complete.

A docstring is complete when it is at least 10 characters long, contains no
DESCRIPTION placeholder, and is written in the target style (google, numpy or
rest). Files are kept when their overall state matches --status; a file is OK
only when every function in it is.

Examples:
  doccov list
  doccov list --status="needs fix" src/
  doccov list --search=parse --style=numpy`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "human", "Output format (json, yaml, human)")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Only functions whose name contains this text (case-insensitive)")
	listCmd.Flags().StringVar(&listStatus, "status", "All", "Filter by state: All, Needs Fix, OK")
	listCmd.Flags().StringVar(&listStyle, "style", "", "Target docstring style (default: review.style from config)")
	rootCmd.AddCommand(listCmd)
}

// ListResponseCLI is the list command output.
type ListResponseCLI struct {
	Style   review.Style   `json:"style"`
	Status  review.Status  `json:"status"`
	Search  string         `json:"search,omitempty"`
	Summary review.Summary `json:"summary"`
	Files   []ListFileCLI  `json:"files"`
}

type ListFileCLI struct {
	Path      string            `json:"file_path"`
	Functions []ListFunctionCLI `json:"functions"`
}

type ListFunctionCLI struct {
	Name          string `json:"name"`
	StartLine     int    `json:"start_line"`
	HasDoc        bool   `json:"has_doc"`
	DetectedStyle string `json:"detected_style,omitempty"`
	Complete      bool   `json:"complete"`
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status, ok := review.ParseStatus(listStatus)
	if !ok {
		return errors.Newf(errors.ConfigInvalid, "unknown status %q (want All, Needs Fix or OK)", listStatus)
	}
	style, err := a.style(listStyle)
	if err != nil {
		return err
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

	output, err := FormatResponse(buildListResponse(result.Reports, listSearch, status, style), OutputFormat(listFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

// style returns the --style value or the configured review style.
func (a *app) style(flag string) (review.Style, error) {
	if flag == "" {
		flag = a.cfg.Review.Style
	}
	style, err := review.ParseStyle(flag)
	if err != nil {
		return review.StyleNone, errors.New(errors.ConfigInvalid, err.Error(), nil)
	}
	return style, nil
}

func buildListResponse(reports []analyzer.FileReport, search string, status review.Status, style review.Style) *ListResponseCLI {
	resp := &ListResponseCLI{
		Style:   style,
		Status:  status,
		Search:  search,
		Summary: review.Stats(reports),
		Files:   []ListFileCLI{},
	}

	for _, r := range review.FilterFiles(reports, status, style) {
		fns := review.Filter(r.Functions, search, status, style)
		if len(fns) == 0 {
			continue
		}
		file := ListFileCLI{Path: r.Path, Functions: make([]ListFunctionCLI, 0, len(fns))}
		for _, fn := range fns {
			file.Functions = append(file.Functions, ListFunctionCLI{
				Name:          fn.Name,
				StartLine:     fn.StartLine,
				HasDoc:        fn.HasDoc,
				DetectedStyle: string(review.DetectStyle(fn.Doc())),
				Complete:      review.IsComplete(fn, style),
			})
		}
		resp.Files = append(resp.Files, file)
	}
	return resp
}
