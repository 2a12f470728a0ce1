package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doccov/internal/analyzer"
)

var (
	scanFormat  string
	scanNoCache bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Extract function records from Python sources",
	Long: `Parse a .py file or every .py file below a directory and print the
functions found, with their arguments, annotations and docstrings.

Directories whose names contain an exclude pattern (venv, site-packages, ...)
are not walked into. Files without functions are omitted; files that could not
be parsed or read are listed separately.

Examples:
  doccov scan
  doccov scan src/
  doccov scan --format=human pkg/module.py`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFormat, "format", "json", "Output format (json, yaml, human)")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "Parse every file even if unchanged since the last scan")
	rootCmd.AddCommand(scanCmd)
}

// ScanResponseCLI is the scan command output.
type ScanResponseCLI struct {
	Root         string                `json:"root"`
	FilesScanned int                   `json:"files_scanned"`
	Files        []analyzer.FileReport `json:"files"`
	Dropped      []DroppedFileCLI      `json:"dropped,omitempty"`
}

// DroppedFileCLI is a file that produced no functions because it was broken.
type DroppedFileCLI struct {
	Path   string `json:"file_path"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
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

	store, err := a.openHistory(scanNoCache)
	if err != nil {
		a.logger.Warn("Parse cache unavailable", "error", err.Error())
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

	output, err := FormatResponse(convertScanResponse(result), OutputFormat(scanFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)

	a.logger.Debug("Scan command completed",
		"root", target,
		"files", result.FilesScanned,
		"duration", time.Since(start).Milliseconds(),
	)
	return nil
}

func convertScanResponse(result *analyzer.ScanResult) *ScanResponseCLI {
	resp := &ScanResponseCLI{
		Root:         result.Root,
		FilesScanned: result.FilesScanned,
		Files:        result.Reports,
	}
	for _, d := range result.Dropped {
		resp.Dropped = append(resp.Dropped, DroppedFileCLI{
			Path:   d.Path,
			Status: string(d.Status),
			Error:  d.Error,
		})
	}
	return resp
}
