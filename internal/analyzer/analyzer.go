package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"doccov/internal/errors"
	"doccov/internal/slogutil"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Analyzer parses Python files and directory trees into FileReports.
// It is safe for concurrent use.
type Analyzer struct {
	opts    Options
	logger  *slog.Logger
	parsers sync.Pool
}

// NewAnalyzer creates an analyzer. A nil logger discards output.
func NewAnalyzer(opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	a := &Analyzer{
		opts:   opts,
		logger: logger,
	}
	a.initParsers()
	return a
}

var (
	defaultOnce     sync.Once
	defaultAnalyzer *Analyzer
)

func shared() *Analyzer {
	defaultOnce.Do(func() {
		defaultAnalyzer = NewAnalyzer(DefaultOptions(), nil)
	})
	return defaultAnalyzer
}

// ParseUnit extracts function records from source text. Invalid syntax
// yields an empty slice, indistinguishable from a unit without functions;
// use ParseSource to tell the two apart.
func ParseUnit(source []byte) []FunctionRecord {
	return shared().ParseUnit(source)
}

// ParseFile parses one file with default options.
func ParseFile(ctx context.Context, path string) FileReport {
	return shared().ParseFile(ctx, path)
}

// ParseTree scans a file or directory with default options.
func ParseTree(ctx context.Context, root string) []FileReport {
	return shared().ParseTree(ctx, root)
}

// ParseUnit is ParseSource with the error folded into an empty result.
func (a *Analyzer) ParseUnit(source []byte) []FunctionRecord {
	fns, err := a.ParseSource(context.Background(), source)
	if err != nil {
		return []FunctionRecord{}
	}
	return fns
}

// ParseFile reads and parses a single file. It never fails: a missing,
// unreadable, oversized or undecodable file yields a report without
// functions whose Status says why.
func (a *Analyzer) ParseFile(ctx context.Context, path string) FileReport {
	report := FileReport{
		Path:      path,
		Functions: []FunctionRecord{},
	}

	info, err := os.Stat(path)
	if err != nil {
		return a.unreadable(report, err)
	}
	if info.IsDir() {
		return a.unreadable(report, fmt.Errorf("%s is a directory", path))
	}
	if a.opts.MaxFileSizeBytes > 0 && info.Size() > a.opts.MaxFileSizeBytes {
		report.Status = StatusSkipped
		report.Error = fmt.Sprintf("file size %d exceeds limit %d", info.Size(), a.opts.MaxFileSizeBytes)
		a.logger.Debug("Skipping large file", "path", path, "size", info.Size())
		return report
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return a.unreadable(report, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return a.unreadable(report, fmt.Errorf("not valid UTF-8"))
	}

	if a.opts.Cache != nil {
		if cached, ok := a.opts.Cache.Lookup(path, data); ok {
			cached.Path = path
			return cached
		}
	}

	fns, err := a.ParseSource(ctx, data)
	if err != nil {
		report.Status = StatusUnparsable
		if errors.HasCode(err, errors.AnalyzerUnavailable) {
			report.Status = StatusSkipped
		}
		report.Error = err.Error()
		a.logger.Warn("Skipping unparsable file", "path", path, "error", err.Error())
		return report
	}

	report.Functions = fns
	report.Status = StatusOK
	if len(fns) == 0 {
		report.Status = StatusEmpty
	}
	if a.opts.Cache != nil {
		a.opts.Cache.Store(path, data, report)
	}
	return report
}

func (a *Analyzer) unreadable(report FileReport, cause error) FileReport {
	err := errors.New(errors.UnreadableFile, "cannot read "+report.Path, cause)
	report.Status = StatusUnreadable
	report.Error = err.Error()
	a.logger.Debug("Skipping unreadable file", "path", report.Path, "error", cause.Error())
	return report
}

// ParseTree returns the reports of every file under root that has at least
// one function. It never fails; a cancelled scan returns no reports.
func (a *Analyzer) ParseTree(ctx context.Context, root string) []FileReport {
	result, _ := a.Scan(ctx, root)
	return result.Reports
}

// Scan walks root (a .py file or a directory) and parses every eligible file.
// Files are parsed concurrently but reported in walk order. The only error
// is context cancellation.
func (a *Analyzer) Scan(ctx context.Context, root string) (*ScanResult, error) {
	result := &ScanResult{
		Root:    root,
		Reports: []FileReport{},
	}

	files, err := a.collectFiles(ctx, root)
	if err != nil {
		return result, err
	}
	result.FilesScanned = len(files)

	reports := make([]FileReport, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.workers())
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = a.ParseFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for _, r := range reports {
		switch {
		case len(r.Functions) > 0:
			result.Reports = append(result.Reports, r)
		case r.Status != StatusEmpty:
			result.Dropped = append(result.Dropped, r)
		}
	}

	a.logger.Debug("Scan completed",
		"root", root,
		"files", len(files),
		"reported", len(result.Reports),
		"dropped", len(result.Dropped),
	)
	return result, nil
}

// collectFiles lists eligible files in lexical walk order. A missing root
// yields no files.
func (a *Analyzer) collectFiles(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		a.logger.Debug("Scan root not found", "root", root, "error", err.Error())
		return nil, nil
	}
	if !info.IsDir() {
		if isPythonFile(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			a.logger.Debug("Skipping unreadable path", "path", path, "error", err.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && a.excluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isPythonFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// excluded reports whether a directory name matches an exclude substring.
func (a *Analyzer) excluded(name string) bool {
	for _, pattern := range a.opts.Exclude {
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func isPythonFile(path string) bool {
	return strings.HasSuffix(path, ".py")
}
