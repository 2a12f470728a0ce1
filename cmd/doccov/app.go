package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"doccov/internal/analyzer"
	"doccov/internal/config"
	"doccov/internal/errors"
	"doccov/internal/history"
	"doccov/internal/paths"
	"doccov/internal/slogutil"
)

// app bundles what every command needs: the project root, its validated
// configuration and the CLI logger.
type app struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	logs   *slogutil.LoggerFactory
}

// newApp resolves the project root and loads its configuration.
func newApp() (*app, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logs := slogutil.NewLoggerFactory(root, slogutil.FileOptions{
		Enabled:    cfg.Logging.File,
		Level:      cfg.Logging.Level,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	}, slogutil.LevelFromVerbosity(verbosity, quiet), verbosity > 0 || quiet)

	return &app{
		root:   root,
		cfg:    cfg,
		logger: logs.CLILogger(os.Stderr),
		logs:   logs,
	}, nil
}

func (a *app) Close() {
	if err := a.logs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing log file: %v\n", err)
	}
}

// projectRoot returns --root or the root discovered from the working directory.
func projectRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return paths.FindRepoRoot(cwd), nil
}

// resolveTarget returns the scan target named by args, defaulting to the
// project root. Relative paths are taken as given, relative to the working directory.
func (a *app) resolveTarget(args []string) (string, error) {
	if len(args) == 0 {
		return a.root, nil
	}
	target := args[0]
	if _, err := os.Stat(target); err != nil {
		return "", errors.New(errors.UnreadableFile, "cannot access "+target, err)
	}
	return target, nil
}

// openHistory opens the run database when history is enabled. It returns
// nil without error when history is disabled.
func (a *app) openHistory(disabled bool) (*history.Store, error) {
	if disabled || !a.cfg.History.Enabled {
		return nil, nil
	}
	return history.Open(a.root, a.cfg.History.Keep, a.logger)
}

// newAnalyzer builds an analyzer from the scan settings, serving unchanged
// files from store's parse cache when store is non-nil.
func (a *app) newAnalyzer(store *history.Store) (*analyzer.Analyzer, error) {
	if !analyzer.IsAvailable() {
		return nil, errors.Newf(errors.AnalyzerUnavailable, "the Python analyzer requires cgo (tree-sitter); this binary was built without it")
	}
	opts := a.cfg.AnalyzerOptions()
	if store != nil {
		opts.Cache = store.ParseCache()
	}
	return analyzer.NewAnalyzer(opts, a.logger), nil
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
