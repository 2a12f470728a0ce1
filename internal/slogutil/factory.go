package slogutil

import (
	"io"
	"log/slog"

	"doccov/internal/paths"
)

// FileOptions configures the optional log file under .doccov/logs.
type FileOptions struct {
	Enabled    bool
	Level      string
	MaxSize    string
	MaxBackups int
}

// LoggerFactory builds the CLI logger. Console precedence: CLI flags, then
// the configured level.
type LoggerFactory struct {
	repoRoot    string
	opts        FileOptions
	cliLevel    slog.Level
	hasCLILevel bool
	closers     []io.Closer
}

// NewLoggerFactory creates a factory. Pass hasCLILevel=false when no
// verbosity flag was given.
func NewLoggerFactory(repoRoot string, opts FileOptions, cliLevel slog.Level, hasCLILevel bool) *LoggerFactory {
	return &LoggerFactory{
		repoRoot:    repoRoot,
		opts:        opts,
		cliLevel:    cliLevel,
		hasCLILevel: hasCLILevel,
	}
}

// ConsoleLevel returns the level used for the console handler.
func (f *LoggerFactory) ConsoleLevel() slog.Level {
	if f.hasCLILevel {
		return f.cliLevel
	}
	if f.opts.Level != "" {
		return LevelFromString(f.opts.Level)
	}
	return slog.LevelWarn
}

// CLILogger returns a logger writing to console, teed into
// .doccov/logs/doccov.log at debug level when file logging is enabled.
// A log file that cannot be opened is reported on the console and skipped.
func (f *LoggerFactory) CLILogger(console io.Writer) *slog.Logger {
	consoleHandler := NewHandler(console, &slog.HandlerOptions{Level: f.ConsoleLevel()})
	if !f.opts.Enabled || f.repoRoot == "" {
		return slog.New(consoleHandler)
	}

	if _, err := paths.EnsureLogsDir(f.repoRoot); err != nil {
		logger := slog.New(consoleHandler)
		logger.Warn("Log file disabled", "error", err.Error())
		return logger
	}
	fileLogger, closer, err := NewFileLoggerWithRotation(paths.LogPath(f.repoRoot), slog.LevelDebug, f.opts.MaxSize, f.opts.MaxBackups)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Warn("Log file disabled", "error", err.Error())
		return logger
	}
	f.closers = append(f.closers, closer)
	return slog.New(NewTeeHandler(consoleHandler, fileLogger.Handler()))
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
