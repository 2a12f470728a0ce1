package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"doccov/internal/paths"
)

func TestLoggerFactory_ConsoleLevel(t *testing.T) {
	tests := []struct {
		name     string
		opts     FileOptions
		cli      slog.Level
		hasCLI   bool
		expected slog.Level
	}{
		{"default", FileOptions{}, 0, false, slog.LevelWarn},
		{"config level", FileOptions{Level: "debug"}, 0, false, slog.LevelDebug},
		{"cli info overrides config", FileOptions{Level: "error"}, slog.LevelInfo, true, slog.LevelInfo},
		{"quiet", FileOptions{Level: "debug"}, LevelSilent, true, LevelSilent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewLoggerFactory("", tt.opts, tt.cli, tt.hasCLI)
			if got := f.ConsoleLevel(); got != tt.expected {
				t.Errorf("ConsoleLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLoggerFactory_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	root := t.TempDir()
	f := NewLoggerFactory(root, FileOptions{Level: "info"}, 0, false)
	defer f.Close()

	f.CLILogger(&buf).Info("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected console output, got: %s", buf.String())
	}
	if _, err := os.Stat(paths.LogPath(root)); !os.IsNotExist(err) {
		t.Error("log file should not be created when file logging is disabled")
	}
}

func TestLoggerFactory_FileLogging(t *testing.T) {
	var buf bytes.Buffer
	root := t.TempDir()
	f := NewLoggerFactory(root, FileOptions{Enabled: true, Level: "warn", MaxSize: "1MB", MaxBackups: 1}, 0, false)

	logger := f.CLILogger(&buf)
	logger.Debug("debug detail")
	logger.Warn("warning")
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if strings.Contains(buf.String(), "debug detail") {
		t.Error("console should filter debug output")
	}
	data, err := os.ReadFile(paths.LogPath(root))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "debug detail") || !strings.Contains(string(data), "warning") {
		t.Errorf("log file should capture all levels, got: %s", data)
	}
}
