package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"", 0},
		{"ten", 0},
		{"-5MB", 0},
		{"512", 512},
		{" 64b ", 64},
		{"2kb", 2 << 10},
		{"5MB", 5 << 20},
		{"0.5KB", 512},
		{"2 GB", 2 << 30},
		{"1TB", 0},
	}

	for _, tt := range tests {
		if got := ParseSize(tt.input); got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestRotatingFile_KeepsBoundedBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "doccov.log")

	rf, err := OpenRotatingFile(path, 40, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	line := []byte(strings.Repeat("x", 29) + "\n")
	for i := 0; i < 6; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, name := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected %s: %v", filepath.Base(name), err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("backup .3 should not exist beyond maxBackups")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) > 40 {
		t.Errorf("active file has %d bytes, limit is 40", len(data))
	}
}

func TestRotatingFile_CloseTwice(t *testing.T) {
	rf, err := OpenRotatingFile(filepath.Join(t.TempDir(), "doccov.log"), 1<<10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := rf.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNewFileLoggerWithRotation(t *testing.T) {
	dir := t.TempDir()

	for _, maxSize := range []string{"1MB", ""} {
		path := filepath.Join(dir, "logs-"+maxSize, "doccov.log")
		logger, closer, err := NewFileLoggerWithRotation(path, slog.LevelInfo, maxSize, 3)
		if err != nil {
			t.Fatalf("maxSize %q: %v", maxSize, err)
		}
		logger.Debug("hidden")
		logger.Info("Scan complete", "files", 3)
		if err := closer.Close(); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("maxSize %q: %v", maxSize, err)
		}
		if bytes.Contains(data, []byte("hidden")) {
			t.Errorf("maxSize %q: debug record written at info level", maxSize)
		}
		if !bytes.Contains(data, []byte("Scan complete | files=3")) {
			t.Errorf("maxSize %q: unexpected log contents %q", maxSize, data)
		}
	}
}
