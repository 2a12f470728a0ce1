// Package report writes coverage reports to files or streams.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"doccov/internal/coverage"
	"doccov/internal/errors"
)

// Format is a report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatText:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// FormatFor picks the format implied by a file extension, ignoring a
// trailing .gz. Unknown extensions yield fallback.
func FormatFor(path string, fallback Format) Format {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".gz")))
	switch ext {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".txt":
		return FormatText
	default:
		return fallback
	}
}

// Encode writes r to w in format.
func Encode(w io.Writer, r *coverage.Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return encodeText(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// encodeText writes one key=value pair per line: the aggregate fields first,
// then one line per file.
func encodeText(w io.Writer, r *coverage.Report) error {
	for _, f := range r.Fields() {
		if _, err := fmt.Fprintf(w, "%s=%s\n", f.Key, f.Value); err != nil {
			return err
		}
	}
	for _, f := range r.Files {
		if _, err := fmt.Fprintf(w, "file.%s=%d/%d %s\n", f.Path, f.DocumentedCount, f.TotalFunctions, f.CoveragePercent); err != nil {
			return err
		}
	}
	return nil
}

// Write writes r to path, creating parent directories. A path ending in .gz
// is gzip-compressed. The file is replaced atomically.
func Write(path string, r *coverage.Report, format Format) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.InternalError, "cannot create report directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return errors.New(errors.InternalError, "cannot create report file", err)
	}
	defer os.Remove(tmp.Name())
	_ = tmp.Chmod(0o644)

	if err := encodeTo(tmp, path, r, format); err != nil {
		_ = tmp.Close()
		return errors.New(errors.InternalError, "cannot write report", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.New(errors.InternalError, "cannot write report", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.New(errors.InternalError, "cannot write report", err)
	}
	return nil
}

func encodeTo(w io.Writer, path string, r *coverage.Report, format Format) error {
	if !strings.HasSuffix(path, ".gz") {
		return Encode(w, r, format)
	}
	zw := gzip.NewWriter(w)
	if err := Encode(zw, r, format); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// Read loads a JSON or YAML report written by Write.
func Read(path string) (*coverage.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rd io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip report: %w", err)
		}
		defer zr.Close()
		rd = zr
	}

	var r coverage.Report
	switch format := FormatFor(path, FormatJSON); format {
	case FormatJSON:
		err = json.NewDecoder(rd).Decode(&r)
	case FormatYAML:
		err = yaml.NewDecoder(rd).Decode(&r)
	default:
		return nil, fmt.Errorf("cannot read %s reports", format)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid report %s: %w", path, err)
	}
	if r.Files == nil {
		r.Files = []coverage.FileCoverage{}
	}
	return &r, nil
}
