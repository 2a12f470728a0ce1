//go:build !cgo

package complexity

import (
	"context"

	"doccov/internal/errors"
)

// Analyzer is unavailable without cgo; every call fails with ANALYZER_UNAVAILABLE.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileComplexity, error) {
	return nil, unavailable()
}

func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte) (*FileComplexity, error) {
	return nil, unavailable()
}

func IsAvailable() bool {
	return false
}

func unavailable() error {
	return errors.New(errors.AnalyzerUnavailable, "function metrics require CGO (tree-sitter)", nil)
}
