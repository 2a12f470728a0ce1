//go:build !cgo

package analyzer

import (
	"context"

	"doccov/internal/errors"
)

func (a *Analyzer) initParsers() {}

// ParseSource extracts function records from source text.
// Stub implementation returns an ANALYZER_UNAVAILABLE error.
func (a *Analyzer) ParseSource(ctx context.Context, source []byte) ([]FunctionRecord, error) {
	return nil, errors.New(errors.AnalyzerUnavailable, "source analysis requires CGO (tree-sitter)", nil)
}

// IsAvailable returns whether source analysis is available.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
