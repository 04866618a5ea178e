//go:build !cgo

package complexity

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when complexity analysis is unavailable due to missing CGO.
var ErrNoCGO = errors.New("complexity analysis requires CGO (tree-sitter)")

// Analyzer is a placeholder for builds without tree-sitter.
type Analyzer struct{}

// NewAnalyzer creates a new complexity analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeSource always fails without CGO.
func (a *Analyzer) AnalyzeSource(ctx context.Context, source []byte, lang Language) (*FileMetrics, error) {
	return nil, ErrNoCGO
}

// IsAvailable reports whether tree-sitter analysis is compiled in.
func IsAvailable() bool {
	return false
}
