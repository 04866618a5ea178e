// Package analyzer defines the capability the analysis gate depends on and
// the providers that implement it. A provider turns one file's content into
// a Result; the gate handles caching around it.
//
// Results must describe content only. Cache entries are keyed by content,
// analyzer identity, prompt hash and schema version, so a result that
// mentioned its path would leak into every other file with the same bytes.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"repowatch/internal/config"
	"repowatch/internal/errors"
)

// Provider names accepted in analyzer.provider
const (
	ProviderHeuristic  = "heuristic"
	ProviderComplexity = "complexity"
)

// Analyzer produces a structured result for one file.
type Analyzer interface {
	// Profile identifies the analyzer for cache keying.
	Profile() Profile

	// Analyze inspects content. path is informational (language detection,
	// logging) and must not appear in the result.
	Analyze(ctx context.Context, path string, content []byte) (*Output, error)
}

// Output is a successful analysis.
type Output struct {
	Result   *Result
	CostHint int64 // approximate token count; 0 when unknown
}

// New builds the analyzer selected by cfg. A profile file, when
// configured, overrides the provider's default profile.
func New(cfg config.AnalyzerConfig, logger *slog.Logger) (Analyzer, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderHeuristic
	}

	profile, err := DefaultProfile(provider)
	if err != nil {
		return nil, err
	}
	if cfg.ProfilePath != "" {
		profile, err = LoadProfile(cfg.ProfilePath, profile)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Analyzer configured",
		"provider", provider,
		"identity", profile.Identity(),
		"analysisType", profile.AnalysisType,
		"schemaVersion", profile.SchemaVersion,
	)

	switch provider {
	case ProviderHeuristic:
		return NewHeuristic(profile), nil
	case ProviderComplexity:
		return NewStructural(profile)
	default:
		return nil, errors.Newf(errors.InvalidArgument, "unknown analyzer provider %q", provider)
	}
}

// failed wraps an analysis error with the provider's failure code.
func failed(path string, cause error) error {
	return errors.New(errors.AnalyzerFailed, fmt.Sprintf("analysis of %s failed", path), cause)
}
