package analyzer

import (
	"bytes"
	"context"
	"fmt"

	"repowatch/internal/complexity"
	"repowatch/internal/errors"
)

// Structural is a provider backed by tree-sitter complexity metrics.
type Structural struct {
	profile  Profile
	analyzer *complexity.Analyzer
}

// NewStructural creates the complexity provider. It fails when the binary
// was built without tree-sitter support.
func NewStructural(profile Profile) (*Structural, error) {
	if !complexity.IsAvailable() {
		return nil, errors.Newf(errors.InvalidArgument,
			"analyzer provider %q requires a cgo build", ProviderComplexity)
	}
	return &Structural{profile: profile, analyzer: complexity.NewAnalyzer()}, nil
}

// Profile returns the provider profile.
func (s *Structural) Profile() Profile {
	return s.profile
}

// Analyze parses content and reports per-function complexity.
func (s *Structural) Analyze(ctx context.Context, path string, content []byte) (*Output, error) {
	lang, ok := complexity.LanguageForPath(path)
	if !ok {
		return nil, failed(path, fmt.Errorf("no grammar for this file type"))
	}

	fm, err := s.analyzer.AnalyzeSource(ctx, content, lang)
	if err != nil {
		return nil, failed(path, err)
	}

	res := &Result{
		Language:  string(lang),
		Lines:     bytes.Count(content, []byte{'\n'}),
		Functions: make([]Function, 0, len(fm.Functions)),
	}
	if len(content) > 0 && content[len(content)-1] != '\n' {
		res.Lines++
	}
	for _, fn := range fm.Functions {
		res.Functions = append(res.Functions, Function{
			Name:       fn.Name,
			StartLine:  fn.StartLine,
			EndLine:    fn.EndLine,
			Cyclomatic: fn.Cyclomatic,
			Cognitive:  fn.Cognitive,
		})
	}
	res.Summary = fmt.Sprintf("%s: %d functions, cyclomatic max %d avg %.1f, cognitive max %d",
		lang, fm.FunctionCount, fm.MaxCyclomatic, fm.AverageCyclomatic, fm.MaxCognitive)

	return &Output{Result: res, CostHint: estimateTokens(content)}, nil
}
