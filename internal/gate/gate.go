// Package gate runs the analyzer only for content the cache has not seen.
//
// Failures are classified per file. Unreadable files and analyzer errors
// are logged and skipped. Cache store errors are never swallowed: the batch
// finishes the remaining files and Process returns every store error joined.
package gate

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"repowatch/internal/analysiscache"
	"repowatch/internal/analyzer"
	"repowatch/internal/errors"
)

// Cache is the subset of the cache store used by the gate.
type Cache interface {
	Get(ctx context.Context, key analysiscache.Key, out any) (bool, error)
	Set(ctx context.Context, key analysiscache.Key, value any, meta analysiscache.Meta) error
}

// Options configures a Gate.
type Options struct {
	// MaxFileSizeBytes skips larger files; 0 disables the limit.
	MaxFileSizeBytes int64
}

// Gate consults the cache for each file and analyzes misses.
type Gate struct {
	cache       Cache
	analyzer    analyzer.Analyzer
	maxFileSize int64
	logger      *slog.Logger
}

// New creates a gate.
func New(cache Cache, a analyzer.Analyzer, opts Options, logger *slog.Logger) *Gate {
	return &Gate{
		cache:       cache,
		analyzer:    a,
		maxFileSize: opts.MaxFileSizeBytes,
		logger:      logger,
	}
}

// Report counts what happened to each file of a batch.
type Report struct {
	Files          int `json:"files"`
	Hits           int `json:"hits"`
	Analyzed       int `json:"analyzed"`
	Unreadable     int `json:"unreadable"`
	Oversized      int `json:"oversized"`
	AnalyzerFailed int `json:"analyzerFailed"`
	StoreFailed    int `json:"storeFailed"`
}

// Process analyzes files that miss the cache. The returned error is non-nil
// only for cache store failures.
func (g *Gate) Process(ctx context.Context, files []string) (*Report, error) {
	profile := g.analyzer.Profile()
	identity := profile.Identity()
	promptHash := profile.PromptHash()

	report := &Report{Files: len(files)}
	var storeErrs []error

	for _, path := range files {
		content, ok := g.read(path, report)
		if !ok {
			continue
		}

		key := analysiscache.Key{
			Content:          content,
			AnalyzerIdentity: identity,
			PromptHash:       promptHash,
			SchemaVersion:    profile.SchemaVersion,
		}

		var cached analyzer.Result
		hit, err := g.cache.Get(ctx, key, &cached)
		if err != nil {
			report.StoreFailed++
			storeErrs = append(storeErrs, fmt.Errorf("%s: %w", path, err))
			g.logger.Error("Cache lookup failed", "path", path, "error", err.Error())
			continue
		}
		if hit {
			report.Hits++
			continue
		}

		out, err := g.analyzer.Analyze(ctx, path, content)
		if err == nil && (out == nil || out.Result == nil) {
			err = errors.Newf(errors.AnalyzerFailed, "analyzer returned no result for %s", path)
		}
		if err != nil {
			report.AnalyzerFailed++
			g.logger.Warn("Analysis failed, skipping file", "path", path, "error", err.Error())
			continue
		}

		meta := analysiscache.Meta{AnalysisType: profile.AnalysisType, CostHint: out.CostHint}
		if err := g.cache.Set(ctx, key, out.Result, meta); err != nil {
			report.StoreFailed++
			storeErrs = append(storeErrs, fmt.Errorf("%s: %w", path, err))
			g.logger.Error("Failed to store analysis result", "path", path, "error", err.Error())
			continue
		}
		report.Analyzed++
	}

	g.logger.Info("Analysis batch complete",
		"files", report.Files,
		"hits", report.Hits,
		"analyzed", report.Analyzed,
		"analyzerFailed", report.AnalyzerFailed,
		"storeFailed", report.StoreFailed,
	)
	return report, stderrors.Join(storeErrs...)
}

// read loads a file, recording why it was skipped when it cannot be used.
func (g *Gate) read(path string, report *Report) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil {
		report.Unreadable++
		g.logger.Warn("Cannot stat file, skipping", "path", path, "error", err.Error())
		return nil, false
	}
	if !info.Mode().IsRegular() {
		report.Unreadable++
		g.logger.Warn("Not a regular file, skipping", "path", path)
		return nil, false
	}
	if g.maxFileSize > 0 && info.Size() > g.maxFileSize {
		report.Oversized++
		g.logger.Debug("File exceeds size limit, skipping",
			"path", path,
			"size", info.Size(),
			"limit", g.maxFileSize,
		)
		return nil, false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		report.Unreadable++
		g.logger.Warn("Cannot read file, skipping", "path", path, "error", err.Error())
		return nil, false
	}
	return content, true
}
