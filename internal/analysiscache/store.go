// Package analysiscache is a content-addressed store for analysis results.
//
// An entry is addressed by the hash of the analyzed bytes together with the
// analyzer identity, prompt hash and schema version. A change along any of
// those dimensions produces a different key, so entries are never
// invalidated explicitly; they leave the store only through Evict, Clear or
// ClearAll.
package analysiscache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"repowatch/internal/errors"
	"repowatch/internal/slogutil"
	"repowatch/internal/storage"
)

// Options configures a Store.
type Options struct {
	Compression Codec
	Logger      *slog.Logger
}

// Store is safe for concurrent use. Writes are serialized by the store;
// lookups run concurrently.
type Store struct {
	table  *storage.CacheTable
	codec  Codec
	logger *slog.Logger
	now    func() time.Time

	writeMu sync.Mutex
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a Store over an open database.
func New(db *storage.DB, opts Options) *Store {
	codec := opts.Compression
	if codec == "" {
		codec = CodecZstd
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Store{
		table:  storage.NewCacheTable(db),
		codec:  codec,
		logger: logger,
		now:    time.Now,
	}
}

// Get looks up the result for key and decodes it into out, which must be a
// pointer. It reports whether the entry was found.
func (s *Store) Get(ctx context.Context, key Key, out any) (bool, error) {
	_, cacheKey := key.digest()

	row, err := s.table.Lookup(ctx, cacheKey)
	if err != nil {
		return false, errors.New(errors.CacheStoreFailed, "cache lookup failed", err)
	}
	if row == nil {
		s.misses.Add(1)
		return false, nil
	}

	payload, err := decompress(row.Payload, Codec(row.Codec), int(row.UncompressedSize))
	if err != nil {
		return false, errors.New(errors.CacheCorrupt, fmt.Sprintf("entry %s cannot be decompressed", shortKey(cacheKey)), err)
	}
	if err := unmarshal(payload, out); err != nil {
		return false, errors.New(errors.CacheCorrupt, fmt.Sprintf("entry %s cannot be decoded", shortKey(cacheKey)), err)
	}

	s.writeMu.Lock()
	err = s.table.Touch(ctx, cacheKey, s.now())
	s.writeMu.Unlock()
	if err != nil {
		return false, errors.New(errors.CacheStoreFailed, "cache touch failed", err)
	}

	s.hits.Add(1)
	return true, nil
}

// Set stores value under key, replacing any existing entry for the same key.
func (s *Store) Set(ctx context.Context, key Key, value any, meta Meta) error {
	contentHash, cacheKey := key.digest()

	raw, err := marshal(value)
	if err != nil {
		return errors.New(errors.CacheStoreFailed, "cannot serialize result", err)
	}
	payload, codec, err := compress(raw, s.codec)
	if err != nil {
		return errors.New(errors.CacheStoreFailed, "cannot compress result", err)
	}

	now := s.now()
	row := &storage.CacheRow{
		CacheKey:         cacheKey,
		ContentHash:      contentHash,
		AnalyzerIdentity: key.AnalyzerIdentity,
		PromptHash:       key.PromptHash,
		SchemaVersion:    key.SchemaVersion,
		AnalysisType:     meta.AnalysisType,
		Codec:            string(codec),
		Payload:          payload,
		CompressedSize:   int64(len(payload)),
		UncompressedSize: int64(len(raw)),
		CostHint:         meta.CostHint,
		CreatedAt:        now,
		LastAccessedAt:   now,
	}

	s.writeMu.Lock()
	replaced, err := s.table.Upsert(ctx, row)
	s.writeMu.Unlock()
	if err != nil {
		return errors.New(errors.CacheStoreFailed, "cache write failed", err)
	}

	s.logger.Debug("Cached analysis result",
		"key", shortKey(cacheKey),
		"type", meta.AnalysisType,
		"codec", codec,
		"bytes", row.CompressedSize,
		"replaced", replaced,
	)
	return nil
}

// Stats returns totals and breakdowns from the rollup table plus the
// in-process hit and miss counters.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	rollups, err := s.table.Rollups(ctx)
	if err != nil {
		return nil, errors.New(errors.CacheStoreFailed, "cache stats failed", err)
	}

	stats := &Stats{
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		ByType:     make(map[string]Breakdown),
		ByAnalyzer: make(map[string]Breakdown),
	}
	stats.HitRate = hitRate(stats.Hits, stats.Misses)

	for _, r := range rollups {
		b := Breakdown{
			Entries:           r.Entries,
			CostSum:           r.CostSum,
			CompressedBytes:   r.CompressedBytes,
			UncompressedBytes: r.UncompressedBytes,
		}
		switch r.Dimension {
		case storage.RollupTotal:
			stats.Breakdown = b
		case storage.RollupType:
			stats.ByType[r.Value] = b
		case storage.RollupAnalyzer:
			stats.ByAnalyzer[r.Value] = b
		}
	}
	return stats, nil
}

// Evict removes entries in policy order until the total compressed size is
// at most targetBytes. A negative target is treated as zero. Eviction stops
// once the target is met or the store is empty.
func (s *Store) Evict(ctx context.Context, policy Policy, targetBytes int64) (*EvictResult, error) {
	order, err := policy.order()
	if err != nil {
		return nil, errors.New(errors.InvalidArgument, "invalid eviction policy", err)
	}
	if targetBytes < 0 {
		targetBytes = 0
	}

	s.writeMu.Lock()
	out, err := s.table.EvictUntil(ctx, order, targetBytes)
	s.writeMu.Unlock()
	if err != nil {
		return nil, errors.New(errors.CacheStoreFailed, "cache eviction failed", err)
	}

	if out.Removed > 0 {
		s.logger.Info("Evicted cache entries",
			"policy", policy,
			"removed", out.Removed,
			"freed_bytes", out.FreedBytes,
			"remaining_bytes", out.RemainingBytes,
		)
	}
	return &EvictResult{
		Policy:         policy,
		TargetBytes:    targetBytes,
		Removed:        out.Removed,
		FreedBytes:     out.FreedBytes,
		RemainingBytes: out.RemainingBytes,
	}, nil
}

// Clear removes every entry of one analysis type.
func (s *Store) Clear(ctx context.Context, analysisType string) (int64, error) {
	s.writeMu.Lock()
	removed, err := s.table.DeleteByType(ctx, analysisType)
	s.writeMu.Unlock()
	if err != nil {
		return 0, errors.New(errors.CacheStoreFailed, "cache clear failed", err)
	}
	s.logger.Info("Cleared cache entries", "type", analysisType, "removed", removed)
	return removed, nil
}

// ClearAll removes every entry and resets the hit and miss counters.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	s.writeMu.Lock()
	removed, err := s.table.DeleteAll(ctx)
	if err == nil {
		s.hits.Store(0)
		s.misses.Store(0)
	}
	s.writeMu.Unlock()
	if err != nil {
		return 0, errors.New(errors.CacheStoreFailed, "cache clear failed", err)
	}
	s.logger.Info("Cleared all cache entries", "removed", removed)
	return removed, nil
}

func shortKey(k string) string {
	if len(k) > 12 {
		return k[:12]
	}
	return k
}
