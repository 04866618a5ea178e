package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Rollup dimensions kept in cache_rollup
const (
	RollupTotal    = "total"
	RollupType     = "type"
	RollupAnalyzer = "analyzer"
)

// CacheRow is one analysis_cache row. Payload is stored as encoded by Codec.
type CacheRow struct {
	CacheKey         string
	ContentHash      string
	AnalyzerIdentity string
	PromptHash       string
	SchemaVersion    int
	AnalysisType     string
	Codec            string
	Payload          []byte
	CompressedSize   int64
	UncompressedSize int64
	CostHint         int64
	CreatedAt        time.Time
	LastAccessedAt   time.Time
	AccessCount      int64
}

// Rollup is one aggregate row of cache_rollup
type Rollup struct {
	Dimension         string
	Value             string
	Entries           int64
	CostSum           int64
	CompressedBytes   int64
	UncompressedBytes int64
}

// EvictionOrder selects the victim order for EvictUntil
type EvictionOrder int

const (
	// OrderLeastRecentlyAccessed evicts the oldest last_accessed_at first
	OrderLeastRecentlyAccessed EvictionOrder = iota
	// OrderOldestCreated evicts the oldest created_at first
	OrderOldestCreated
	// OrderLargest evicts the largest compressed payload first
	OrderLargest
	// OrderMostExpensive evicts the highest cost hint first
	OrderMostExpensive
)

// cache_key breaks ties so victim selection is deterministic.
var evictionOrderSQL = map[EvictionOrder]string{
	OrderLeastRecentlyAccessed: "last_accessed_at ASC, cache_key ASC",
	OrderOldestCreated:         "created_at ASC, cache_key ASC",
	OrderLargest:               "compressed_size DESC, cache_key ASC",
	OrderMostExpensive:         "cost_hint DESC, cache_key ASC",
}

// EvictionOutcome reports what EvictUntil removed
type EvictionOutcome struct {
	Removed        int64
	FreedBytes     int64
	RemainingBytes int64
}

// CacheTable provides persistence for analysis_cache and its rollup.
// Every mutation adjusts cache_rollup in the same transaction.
type CacheTable struct {
	db *DB
}

// NewCacheTable creates a new cache table accessor
func NewCacheTable(db *DB) *CacheTable {
	return &CacheTable{db: db}
}

const cacheColumns = `cache_key, content_hash, analyzer_identity, prompt_hash, schema_version,
	analysis_type, codec, payload, compressed_size, uncompressed_size, cost_hint,
	created_at, last_accessed_at, access_count`

// Lookup returns the row for key, or nil when absent
func (c *CacheTable) Lookup(ctx context.Context, key string) (*CacheRow, error) {
	var (
		row               CacheRow
		created, accessed int64
	)
	err := c.db.QueryRowContext(ctx, `SELECT `+cacheColumns+` FROM analysis_cache WHERE cache_key = ?`, key).Scan(
		&row.CacheKey, &row.ContentHash, &row.AnalyzerIdentity, &row.PromptHash, &row.SchemaVersion,
		&row.AnalysisType, &row.Codec, &row.Payload, &row.CompressedSize, &row.UncompressedSize, &row.CostHint,
		&created, &accessed, &row.AccessCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	row.CreatedAt = time.Unix(0, created).UTC()
	row.LastAccessedAt = time.Unix(0, accessed).UTC()
	return &row, nil
}

// Touch records a hit: bumps access_count and refreshes last_accessed_at
func (c *CacheTable) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE analysis_cache
		SET access_count = access_count + 1, last_accessed_at = ?
		WHERE cache_key = ?
	`, at.UnixNano(), key)
	if err != nil {
		return fmt.Errorf("cache touch failed: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the row for row.CacheKey. Timestamps are taken
// from the row; access_count survives a replace. Reports whether a row was
// replaced.
func (c *CacheTable) Upsert(ctx context.Context, row *CacheRow) (bool, error) {
	replaced := false
	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		var prev Rollup
		var prevType, prevAnalyzer string
		err := tx.QueryRowContext(ctx, `
			SELECT analysis_type, analyzer_identity, cost_hint, compressed_size, uncompressed_size
			FROM analysis_cache WHERE cache_key = ?
		`, row.CacheKey).Scan(&prevType, &prevAnalyzer, &prev.CostSum, &prev.CompressedBytes, &prev.UncompressedBytes)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return err
		default:
			replaced = true
			prev.Entries = 1
			if err := adjustRollup(ctx, tx, prevType, prevAnalyzer, negate(prev)); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO analysis_cache (`+cacheColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
			ON CONFLICT(cache_key) DO UPDATE SET
				content_hash = excluded.content_hash,
				analyzer_identity = excluded.analyzer_identity,
				prompt_hash = excluded.prompt_hash,
				schema_version = excluded.schema_version,
				analysis_type = excluded.analysis_type,
				codec = excluded.codec,
				payload = excluded.payload,
				compressed_size = excluded.compressed_size,
				uncompressed_size = excluded.uncompressed_size,
				cost_hint = excluded.cost_hint,
				created_at = excluded.created_at,
				last_accessed_at = excluded.last_accessed_at
		`,
			row.CacheKey, row.ContentHash, row.AnalyzerIdentity, row.PromptHash, row.SchemaVersion,
			row.AnalysisType, row.Codec, row.Payload, row.CompressedSize, row.UncompressedSize, row.CostHint,
			row.CreatedAt.UnixNano(), row.LastAccessedAt.UnixNano(),
		)
		if err != nil {
			return err
		}

		return adjustRollup(ctx, tx, row.AnalysisType, row.AnalyzerIdentity, Rollup{
			Entries:           1,
			CostSum:           row.CostHint,
			CompressedBytes:   row.CompressedSize,
			UncompressedBytes: row.UncompressedSize,
		})
	})
	if err != nil {
		return false, fmt.Errorf("cache upsert failed: %w", err)
	}
	return replaced, nil
}

// EvictUntil deletes rows in the given order until the total compressed size
// is at most targetBytes or no rows remain.
func (c *CacheTable) EvictUntil(ctx context.Context, order EvictionOrder, targetBytes int64) (EvictionOutcome, error) {
	orderBy, ok := evictionOrderSQL[order]
	if !ok {
		return EvictionOutcome{}, fmt.Errorf("unknown eviction order %d", order)
	}
	if targetBytes < 0 {
		targetBytes = 0
	}

	var out EvictionOutcome
	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		total, err := totalBytes(ctx, tx)
		if err != nil {
			return err
		}
		out.RemainingBytes = total
		if total <= targetBytes {
			return nil
		}

		type victim struct {
			key, analysisType, analyzer string
			cost, size, uncompressed    int64
		}
		var victims []victim

		rows, err := tx.QueryContext(ctx, `
			SELECT cache_key, analysis_type, analyzer_identity, cost_hint, compressed_size, uncompressed_size
			FROM analysis_cache ORDER BY `+orderBy)
		if err != nil {
			return err
		}
		remaining := total
		for remaining > targetBytes && rows.Next() {
			var v victim
			if err := rows.Scan(&v.key, &v.analysisType, &v.analyzer, &v.cost, &v.size, &v.uncompressed); err != nil {
				rows.Close()
				return err
			}
			victims = append(victims, v)
			remaining -= v.size
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, v := range victims {
			if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_cache WHERE cache_key = ?`, v.key); err != nil {
				return err
			}
			err := adjustRollup(ctx, tx, v.analysisType, v.analyzer, Rollup{
				Entries:           -1,
				CostSum:           -v.cost,
				CompressedBytes:   -v.size,
				UncompressedBytes: -v.uncompressed,
			})
			if err != nil {
				return err
			}
			out.Removed++
			out.FreedBytes += v.size
		}
		out.RemainingBytes = total - out.FreedBytes
		return nil
	})
	if err != nil {
		return EvictionOutcome{}, fmt.Errorf("cache eviction failed: %w", err)
	}
	return out, nil
}

// DeleteByType removes every row of one analysis type and returns the count
func (c *CacheTable) DeleteByType(ctx context.Context, analysisType string) (int64, error) {
	var removed int64
	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT analyzer_identity, COUNT(*), COALESCE(SUM(cost_hint), 0),
				COALESCE(SUM(compressed_size), 0), COALESCE(SUM(uncompressed_size), 0)
			FROM analysis_cache WHERE analysis_type = ?
			GROUP BY analyzer_identity
		`, analysisType)
		if err != nil {
			return err
		}
		var groups []Rollup
		for rows.Next() {
			var g Rollup
			if err := rows.Scan(&g.Value, &g.Entries, &g.CostSum, &g.CompressedBytes, &g.UncompressedBytes); err != nil {
				rows.Close()
				return err
			}
			groups = append(groups, g)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		res, err := tx.ExecContext(ctx, `DELETE FROM analysis_cache WHERE analysis_type = ?`, analysisType)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}

		for _, g := range groups {
			if err := adjustRollup(ctx, tx, analysisType, g.Value, negate(g)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache clear failed: %w", err)
	}
	return removed, nil
}

// DeleteAll removes every row and resets the rollup
func (c *CacheTable) DeleteAll(ctx context.Context) (int64, error) {
	var removed int64
	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM analysis_cache`)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM cache_rollup`)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("cache clear failed: %w", err)
	}
	return removed, nil
}

// Rollups returns every aggregate row
func (c *CacheTable) Rollups(ctx context.Context) ([]Rollup, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT dimension, value, entries, cost_sum, compressed_bytes, uncompressed_bytes
		FROM cache_rollup ORDER BY dimension, value
	`)
	if err != nil {
		return nil, fmt.Errorf("cache stats failed: %w", err)
	}
	defer rows.Close()

	var out []Rollup
	for rows.Next() {
		var r Rollup
		if err := rows.Scan(&r.Dimension, &r.Value, &r.Entries, &r.CostSum, &r.CompressedBytes, &r.UncompressedBytes); err != nil {
			return nil, fmt.Errorf("cache stats failed: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache stats failed: %w", err)
	}
	return out, nil
}

func totalBytes(ctx context.Context, tx *sql.Tx) (int64, error) {
	var total int64
	err := tx.QueryRowContext(ctx, `
		SELECT compressed_bytes FROM cache_rollup WHERE dimension = ? AND value = ''
	`, RollupTotal).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return total, err
}

// adjustRollup adds delta to the total, per-type and per-analyzer aggregates
// and drops breakdown rows that reach zero entries.
func adjustRollup(ctx context.Context, tx *sql.Tx, analysisType, analyzer string, delta Rollup) error {
	targets := [][2]string{
		{RollupTotal, ""},
		{RollupType, analysisType},
		{RollupAnalyzer, analyzer},
	}
	for _, t := range targets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cache_rollup (dimension, value, entries, cost_sum, compressed_bytes, uncompressed_bytes)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(dimension, value) DO UPDATE SET
				entries = entries + excluded.entries,
				cost_sum = cost_sum + excluded.cost_sum,
				compressed_bytes = compressed_bytes + excluded.compressed_bytes,
				uncompressed_bytes = uncompressed_bytes + excluded.uncompressed_bytes
		`, t[0], t[1], delta.Entries, delta.CostSum, delta.CompressedBytes, delta.UncompressedBytes)
		if err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM cache_rollup WHERE dimension != ? AND entries <= 0`, RollupTotal)
	return err
}

func negate(r Rollup) Rollup {
	return Rollup{
		Dimension:         r.Dimension,
		Value:             r.Value,
		Entries:           -r.Entries,
		CostSum:           -r.CostSum,
		CompressedBytes:   -r.CompressedBytes,
		UncompressedBytes: -r.UncompressedBytes,
	}
}
