package analysiscache

// Breakdown aggregates entries sharing one analysis type or analyzer.
type Breakdown struct {
	Entries           int64 `json:"entries" yaml:"entries"`
	CostSum           int64 `json:"costSum" yaml:"costSum"`
	CompressedBytes   int64 `json:"compressedBytes" yaml:"compressedBytes"`
	UncompressedBytes int64 `json:"uncompressedBytes" yaml:"uncompressedBytes"`
}

// Stats is a snapshot of the cache. Hits and misses count lookups made by
// this process since start or the last ClearAll.
type Stats struct {
	Breakdown  `yaml:",inline"`
	Hits       int64                `json:"hits" yaml:"hits"`
	Misses     int64                `json:"misses" yaml:"misses"`
	HitRate    float64              `json:"hitRate" yaml:"hitRate"`
	ByType     map[string]Breakdown `json:"byType" yaml:"byType"`
	ByAnalyzer map[string]Breakdown `json:"byAnalyzer" yaml:"byAnalyzer"`
}

// CompressionRatio returns uncompressed/compressed bytes, or 0 when empty.
func (s *Stats) CompressionRatio() float64 {
	if s.CompressedBytes == 0 {
		return 0
	}
	return float64(s.UncompressedBytes) / float64(s.CompressedBytes)
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// EvictResult reports the outcome of Evict.
type EvictResult struct {
	Policy         Policy `json:"policy"`
	TargetBytes    int64  `json:"targetBytes"`
	Removed        int64  `json:"removed"`
	FreedBytes     int64  `json:"freedBytes"`
	RemainingBytes int64  `json:"remainingBytes"`
}
