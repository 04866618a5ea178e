package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"repowatch/internal/analysiscache"
	"repowatch/internal/errors"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the analysis cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and breakdowns",
	Long: `Show entry counts, sizes and cost broken down by analysis type and
analyzer.

Hits and misses are counted in memory by the process doing the lookups, so
a separate 'cache stats' run reports none even while 'repowatch serve' is
running. 'serve' logs its hit counts per scan batch.`,
	RunE: runCacheStats,
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Evict entries until the cache fits a target size",
	Long: `Evict entries in policy order until the total compressed size is at
or below --target.

Policies:
  lru             least recently accessed first
  oldest          oldest created first
  largest         largest compressed payload first
  most-expensive  highest cost hint first`,
	RunE: runCacheEvict,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached results",
	Long: `Delete every result of one analysis type (--type), or the whole
cache (--all).`,
	RunE: runCacheClear,
}

var (
	cacheStatsFormat string
	cacheEvictPolicy string
	cacheEvictTarget string
	cacheClearType   string
	cacheClearAll    bool
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheStatsCmd.Flags().StringVar(&cacheStatsFormat, "format", "human", "Output format (human, json, yaml)")
	cacheEvictCmd.Flags().StringVar(&cacheEvictPolicy, "policy", "", "Eviction policy (default from config)")
	cacheEvictCmd.Flags().StringVar(&cacheEvictTarget, "target", "", "Target size, e.g. 500MB (required)")
	cacheClearCmd.Flags().StringVar(&cacheClearType, "type", "", "Analysis type to clear")
	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "Clear every entry")
	_ = cacheEvictCmd.MarkFlagRequired("target")
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(cacheStatsFormat)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.cache.Stats(newContext())
	if err != nil {
		return err
	}

	var out string
	switch format {
	case FormatJSON:
		out, err = formatJSON(stats)
	case FormatYAML:
		out, err = formatYAML(stats)
	default:
		out = formatStatsHuman(stats)
	}
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func formatStatsHuman(s *analysiscache.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entries: %s\n", humanize.Comma(s.Entries))
	fmt.Fprintf(&b, "Size: %s compressed, %s raw", formatBytes(s.CompressedBytes), formatBytes(s.UncompressedBytes))
	if ratio := s.CompressionRatio(); ratio > 0 {
		fmt.Fprintf(&b, " (%.1fx)", ratio)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Cost: %s\n", humanize.Comma(s.CostSum))
	if s.Hits+s.Misses == 0 {
		b.WriteString("Hit rate: n/a (lookups are counted by the process that makes them)\n")
	} else {
		fmt.Fprintf(&b, "Hit rate: %.1f%% (%s hits, %s misses)\n",
			s.HitRate*100, humanize.Comma(s.Hits), humanize.Comma(s.Misses))
	}

	writeBreakdown(&b, "By analysis type", s.ByType)
	writeBreakdown(&b, "By analyzer", s.ByAnalyzer)
	return strings.TrimRight(b.String(), "\n")
}

func writeBreakdown(b *strings.Builder, title string, m map[string]analysiscache.Breakdown) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(b, "\n%s:\n", title)
	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	for _, name := range names {
		bd := m[name]
		fmt.Fprintf(w, "  %s\t%s entries\t%s\tcost %s\n",
			name, humanize.Comma(bd.Entries), formatBytes(bd.CompressedBytes), humanize.Comma(bd.CostSum))
	}
	_ = w.Flush()
}

func runCacheEvict(cmd *cobra.Command, args []string) error {
	target, err := humanize.ParseBytes(cacheEvictTarget)
	if err != nil {
		return errors.New(errors.InvalidArgument, fmt.Sprintf("invalid --target %q", cacheEvictTarget), err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	name := cacheEvictPolicy
	if name == "" {
		name = a.config.Cache.EvictionPolicy
	}
	policy, err := analysiscache.ParsePolicy(name)
	if err != nil {
		return errors.New(errors.InvalidArgument, err.Error(), nil)
	}

	result, err := a.cache.Evict(newContext(), policy, int64(target))
	if err != nil {
		return err
	}
	fmt.Printf("Evicted %s entries (%s) using %s\n",
		humanize.Comma(result.Removed), formatBytes(result.FreedBytes), result.Policy)
	fmt.Printf("Remaining: %s\n", formatBytes(result.RemainingBytes))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if cacheClearAll == (cacheClearType != "") {
		return errors.New(errors.InvalidArgument, "specify exactly one of --type or --all", nil)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := newContext()
	var removed int64
	if cacheClearAll {
		removed, err = a.cache.ClearAll(ctx)
	} else {
		removed, err = a.cache.Clear(ctx, cacheClearType)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Cleared %s entries\n", humanize.Comma(removed))
	return nil
}
