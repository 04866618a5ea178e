package main

import (
	"fmt"
	"strings"
	"time"

	"repowatch/internal/scheduler"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <repo>",
	Short: "Scan a repository now",
	Long: `Run one detection and analysis pass for a repository immediately,
regardless of its schedule or auto-scan setting.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var scanFormat string

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanFormat, "format", "human", "Output format (human, json, yaml)")
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(scanFormat)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := newContext()
	repo, err := a.repos.Find(ctx, args[0])
	if err != nil {
		return err
	}

	result, scanErr := a.scheduler.ScanNow(ctx, repo.ID)
	if result != nil {
		var out string
		switch format {
		case FormatJSON:
			out, err = formatJSON(result)
		case FormatYAML:
			out, err = formatYAML(result)
		default:
			out = formatScanHuman(result)
		}
		if err != nil {
			return err
		}
		fmt.Println(out)
	}
	return scanErr
}

func formatScanHuman(r *scheduler.ScanResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scanned %s in %s\n", r.Name, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  Head: %s\n", shortHash(r.Head))
	fmt.Fprintf(&b, "  Changed files: %d\n", r.Files)
	if r.Fallback {
		b.WriteString("  Committed changes taken from the bounded history window\n")
	}
	if r.Degraded {
		b.WriteString("  Warning: change detection was incomplete, see logs\n")
	}
	if rep := r.Report; rep != nil {
		fmt.Fprintf(&b, "  Cache hits: %d\n", rep.Hits)
		fmt.Fprintf(&b, "  Analyzed: %d\n", rep.Analyzed)
		skipped := rep.Unreadable + rep.Oversized
		if skipped > 0 {
			fmt.Fprintf(&b, "  Skipped: %d (unreadable %d, oversized %d)\n", skipped, rep.Unreadable, rep.Oversized)
		}
		if rep.AnalyzerFailed > 0 {
			fmt.Fprintf(&b, "  Analyzer failures: %d\n", rep.AnalyzerFailed)
		}
		if rep.StoreFailed > 0 {
			fmt.Fprintf(&b, "  Cache write failures: %d\n", rep.StoreFailed)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
