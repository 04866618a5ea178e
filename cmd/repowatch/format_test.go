package main

import (
	"strings"
	"testing"
	"time"

	"repowatch/internal/analysiscache"
	"repowatch/internal/gate"
	"repowatch/internal/scheduler"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"human", FormatHuman, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatJSONAndYAML(t *testing.T) {
	v := map[string]int{"entries": 3}

	js, err := formatJSON(v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js, `"entries": 3`) {
		t.Errorf("formatJSON = %q", js)
	}

	y, err := formatYAML(v)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(y) != "entries: 3" {
		t.Errorf("formatYAML = %q", y)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatBytes(-1); got != "-" {
		t.Errorf("formatBytes(-1) = %q", got)
	}
	if got := formatBytes(2000); got != "2.0 kB" {
		t.Errorf("formatBytes(2000) = %q", got)
	}
	if got := formatWhen(nil); got != "never" {
		t.Errorf("formatWhen(nil) = %q", got)
	}
	past := time.Now().Add(-3 * time.Hour)
	if got := formatWhen(&past); !strings.Contains(got, "ago") {
		t.Errorf("formatWhen(3h ago) = %q", got)
	}
	if got := shortHash(""); got != "-" {
		t.Errorf("shortHash(\"\") = %q", got)
	}
	if got := shortHash("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortHash = %q", got)
	}
}

func TestFormatScanHuman(t *testing.T) {
	r := &scheduler.ScanResult{
		Name:     "api",
		Head:     "0123456789abcdef0123",
		Files:    3,
		Degraded: true,
		Report:   &gate.Report{Files: 3, Hits: 1, Analyzed: 1, Oversized: 1},
		Duration: 1500 * time.Millisecond,
	}

	out := formatScanHuman(r)
	for _, want := range []string{
		"Scanned api in 1.5s",
		"Head: 0123456789ab",
		"Changed files: 3",
		"incomplete",
		"Cache hits: 1",
		"Skipped: 1 (unreadable 0, oversized 1)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("formatScanHuman() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Analyzer failures") {
		t.Errorf("formatScanHuman() reports zero analyzer failures:\n%s", out)
	}
}

func TestFormatStatsHuman_HitRate(t *testing.T) {
	fresh := &analysiscache.Stats{Breakdown: analysiscache.Breakdown{Entries: 2}}
	if out := formatStatsHuman(fresh); !strings.Contains(out, "Hit rate: n/a") {
		t.Errorf("formatStatsHuman() without lookups = %q", out)
	}

	served := &analysiscache.Stats{Hits: 3, Misses: 1, HitRate: 0.75}
	if out := formatStatsHuman(served); !strings.Contains(out, "Hit rate: 75.0% (3 hits, 1 misses)") {
		t.Errorf("formatStatsHuman() with lookups = %q", out)
	}
}
