//go:build cgo

package analyzer

import (
	"context"
	"testing"

	"repowatch/internal/errors"
)

func TestStructural_Analyze(t *testing.T) {
	profile, _ := DefaultProfile(ProviderComplexity)
	s, err := NewStructural(profile)
	if err != nil {
		t.Fatalf("NewStructural failed: %v", err)
	}

	src := []byte(`package main

func branchy(a, b bool) int {
	if a && b {
		return 1
	}
	return 0
}
`)
	out, err := s.Analyze(context.Background(), "/repo/x/branchy.go", src)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	res := out.Result
	if res.Language != "go" || res.Lines != 8 {
		t.Errorf("language=%q lines=%d", res.Language, res.Lines)
	}
	if len(res.Functions) != 1 || res.Functions[0].Name != "branchy" || res.Functions[0].Cyclomatic != 3 {
		t.Errorf("functions = %+v", res.Functions)
	}
	if out.CostHint <= 0 {
		t.Errorf("CostHint = %d, want > 0", out.CostHint)
	}
}

func TestStructural_UnsupportedFile(t *testing.T) {
	profile, _ := DefaultProfile(ProviderComplexity)
	s, err := NewStructural(profile)
	if err != nil {
		t.Fatalf("NewStructural failed: %v", err)
	}

	_, err = s.Analyze(context.Background(), "notes.txt", []byte("hello"))
	if !errors.Is(err, errors.AnalyzerFailed) {
		t.Errorf("error = %v, want ANALYZER_FAILED", err)
	}
}
