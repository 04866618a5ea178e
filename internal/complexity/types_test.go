package complexity

import "testing"

func TestLanguageFromExtension(t *testing.T) {
	tests := []struct {
		ext      string
		expected Language
		ok       bool
	}{
		{".go", LangGo, true},
		{".js", LangJavaScript, true},
		{".jsx", LangJavaScript, true},
		{".mjs", LangJavaScript, true},
		{".ts", LangTypeScript, true},
		{".tsx", LangTSX, true},
		{".py", LangPython, true},
		{".rs", LangRust, true},
		{".RS", LangRust, true},
		{".java", LangJava, true},
		{".kts", LangKotlin, true},
		{".txt", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		lang, ok := LanguageFromExtension(tt.ext)
		if ok != tt.ok || lang != tt.expected {
			t.Errorf("LanguageFromExtension(%q) = (%q, %v), want (%q, %v)", tt.ext, lang, ok, tt.expected, tt.ok)
		}
	}

	if lang, ok := LanguageForPath("src/lib/mod.rs"); !ok || lang != LangRust {
		t.Errorf("LanguageForPath = (%q, %v)", lang, ok)
	}
}

func TestFileMetrics_Aggregate(t *testing.T) {
	fm := &FileMetrics{
		Functions: []FunctionMetrics{
			{Name: "a", Cyclomatic: 5, Cognitive: 10},
			{Name: "b", Cyclomatic: 3, Cognitive: 4},
			{Name: "c", Cyclomatic: 8, Cognitive: 15},
		},
	}

	fm.Aggregate()
	// Running twice must not double the totals.
	fm.Aggregate()

	if fm.FunctionCount != 3 {
		t.Errorf("FunctionCount = %d, want 3", fm.FunctionCount)
	}
	if fm.TotalCyclomatic != 16 || fm.TotalCognitive != 29 {
		t.Errorf("totals = %d/%d, want 16/29", fm.TotalCyclomatic, fm.TotalCognitive)
	}
	if fm.MaxCyclomatic != 8 || fm.MaxCognitive != 15 {
		t.Errorf("max = %d/%d, want 8/15", fm.MaxCyclomatic, fm.MaxCognitive)
	}
	if fm.AverageCyclomatic < 5.33 || fm.AverageCyclomatic > 5.34 {
		t.Errorf("AverageCyclomatic = %f", fm.AverageCyclomatic)
	}

	empty := &FileMetrics{}
	empty.Aggregate()
	if empty.FunctionCount != 0 || empty.AverageCognitive != 0 {
		t.Errorf("empty aggregate = %+v", empty)
	}
}
