// Package complexity computes structural metrics for source code via
// tree-sitter. Results describe content only and never carry a file path,
// so identical sources always produce identical metrics.
package complexity

import (
	"path/filepath"
	"strings"
)

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// FunctionMetrics contains complexity metrics for a single function or method.
type FunctionMetrics struct {
	Name       string `json:"name"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	Lines      int    `json:"lines"`
	Cyclomatic int    `json:"cyclomatic"` // decision points + 1
	Cognitive  int    `json:"cognitive"`  // decisions weighted by nesting depth
}

// FileMetrics contains complexity metrics for one source buffer.
type FileMetrics struct {
	Language          Language          `json:"language"`
	Functions         []FunctionMetrics `json:"functions"`
	TotalCyclomatic   int               `json:"totalCyclomatic"`
	TotalCognitive    int               `json:"totalCognitive"`
	AverageCyclomatic float64           `json:"averageCyclomatic"`
	AverageCognitive  float64           `json:"averageCognitive"`
	MaxCyclomatic     int               `json:"maxCyclomatic"`
	MaxCognitive      int               `json:"maxCognitive"`
	FunctionCount     int               `json:"functionCount"`
}

// Aggregate computes file totals from the function results.
func (fm *FileMetrics) Aggregate() {
	fm.FunctionCount = len(fm.Functions)
	fm.TotalCyclomatic, fm.TotalCognitive = 0, 0
	fm.MaxCyclomatic, fm.MaxCognitive = 0, 0
	fm.AverageCyclomatic, fm.AverageCognitive = 0, 0
	if fm.FunctionCount == 0 {
		return
	}

	for _, f := range fm.Functions {
		fm.TotalCyclomatic += f.Cyclomatic
		fm.TotalCognitive += f.Cognitive
		fm.MaxCyclomatic = max(fm.MaxCyclomatic, f.Cyclomatic)
		fm.MaxCognitive = max(fm.MaxCognitive, f.Cognitive)
	}

	fm.AverageCyclomatic = float64(fm.TotalCyclomatic) / float64(fm.FunctionCount)
	fm.AverageCognitive = float64(fm.TotalCognitive) / float64(fm.FunctionCount)
}

// LanguageFromExtension returns the Language for a file extension.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// LanguageForPath detects the language from a file name.
func LanguageForPath(path string) (Language, bool) {
	return LanguageFromExtension(filepath.Ext(path))
}
