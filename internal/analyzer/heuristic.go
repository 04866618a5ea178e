package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	longLineThreshold = 120
	maxLineBytes      = 16 << 20
)

// declaration matches common function declaration openers across the
// supported languages.
var declaration = regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:func|fn|def|function|fun)\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`)

var todoMarker = regexp.MustCompile(`\b(?:TODO|FIXME|XXX)\b`)

// Heuristic is a dependency-free provider that measures file layout with
// line-level heuristics.
type Heuristic struct {
	profile Profile
}

// NewHeuristic creates the heuristic provider.
func NewHeuristic(profile Profile) *Heuristic {
	return &Heuristic{profile: profile}
}

// Profile returns the provider profile.
func (h *Heuristic) Profile() Profile {
	return h.profile
}

// Analyze counts lines by kind and lists declared functions.
func (h *Heuristic) Analyze(ctx context.Context, path string, content []byte) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, failed(path, err)
	}
	if bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content) {
		return nil, failed(path, fmt.Errorf("content is not text"))
	}

	lang := languageName(path)
	prefixes := commentPrefixes(lang)

	res := &Result{Language: lang}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	inBlock := false
	for scanner.Scan() {
		line := scanner.Text()
		res.Lines++
		if utf8.RuneCountInString(line) > longLineThreshold {
			res.LongLines++
		}
		if todoMarker.MatchString(line) {
			res.Todos++
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			res.BlankLines++
		case inBlock:
			res.CommentLines++
			inBlock = !strings.Contains(trimmed, "*/")
		case strings.HasPrefix(trimmed, "/*"):
			res.CommentLines++
			inBlock = !strings.Contains(trimmed, "*/")
		case hasAnyPrefix(trimmed, prefixes):
			res.CommentLines++
		default:
			res.CodeLines++
			if m := declaration.FindStringSubmatch(line); m != nil {
				res.Functions = append(res.Functions, Function{
					Name:      m[1],
					StartLine: res.Lines,
					EndLine:   res.Lines,
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, failed(path, err)
	}

	res.Summary = fmt.Sprintf("%s: %d lines (%d code, %d comment, %d blank), %d functions",
		lang, res.Lines, res.CodeLines, res.CommentLines, res.BlankLines, len(res.Functions))

	return &Output{Result: res, CostHint: estimateTokens(content)}, nil
}

// estimateTokens approximates model tokens as one per four bytes.
func estimateTokens(content []byte) int64 {
	return int64((len(content) + 3) / 4)
}

func languageName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".rs":
		return "rust"
	case ".py", ".pyw":
		return "python"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".ts", ".tsx", ".mts", ".cts":
		return "typescript"
	case ".java":
		return "java"
	case ".kt", ".kts":
		return "kotlin"
	case ".c", ".h":
		return "c"
	case ".cpp", ".hpp", ".cc":
		return "cpp"
	case ".cs":
		return "csharp"
	case ".rb":
		return "ruby"
	case ".php":
		return "php"
	case ".swift":
		return "swift"
	case ".scala":
		return "scala"
	default:
		return "text"
	}
}

func commentPrefixes(lang string) []string {
	switch lang {
	case "python", "ruby":
		return []string{"#"}
	case "php":
		return []string{"//", "#"}
	case "text":
		return []string{"#", "//"}
	default:
		return []string{"//"}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
