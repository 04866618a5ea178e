package analyzer

// Result is the cached analysis of one file's content. It is encoded with
// CBOR, so field tags define the stored shape: bump the profile's schema
// version when changing them.
type Result struct {
	Language     string     `cbor:"language" json:"language"`
	Lines        int        `cbor:"lines" json:"lines"`
	CodeLines    int        `cbor:"code_lines" json:"codeLines"`
	CommentLines int        `cbor:"comment_lines" json:"commentLines"`
	BlankLines   int        `cbor:"blank_lines" json:"blankLines"`
	Todos        int        `cbor:"todos,omitempty" json:"todos,omitempty"`
	LongLines    int        `cbor:"long_lines,omitempty" json:"longLines,omitempty"`
	Functions    []Function `cbor:"functions,omitempty" json:"functions,omitempty"`
	Summary      string     `cbor:"summary" json:"summary"`
}

// Function is a per-function finding.
type Function struct {
	Name       string `cbor:"name" json:"name"`
	StartLine  int    `cbor:"start_line" json:"startLine"`
	EndLine    int    `cbor:"end_line" json:"endLine"`
	Cyclomatic int    `cbor:"cyclomatic,omitempty" json:"cyclomatic,omitempty"`
	Cognitive  int    `cbor:"cognitive,omitempty" json:"cognitive,omitempty"`
}
