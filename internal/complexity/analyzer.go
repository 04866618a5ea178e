//go:build cgo

package complexity

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// Analyzer computes complexity metrics for source buffers. It is stateless
// and safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer creates a new complexity analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeSource parses source as lang and measures every function in it.
func (a *Analyzer) AnalyzeSource(ctx context.Context, source []byte, lang Language) (*FileMetrics, error) {
	g, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	tree, err := parse(ctx, source, g)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	fm := &FileMetrics{
		Language:  lang,
		Functions: make([]FunctionMetrics, 0),
	}
	for _, fn := range findNodes(tree.RootNode(), g.functions) {
		fm.Functions = append(fm.Functions, analyzeFunction(fn, source, lang, g))
	}

	fm.Aggregate()
	return fm, nil
}

// analyzeFunction computes complexity for a single function.
func analyzeFunction(node *sitter.Node, source []byte, lang Language, g grammar) FunctionMetrics {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	cyclomatic := 1
	for _, dn := range findNodes(node, g.decisions) {
		if g.isDecision(dn, source) {
			cyclomatic++
		}
	}

	return FunctionMetrics{
		Name:       functionName(node, source, lang),
		StartLine:  startLine,
		EndLine:    endLine,
		Lines:      endLine - startLine + 1,
		Cyclomatic: cyclomatic,
		Cognitive:  cognitive(node, source, g, 0),
	}
}

// functionName extracts the declared name, or a placeholder for closures.
func functionName(node *sitter.Node, source []byte, lang Language) string {
	var nameNode *sitter.Node

	switch lang {
	case LangKotlin:
		// Kotlin function_declaration has simple_identifier as name
		nameNode = firstChildOfType(node, "simple_identifier")
	case LangGo:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = firstChildOfType(node, "identifier")
		}
	default:
		nameNode = node.ChildByFieldName("name")
	}

	if nameNode != nil {
		return nameNode.Content(source)
	}

	switch node.Type() {
	case "arrow_function", "func_literal", "lambda", "lambda_expression",
		"closure_expression", "lambda_literal", "anonymous_function", "function_expression":
		return "<anonymous>"
	}
	return "<unknown>"
}

func firstChildOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// cognitive weights each decision by the nesting depth it appears at.
func cognitive(node *sitter.Node, source []byte, g grammar, depth int) int {
	total := 0
	if g.isDecision(node, source) {
		total += 1 + depth
	}

	childDepth := depth
	if g.nesting.has(node.Type()) {
		childDepth++
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			total += cognitive(child, source, g, childDepth)
		}
	}
	return total
}

// findNodes collects every node in the subtree whose type is in types.
func findNodes(root *sitter.Node, types set) []*sitter.Node {
	var result []*sitter.Node

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if types.has(node.Type()) {
			result = append(result, node)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	walk(root)
	return result
}

// IsAvailable reports whether tree-sitter analysis is compiled in.
func IsAvailable() bool {
	return true
}
