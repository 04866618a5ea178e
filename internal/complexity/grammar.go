//go:build cgo

package complexity

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// grammar describes which syntax nodes matter for one language.
type grammar struct {
	language  func() *sitter.Language
	functions set // function-like nodes, one metrics entry each
	decisions set // nodes adding a path through the code
	nesting   set // nodes that deepen nesting for cognitive weight

	// booleanOps holds operator tokens counted as decisions inside
	// binary expressions.
	booleanOps set
}

type set map[string]struct{}

func newSet(items ...string) set {
	s := make(set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s set) has(item string) bool {
	_, ok := s[item]
	return ok
}

var cStyleBoolean = newSet("&&", "||")

var jsGrammar = grammar{
	language: javascript.GetLanguage,
	functions: newSet("function_declaration", "function_expression", "arrow_function",
		"method_definition", "generator_function_declaration"),
	decisions: newSet("if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_case", "catch_clause", "ternary_expression",
		"binary_expression", "optional_chain_expression"),
	nesting: newSet("if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_statement", "try_statement", "arrow_function", "function_expression"),
	booleanOps: cStyleBoolean,
}

var grammars = map[Language]grammar{
	LangGo: {
		language:  golang.GetLanguage,
		functions: newSet("function_declaration", "method_declaration", "func_literal"),
		decisions: newSet("if_statement", "for_statement", "range_clause", "expression_case",
			"type_case", "select_statement", "communication_case", "binary_expression"),
		nesting: newSet("if_statement", "for_statement", "select_statement",
			"type_switch_statement", "expression_switch_statement", "func_literal"),
		booleanOps: cStyleBoolean,
	},
	LangJavaScript: jsGrammar,
	LangTypeScript: withLanguage(jsGrammar, typescript.GetLanguage),
	LangTSX:        withLanguage(jsGrammar, tsx.GetLanguage),
	LangPython: {
		language:  python.GetLanguage,
		functions: newSet("function_definition", "lambda"),
		decisions: newSet("if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "with_statement", "boolean_operator", "conditional_expression",
			"list_comprehension", "dictionary_comprehension", "set_comprehension", "generator_expression"),
		nesting: newSet("if_statement", "for_statement", "while_statement", "try_statement",
			"with_statement", "lambda", "list_comprehension", "dictionary_comprehension",
			"set_comprehension", "generator_expression"),
		booleanOps: newSet("and", "or"),
	},
	LangRust: {
		language:  rust.GetLanguage,
		functions: newSet("function_item", "closure_expression"),
		decisions: newSet("if_expression", "match_expression", "match_arm", "while_expression",
			"loop_expression", "for_expression", "binary_expression"),
		nesting: newSet("if_expression", "match_expression", "while_expression",
			"loop_expression", "for_expression", "closure_expression"),
		booleanOps: cStyleBoolean,
	},
	LangJava: {
		language:  java.GetLanguage,
		functions: newSet("method_declaration", "constructor_declaration", "lambda_expression"),
		decisions: newSet("if_statement", "for_statement", "enhanced_for_statement", "while_statement",
			"do_statement", "switch_expression", "switch_block_statement_group", "catch_clause",
			"ternary_expression", "binary_expression"),
		nesting: newSet("if_statement", "for_statement", "enhanced_for_statement", "while_statement",
			"do_statement", "switch_expression", "try_statement", "lambda_expression"),
		booleanOps: cStyleBoolean,
	},
	LangKotlin: {
		language:  kotlin.GetLanguage,
		functions: newSet("function_declaration", "lambda_literal", "anonymous_function"),
		decisions: newSet("if_expression", "when_expression", "when_entry", "for_statement",
			"while_statement", "do_while_statement", "catch_block", "binary_expression", "elvis_expression"),
		nesting: newSet("if_expression", "when_expression", "for_statement", "while_statement",
			"do_while_statement", "try_expression", "lambda_literal"),
		booleanOps: cStyleBoolean,
	},
}

func withLanguage(g grammar, language func() *sitter.Language) grammar {
	g.language = language
	return g
}

func grammarFor(lang Language) (grammar, error) {
	g, ok := grammars[lang]
	if !ok {
		return grammar{}, fmt.Errorf("unsupported language: %s", lang)
	}
	return g, nil
}

// parse parses source with a parser owned by this call. tree-sitter parsers
// are not safe for concurrent use; the caller must Close the returned tree.
func parse(ctx context.Context, source []byte, g grammar) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(g.language())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree, nil
}

// isDecision reports whether node adds a path. Binary expressions count
// only for boolean operators.
func (g grammar) isDecision(node *sitter.Node, source []byte) bool {
	nodeType := node.Type()
	if !g.decisions.has(nodeType) {
		return false
	}
	if nodeType != "binary_expression" && nodeType != "boolean_operator" {
		return true
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if g.booleanOps.has(child.Type()) || g.booleanOps.has(child.Content(source)) {
			return true
		}
	}
	return false
}
