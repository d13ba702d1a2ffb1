// Package pyann inspects Python type-annotation expressions structurally.
// Annotations arrive from the catalog as expression text; pyann parses them
// with tree-sitter's Python grammar and answers the two shape questions the
// engine asks: is this an Annotated[...] wrapper, and does it embed a
// pattern(subkind) marker call.
package pyann

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser wraps a tree-sitter parser configured for Python. Parsers are not
// safe for concurrent use; each worker session owns one.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a Python-configured parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// IsAnnotated reports whether expr is an Annotated[...] wrapper — a
// subscript of a bare Annotated or a dotted ...Annotated name. Unparseable
// or empty input is simply not annotated.
func (p *Parser) IsAnnotated(ctx context.Context, expr string) bool {
	src := []byte(expr)
	node, ok := p.expression(ctx, src)
	if !ok {
		return false
	}
	_, ok = annotatedArgs(node, src)
	return ok
}

// ParametricSubkind extracts the subkind from an annotation with the exact
// shape Annotated[T, pattern(subkind)]: a two-argument Annotated wrapper
// whose second argument is a one-argument call of pattern on a bare
// identifier. Any other shape yields ("", false).
func (p *Parser) ParametricSubkind(ctx context.Context, expr, pattern string) (string, bool) {
	src := []byte(expr)
	node, ok := p.expression(ctx, src)
	if !ok {
		return "", false
	}
	args, ok := annotatedArgs(node, src)
	if !ok || len(args) != 2 {
		return "", false
	}

	call := args[1]
	if call.Type() != "call" {
		return "", false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Content(src) != pattern {
		return "", false
	}
	arglist := call.ChildByFieldName("arguments")
	if arglist == nil || arglist.NamedChildCount() != 1 {
		return "", false
	}
	arg := arglist.NamedChild(0)
	if arg.Type() != "identifier" {
		return "", false
	}
	return arg.Content(src), true
}

// expression parses src as a module holding a single expression statement
// and returns the expression node. Anything else — empty input, syntax
// errors, multiple statements — returns false.
func (p *Parser) expression(ctx context.Context, src []byte) (*sitter.Node, bool) {
	if strings.TrimSpace(string(src)) == "" {
		return nil, false
	}
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return nil, false
	}
	root := tree.RootNode()
	if root.HasError() || root.NamedChildCount() != 1 {
		return nil, false
	}
	stmt := root.NamedChild(0)
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return nil, false
	}
	return stmt.NamedChild(0), true
}

// annotatedArgs returns the subscript arguments of an Annotated[...] node.
// The subscript's first named child is the subscripted value; the rest are
// the bracketed arguments in source order.
func annotatedArgs(node *sitter.Node, src []byte) ([]*sitter.Node, bool) {
	if node.Type() != "subscript" {
		return nil, false
	}
	n := int(node.NamedChildCount())
	if n < 1 || !isAnnotatedName(node.NamedChild(0), src) {
		return nil, false
	}
	args := make([]*sitter.Node, 0, n-1)
	for i := 1; i < n; i++ {
		args = append(args, node.NamedChild(i))
	}
	return args, true
}

func isAnnotatedName(node *sitter.Node, src []byte) bool {
	switch node.Type() {
	case "identifier":
		return node.Content(src) == "Annotated"
	case "attribute":
		attr := node.ChildByFieldName("attribute")
		return attr != nil && attr.Content(src) == "Annotated"
	}
	return false
}
