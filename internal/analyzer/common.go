package analyzer

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// parseTree parses content with a fresh parser. Parsers are not safe for
// concurrent use and the detector runs files in parallel, so each call
// gets its own.
func parseTree(lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	return p.ParseCtx(context.Background(), nil, content)
}

// walk visits node and its descendants in document order. fn returns false
// to prune the subtree.
func walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), fn)
	}
}

// lineOf returns the 1-based source line of a node.
func lineOf(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// isPublicName follows the Python/underscore convention.
func isPublicName(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}

// fieldText returns the text of a named child field, or "".
func fieldText(node *sitter.Node, field string, content []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(content)
}
