package analyzer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// TypeScript analyzes TypeScript sources. Its grammar is a superset of the
// JavaScript one, so extraction is shared with the JS analyzer. package.json
// ownership stays with JavaScript. .tsx files need the separate TSX grammar;
// the plain TypeScript grammar turns JSX into ERROR nodes.
type TypeScript struct{}

// NewTypeScript creates the TypeScript analyzer.
func NewTypeScript() *TypeScript { return &TypeScript{} }

func (*TypeScript) Language() analysis.Language { return analysis.LangTypeScript }

func (*TypeScript) Extensions() []string { return []string{".ts", ".tsx"} }

func (*TypeScript) ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error) {
	lang := typescript.GetLanguage()
	if strings.EqualFold(filepath.Ext(filename), ".tsx") {
		lang = tsx.GetLanguage()
	}
	tree, err := parseTree(lang, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()
	return ecmaEntryPoints(tree.RootNode(), content, filename), nil
}

func (*TypeScript) ParseManifest(analysis.ManifestKind, []byte) ([]analysis.DependencyDeclaration, error) {
	return nil, nil
}
