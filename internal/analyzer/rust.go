package analyzer

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// Rust analyzes Rust sources and Cargo.toml.
type Rust struct{}

// NewRust creates the Rust analyzer.
func NewRust() *Rust { return &Rust{} }

func (*Rust) Language() analysis.Language { return analysis.LangRust }

func (*Rust) Extensions() []string { return []string{".rs"} }

// ParseEntryPoints extracts fn main, attribute-routed handlers, public
// functions, and public structs.
func (*Rust) ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error) {
	tree, err := parseTree(rust.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	var eps []analysis.EntryPoint
	walk(tree.RootNode(), func(node *sitter.Node) bool {
		switch node.Type() {
		case "function_item":
			name := fieldText(node, "name", content)
			if name == "" {
				return false
			}
			if framework, ok := rustRouteAttribute(node, content); ok {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindRoute, Name: name,
					File: filename, Line: lineOf(node), Framework: framework,
				})
				return false
			}
			if name == "main" || rustIsPub(node, content) {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindFunction, Name: name,
					File: filename, Line: lineOf(node),
				})
			}
			return false

		case "struct_item":
			name := fieldText(node, "name", content)
			if name != "" && rustIsPub(node, content) {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindClass, Name: name, File: filename, Line: lineOf(node),
				})
			}
			return false
		}
		return true
	})
	return eps, nil
}

func rustIsPub(node *sitter.Node, content []byte) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "visibility_modifier" {
			return strings.HasPrefix(node.Child(i).Content(content), "pub")
		}
	}
	return false
}

// rustRouteAttribute checks preceding attribute items for Rocket or Actix
// route macros such as #[get("/path")].
func rustRouteAttribute(fn *sitter.Node, content []byte) (string, bool) {
	for prev := fn.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Type() != "attribute_item" {
			break
		}
		text := prev.Content(content)
		for _, verb := range []string{"get", "post", "put", "delete", "patch", "route"} {
			if strings.Contains(text, verb+"(\"") {
				if strings.Contains(text, "actix") {
					return "Actix", true
				}
				return "Rocket", true
			}
		}
	}
	return "", false
}

// ParseManifest handles Cargo.toml's [dependencies] table.
func (*Rust) ParseManifest(kind analysis.ManifestKind, content []byte) ([]analysis.DependencyDeclaration, error) {
	if kind != analysis.ManifestCargo {
		return nil, nil
	}

	var deps []analysis.DependencyDeclaration
	inDeps := false
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			inDeps = trimmed == "[dependencies]" || strings.HasPrefix(trimmed, "[dependencies.")
			if name, ok := strings.CutPrefix(trimmed, "[dependencies."); ok {
				deps = append(deps, analysis.DependencyDeclaration{
					Name: strings.TrimSuffix(name, "]"), Manifest: analysis.ManifestCargo,
				})
				inDeps = false
			}
			continue
		}
		if !inDeps || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		name, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		version := strings.Trim(strings.TrimSpace(value), `"`)
		if strings.HasPrefix(version, "{") {
			// Inline table: pull the version key if present.
			version = ""
			for _, quoted := range quotedStrings(value) {
				if strings.Contains(value, "version") {
					version = quoted
					break
				}
			}
		}
		deps = append(deps, analysis.DependencyDeclaration{
			Name: name, Version: version, Manifest: analysis.ManifestCargo,
		})
	}
	return deps, nil
}
