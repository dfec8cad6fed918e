package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// JavaScript analyzes JavaScript sources and package.json.
type JavaScript struct{}

// NewJavaScript creates the JavaScript analyzer.
func NewJavaScript() *JavaScript { return &JavaScript{} }

func (*JavaScript) Language() analysis.Language { return analysis.LangJavaScript }

func (*JavaScript) Extensions() []string { return []string{".js", ".jsx", ".mjs", ".cjs"} }

func (*JavaScript) ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error) {
	tree, err := parseTree(javascript.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()
	return ecmaEntryPoints(tree.RootNode(), content, filename), nil
}

// ParseManifest handles package.json.
func (*JavaScript) ParseManifest(kind analysis.ManifestKind, content []byte) ([]analysis.DependencyDeclaration, error) {
	if kind != analysis.ManifestPackageJSON {
		return nil, nil
	}
	return parsePackageJSON(content)
}

// ecmaEntryPoints extracts declared functions, classes, methods, and
// Express-style route registrations. Shared by the JS and TS analyzers.
func ecmaEntryPoints(root *sitter.Node, content []byte, filename string) []analysis.EntryPoint {
	var eps []analysis.EntryPoint
	var className string

	walk(root, func(node *sitter.Node) bool {
		switch node.Type() {
		case "function_declaration":
			if name := fieldText(node, "name", content); name != "" {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindFunction, Name: name,
					File: filename, Line: lineOf(node),
				})
			}

		case "class_declaration":
			name := fieldText(node, "name", content)
			if name == "" {
				return true
			}
			eps = append(eps, analysis.EntryPoint{
				Kind: analysis.KindClass, Name: name, File: filename, Line: lineOf(node),
			})
			prev := className
			className = name
			if body := node.ChildByFieldName("body"); body != nil {
				walk(body, func(n *sitter.Node) bool {
					if n.Type() == "method_definition" {
						if m := fieldText(n, "name", content); m != "" && m != "constructor" {
							eps = append(eps, analysis.EntryPoint{
								Kind: analysis.KindMethod, Name: className + "." + m,
								File: filename, Line: lineOf(n),
							})
						}
						return false
					}
					return true
				})
			}
			className = prev
			return false

		case "call_expression":
			if ep, ok := expressRoute(node, content, filename); ok {
				eps = append(eps, ep)
			}
		}
		return true
	})
	return eps
}

var httpVerbs = map[string]string{
	"get": "GET", "post": "POST", "put": "PUT",
	"delete": "DELETE", "patch": "PATCH", "all": "ALL",
}

// expressRoute matches app.get('/path', handler) style registrations.
func expressRoute(call *sitter.Node, content []byte, filename string) (analysis.EntryPoint, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return analysis.EntryPoint{}, false
	}
	verb, ok := httpVerbs[fieldText(fn, "property", content)]
	if !ok {
		return analysis.EntryPoint{}, false
	}

	args := call.ChildByFieldName("arguments")
	if args == nil {
		return analysis.EntryPoint{}, false
	}
	var path string
	for i := 0; i < int(args.ChildCount()); i++ {
		arg := args.Child(i)
		if arg.Type() == "string" {
			path = strings.Trim(arg.Content(content), `"'`+"`")
			break
		}
	}
	if path == "" || !strings.HasPrefix(path, "/") {
		return analysis.EntryPoint{}, false
	}

	return analysis.EntryPoint{
		Kind: analysis.KindRoute, Name: verb + " " + path,
		File: filename, Line: lineOf(call), Framework: "Express",
	}, true
}

// parsePackageJSON reads dependencies and devDependencies.
func parsePackageJSON(content []byte) ([]analysis.DependencyDeclaration, error) {
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(content, &manifest); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}

	var deps []analysis.DependencyDeclaration
	for _, section := range []map[string]string{manifest.Dependencies, manifest.DevDependencies} {
		for name, version := range section {
			deps = append(deps, analysis.DependencyDeclaration{
				Name:     name,
				Version:  strings.TrimLeft(version, "^~"),
				Manifest: analysis.ManifestPackageJSON,
			})
		}
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps, nil
}
