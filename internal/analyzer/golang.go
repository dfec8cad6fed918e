package analyzer

import (
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// Go analyzes Go sources and go.mod.
type Go struct{}

// NewGo creates the Go analyzer.
func NewGo() *Go { return &Go{} }

func (*Go) Language() analysis.Language { return analysis.LangGo }

func (*Go) Extensions() []string { return []string{".go"} }

// ParseEntryPoints extracts func main, exported functions and methods, and
// router registrations.
func (*Go) ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error) {
	tree, err := parseTree(golang.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	var eps []analysis.EntryPoint
	walk(tree.RootNode(), func(node *sitter.Node) bool {
		switch node.Type() {
		case "function_declaration":
			name := fieldText(node, "name", content)
			if name == "main" || isExportedGoName(name) {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindFunction, Name: name,
					File: filename, Line: lineOf(node),
				})
			}
			// Route registrations live inside function bodies.
			return true

		case "method_declaration":
			name := fieldText(node, "name", content)
			if isExportedGoName(name) {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindMethod, Name: goReceiverType(node, content) + "." + name,
					File: filename, Line: lineOf(node),
				})
			}
			return true

		case "call_expression":
			if ep, ok := goRoute(node, content, filename); ok {
				eps = append(eps, ep)
			}
		}
		return true
	})
	return eps, nil
}

func isExportedGoName(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}

// goReceiverType returns the bare receiver type name of a method.
func goReceiverType(method *sitter.Node, content []byte) string {
	recv := method.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := recv.Content(content)
	text = strings.Trim(text, "()")
	if _, typ, ok := strings.Cut(text, " "); ok {
		text = typ
	}
	return strings.TrimPrefix(strings.TrimSpace(text), "*")
}

var goRouteMethods = map[string]string{
	"Get": "GET", "Post": "POST", "Put": "PUT", "Delete": "DELETE", "Patch": "PATCH",
	"GET": "GET", "POST": "POST", "PUT": "PUT", "DELETE": "DELETE", "PATCH": "PATCH",
	"HandleFunc": "HANDLE", "Handle": "HANDLE",
}

// goRoute matches r.Get("/path", handler) and http.HandleFunc("/path", h)
// style registrations.
func goRoute(call *sitter.Node, content []byte, filename string) (analysis.EntryPoint, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "selector_expression" {
		return analysis.EntryPoint{}, false
	}
	verb, ok := goRouteMethods[fieldText(fn, "field", content)]
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
		if arg.Type() == "interpreted_string_literal" || arg.Type() == "raw_string_literal" {
			path = strings.Trim(arg.Content(content), "\"`")
			break
		}
	}
	if !strings.HasPrefix(path, "/") {
		return analysis.EntryPoint{}, false
	}

	framework := "chi"
	switch fieldText(fn, "field", content) {
	case "HandleFunc", "Handle":
		framework = "net/http"
	case "GET", "POST", "PUT", "DELETE", "PATCH":
		framework = "Gin"
	}

	return analysis.EntryPoint{
		Kind: analysis.KindRoute, Name: verb + " " + path,
		File: filename, Line: lineOf(call), Framework: framework,
	}, true
}

// ParseManifest handles go.mod. Only direct requirements are reported.
func (*Go) ParseManifest(kind analysis.ManifestKind, content []byte) ([]analysis.DependencyDeclaration, error) {
	if kind != analysis.ManifestGoMod {
		return nil, nil
	}

	var deps []analysis.DependencyDeclaration
	inRequire := false
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "require ("):
			inRequire = true
			continue
		case inRequire && trimmed == ")":
			inRequire = false
			continue
		case strings.HasPrefix(trimmed, "require "):
			trimmed = strings.TrimPrefix(trimmed, "require ")
		case !inRequire:
			continue
		}

		if strings.Contains(trimmed, "// indirect") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "//") {
			continue
		}
		deps = append(deps, analysis.DependencyDeclaration{
			Name: fields[0], Version: fields[1], Manifest: analysis.ManifestGoMod,
		})
	}
	return deps, nil
}
