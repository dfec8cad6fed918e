package analyzer

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// CPP analyzes C++ sources and CMakeLists.txt.
type CPP struct{}

// NewCPP creates the C++ analyzer.
func NewCPP() *CPP { return &CPP{} }

func (*CPP) Language() analysis.Language { return analysis.LangCPP }

func (*CPP) Extensions() []string {
	return []string{".cpp", ".cc", ".cxx", ".hpp", ".h", ".hh"}
}

// ParseEntryPoints extracts main and class definitions. C++ has no
// manifest-level framework conventions worth route detection.
func (*CPP) ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error) {
	tree, err := parseTree(cpp.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	var eps []analysis.EntryPoint
	walk(tree.RootNode(), func(node *sitter.Node) bool {
		switch node.Type() {
		case "function_definition":
			if name := cppFunctionName(node, content); name == "main" {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindFunction, Name: name,
					File: filename, Line: lineOf(node),
				})
			}
			return false

		case "class_specifier":
			if name := fieldText(node, "name", content); name != "" {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindClass, Name: name, File: filename, Line: lineOf(node),
				})
			}
		}
		return true
	})
	return eps, nil
}

// cppFunctionName digs through the declarator chain for the function name.
func cppFunctionName(fn *sitter.Node, content []byte) string {
	decl := fn.ChildByFieldName("declarator")
	for decl != nil {
		switch decl.Type() {
		case "function_declarator":
			decl = decl.ChildByFieldName("declarator")
		case "identifier", "qualified_identifier", "field_identifier":
			return decl.Content(content)
		case "pointer_declarator", "reference_declarator":
			decl = decl.ChildByFieldName("declarator")
		default:
			return ""
		}
	}
	return ""
}

// ParseManifest handles CMakeLists.txt, reading find_package calls as
// dependency declarations.
func (*CPP) ParseManifest(kind analysis.ManifestKind, content []byte) ([]analysis.DependencyDeclaration, error) {
	if kind != analysis.ManifestCMake {
		return nil, nil
	}

	var deps []analysis.DependencyDeclaration
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(trimmed, "find_package(")
		if !ok {
			continue
		}
		rest = strings.TrimSuffix(rest, ")")
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		dep := analysis.DependencyDeclaration{Name: fields[0], Manifest: analysis.ManifestCMake}
		if len(fields) > 1 && fields[1] != "REQUIRED" {
			dep.Version = fields[1]
		}
		deps = append(deps, dep)
	}
	return deps, nil
}
