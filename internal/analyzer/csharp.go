package analyzer

import (
	"encoding/xml"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// CSharp analyzes C# sources and .csproj project files.
type CSharp struct{}

// NewCSharp creates the C# analyzer.
func NewCSharp() *CSharp { return &CSharp{} }

func (*CSharp) Language() analysis.Language { return analysis.LangCSharp }

func (*CSharp) Extensions() []string { return []string{".cs"} }

var aspNetAttributes = map[string]string{
	"HttpGet": "GET", "HttpPost": "POST", "HttpPut": "PUT",
	"HttpDelete": "DELETE", "HttpPatch": "PATCH", "Route": "ROUTE",
}

// ParseEntryPoints extracts Main, ASP.NET-attributed handler methods, and
// public classes and methods.
func (*CSharp) ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error) {
	tree, err := parseTree(csharp.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	var eps []analysis.EntryPoint
	var className string

	walk(tree.RootNode(), func(node *sitter.Node) bool {
		switch node.Type() {
		case "class_declaration":
			name := fieldText(node, "name", content)
			if name == "" {
				return true
			}
			className = name
			if csharpHasModifier(node, content, "public") {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindClass, Name: name, File: filename, Line: lineOf(node),
				})
			}

		case "method_declaration":
			name := fieldText(node, "name", content)
			if name == "" {
				return false
			}
			if verb, ok := csharpRouteAttribute(node, content); ok {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindRoute, Name: verb + " " + qualify(className, name),
					File: filename, Line: lineOf(node), Framework: "ASP.NET",
				})
				return false
			}
			if name == "Main" && csharpHasModifier(node, content, "static") {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindFunction, Name: qualify(className, name),
					File: filename, Line: lineOf(node),
				})
				return false
			}
			if csharpHasModifier(node, content, "public") {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindMethod, Name: qualify(className, name),
					File: filename, Line: lineOf(node),
				})
			}
			return false
		}
		return true
	})
	return eps, nil
}

func csharpHasModifier(node *sitter.Node, content []byte, want string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "modifier" && child.Content(content) == want {
			return true
		}
	}
	return false
}

// csharpRouteAttribute scans attribute lists for ASP.NET routing attributes.
func csharpRouteAttribute(method *sitter.Node, content []byte) (string, bool) {
	for i := 0; i < int(method.ChildCount()); i++ {
		child := method.Child(i)
		if child.Type() != "attribute_list" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			attr := child.Child(j)
			if attr.Type() != "attribute" {
				continue
			}
			name := fieldText(attr, "name", content)
			if name == "" {
				name = attr.Content(content)
				if k := strings.IndexAny(name, "( "); k >= 0 {
					name = name[:k]
				}
			}
			if verb, ok := aspNetAttributes[name]; ok {
				return verb, true
			}
		}
	}
	return "", false
}

// ParseManifest handles .csproj PackageReference items.
func (*CSharp) ParseManifest(kind analysis.ManifestKind, content []byte) ([]analysis.DependencyDeclaration, error) {
	if kind != analysis.ManifestCSProj {
		return nil, nil
	}

	var proj struct {
		ItemGroups []struct {
			PackageReferences []struct {
				Include string `xml:"Include,attr"`
				Version string `xml:"Version,attr"`
			} `xml:"PackageReference"`
		} `xml:"ItemGroup"`
	}
	if err := xml.Unmarshal(content, &proj); err != nil {
		return nil, fmt.Errorf("parse csproj: %w", err)
	}

	var deps []analysis.DependencyDeclaration
	for _, group := range proj.ItemGroups {
		for _, ref := range group.PackageReferences {
			if ref.Include == "" {
				continue
			}
			deps = append(deps, analysis.DependencyDeclaration{
				Name: ref.Include, Version: ref.Version, Manifest: analysis.ManifestCSProj,
			})
		}
	}
	return deps, nil
}
