package analyzer

import (
	"encoding/xml"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// Java analyzes Java sources and the pom.xml / build.gradle manifests.
type Java struct{}

// NewJava creates the Java analyzer.
func NewJava() *Java { return &Java{} }

func (*Java) Language() analysis.Language { return analysis.LangJava }

func (*Java) Extensions() []string { return []string{".java"} }

var springMappings = map[string]string{
	"GetMapping": "GET", "PostMapping": "POST", "PutMapping": "PUT",
	"DeleteMapping": "DELETE", "PatchMapping": "PATCH", "RequestMapping": "REQUEST",
}

// ParseEntryPoints extracts public static void main, Spring-annotated
// handler methods, and public classes and methods.
func (*Java) ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error) {
	tree, err := parseTree(java.GetLanguage(), content)
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
			if javaModifiers(node, content).public {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindClass, Name: name, File: filename, Line: lineOf(node),
				})
			}

		case "method_declaration":
			name := fieldText(node, "name", content)
			if name == "" {
				return false
			}
			mods := javaModifiers(node, content)

			if verb, ok := springRoute(mods.annotations); ok {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindRoute, Name: verb + " " + qualify(className, name),
					File: filename, Line: lineOf(node), Framework: "Spring",
				})
				return false
			}
			if name == "main" && mods.public && mods.static {
				eps = append(eps, analysis.EntryPoint{
					Kind: analysis.KindFunction, Name: qualify(className, name),
					File: filename, Line: lineOf(node),
				})
				return false
			}
			if mods.public {
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

func qualify(className, name string) string {
	if className == "" {
		return name
	}
	return className + "." + name
}

type javaMods struct {
	public      bool
	static      bool
	annotations []string
}

// javaModifiers reads the modifiers child of a class or method declaration.
func javaModifiers(node *sitter.Node, content []byte) javaMods {
	var mods javaMods
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			m := child.Child(j)
			switch m.Type() {
			case "marker_annotation", "annotation":
				mods.annotations = append(mods.annotations, m.Content(content))
			default:
				switch m.Content(content) {
				case "public":
					mods.public = true
				case "static":
					mods.static = true
				}
			}
		}
	}
	return mods
}

func springRoute(annotations []string) (string, bool) {
	for _, ann := range annotations {
		name := strings.TrimPrefix(ann, "@")
		if i := strings.IndexAny(name, "( "); i >= 0 {
			name = name[:i]
		}
		if verb, ok := springMappings[name]; ok {
			return verb, true
		}
	}
	return "", false
}

// ParseManifest handles pom.xml and build.gradle.
func (*Java) ParseManifest(kind analysis.ManifestKind, content []byte) ([]analysis.DependencyDeclaration, error) {
	switch kind {
	case analysis.ManifestPomXML:
		return parsePomXML(content)
	case analysis.ManifestGradle:
		return parseGradle(content), nil
	default:
		return nil, nil
	}
}

func parsePomXML(content []byte) ([]analysis.DependencyDeclaration, error) {
	var pom struct {
		Dependencies struct {
			Dependency []struct {
				GroupID    string `xml:"groupId"`
				ArtifactID string `xml:"artifactId"`
				Version    string `xml:"version"`
			} `xml:"dependency"`
		} `xml:"dependencies"`
	}
	if err := xml.Unmarshal(content, &pom); err != nil {
		return nil, fmt.Errorf("parse pom.xml: %w", err)
	}

	var deps []analysis.DependencyDeclaration
	for _, d := range pom.Dependencies.Dependency {
		if d.ArtifactID == "" {
			continue
		}
		name := d.ArtifactID
		if d.GroupID != "" {
			name = d.GroupID + ":" + d.ArtifactID
		}
		deps = append(deps, analysis.DependencyDeclaration{
			Name: name, Version: d.Version, Manifest: analysis.ManifestPomXML,
		})
	}
	return deps, nil
}

var gradleConfigs = []string{"implementation", "api", "compile", "runtimeOnly", "testImplementation"}

// parseGradle scans for dependency declarations of the form
// implementation 'group:artifact:version'.
func parseGradle(content []byte) []analysis.DependencyDeclaration {
	var deps []analysis.DependencyDeclaration
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		matched := false
		for _, cfg := range gradleConfigs {
			if strings.HasPrefix(trimmed, cfg+" ") || strings.HasPrefix(trimmed, cfg+"(") {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, quoted := range quotedStrings(trimmed) {
			parts := strings.Split(quoted, ":")
			if len(parts) < 2 {
				continue
			}
			dep := analysis.DependencyDeclaration{
				Name:     parts[0] + ":" + parts[1],
				Manifest: analysis.ManifestGradle,
			}
			if len(parts) >= 3 {
				dep.Version = parts[2]
			}
			deps = append(deps, dep)
			break
		}
	}
	return deps
}
