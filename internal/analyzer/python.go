package analyzer

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// Python analyzes Python sources and the requirements/pyproject/setup.py
// manifest family.
type Python struct{}

// NewPython creates the Python analyzer.
func NewPython() *Python { return &Python{} }

func (*Python) Language() analysis.Language { return analysis.LangPython }

func (*Python) Extensions() []string { return []string{".py", ".pyw"} }

// ParseEntryPoints extracts decorated route handlers, the __main__ guard,
// and public functions, methods, and classes.
func (a *Python) ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error) {
	tree, err := parseTree(python.GetLanguage(), content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	var eps []analysis.EntryPoint
	a.extract(tree.RootNode(), content, filename, "", &eps)
	return eps, nil
}

func (a *Python) extract(node *sitter.Node, content []byte, filename, className string, eps *[]analysis.EntryPoint) {
	switch node.Type() {
	case "function_definition":
		name := fieldText(node, "name", content)
		if name == "" {
			return
		}
		if framework, route := pythonRouteDecorator(node, content); route {
			*eps = append(*eps, analysis.EntryPoint{
				Kind: analysis.KindRoute, Name: name,
				File: filename, Line: lineOf(node), Framework: framework,
			})
			return
		}
		if !isPublicName(name) {
			return
		}
		kind := analysis.KindFunction
		qualified := name
		if className != "" {
			kind = analysis.KindMethod
			qualified = className + "." + name
		}
		*eps = append(*eps, analysis.EntryPoint{
			Kind: kind, Name: qualified, File: filename, Line: lineOf(node),
		})
		return

	case "class_definition":
		name := fieldText(node, "name", content)
		if name == "" || !isPublicName(name) {
			return
		}
		*eps = append(*eps, analysis.EntryPoint{
			Kind: analysis.KindClass, Name: name, File: filename, Line: lineOf(node),
		})
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				a.extract(body.Child(i), content, filename, name, eps)
			}
		}
		return

	case "if_statement":
		// `if __name__ == "__main__":` marks a runnable module.
		cond := fieldText(node, "condition", content)
		if strings.Contains(cond, "__name__") && strings.Contains(cond, "__main__") {
			*eps = append(*eps, analysis.EntryPoint{
				Kind: analysis.KindFunction, Name: "__main__",
				File: filename, Line: lineOf(node),
			})
			return
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		a.extract(node.Child(i), content, filename, className, eps)
	}
}

// pythonRouteDecorator reports whether the function carries a web-route
// decorator and which framework it belongs to.
func pythonRouteDecorator(fn *sitter.Node, content []byte) (string, bool) {
	parent := fn.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return "", false
	}
	for i := 0; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		if child.Type() != "decorator" {
			continue
		}
		text := child.Content(content)
		switch {
		case strings.Contains(text, ".route("):
			return "Flask", true
		case strings.Contains(text, ".get("), strings.Contains(text, ".post("),
			strings.Contains(text, ".put("), strings.Contains(text, ".delete("),
			strings.Contains(text, ".patch("):
			return "FastAPI", true
		}
	}
	return "", false
}

// ParseManifest handles requirements.txt, pyproject.toml, and setup.py.
func (*Python) ParseManifest(kind analysis.ManifestKind, content []byte) ([]analysis.DependencyDeclaration, error) {
	switch kind {
	case analysis.ManifestRequirements:
		return parseRequirements(content, kind), nil
	case analysis.ManifestPyProject:
		return parsePyProject(content), nil
	case analysis.ManifestSetupPy:
		return parseSetupPy(content), nil
	default:
		return nil, nil
	}
}

// parseRequirements parses requirements.txt lines. Only name and the ==
// pinned version are kept; other constraint operators yield a bare name.
func parseRequirements(content []byte, kind analysis.ManifestKind) []analysis.DependencyDeclaration {
	var deps []analysis.DependencyDeclaration
	for _, line := range strings.Split(string(content), "\n") {
		if dep, ok := parseRequirementLine(line, kind); ok {
			deps = append(deps, dep)
		}
	}
	return deps
}

func parseRequirementLine(line string, kind analysis.ManifestKind) (analysis.DependencyDeclaration, bool) {
	line = strings.TrimSpace(line)
	if i := strings.Index(line, "#"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" || strings.HasPrefix(line, "-") {
		return analysis.DependencyDeclaration{}, false
	}

	name := line
	version := ""
	if i := strings.Index(line, "=="); i >= 0 {
		name = line[:i]
		version = strings.TrimSpace(line[i+2:])
	} else {
		for _, op := range []string{">=", "<=", "~=", "!=", ">", "<"} {
			if i := strings.Index(line, op); i >= 0 {
				name = line[:i]
				break
			}
		}
	}
	// Strip extras: fastapi[all] -> fastapi
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return analysis.DependencyDeclaration{}, false
	}
	return analysis.DependencyDeclaration{Name: name, Version: version, Manifest: kind}, true
}

// parsePyProject extracts the PEP 621 dependencies array and poetry's
// dependency table. Values are requirement strings or `name = "version"`.
func parsePyProject(content []byte) []analysis.DependencyDeclaration {
	var deps []analysis.DependencyDeclaration
	inDepsArray := false
	inPoetryTable := false

	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			inPoetryTable = trimmed == "[tool.poetry.dependencies]"
			inDepsArray = false
			continue
		}

		if inPoetryTable {
			name, version, ok := strings.Cut(trimmed, "=")
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			if name == "" || name == "python" || strings.HasPrefix(name, "#") {
				continue
			}
			version = strings.Trim(strings.TrimSpace(version), `"'`)
			if strings.HasPrefix(version, "{") {
				version = ""
			}
			deps = append(deps, analysis.DependencyDeclaration{
				Name: name, Version: strings.TrimPrefix(version, "^"),
				Manifest: analysis.ManifestPyProject,
			})
			continue
		}

		if strings.HasPrefix(trimmed, "dependencies") && strings.Contains(trimmed, "[") {
			inDepsArray = true
		}
		if inDepsArray {
			for _, quoted := range quotedStrings(trimmed) {
				if dep, ok := parseRequirementLine(quoted, analysis.ManifestPyProject); ok {
					deps = append(deps, dep)
				}
			}
			if strings.Contains(trimmed, "]") {
				inDepsArray = false
			}
		}
	}
	return deps
}

// parseSetupPy extracts quoted requirement strings from install_requires.
func parseSetupPy(content []byte) []analysis.DependencyDeclaration {
	src := string(content)
	i := strings.Index(src, "install_requires")
	if i < 0 {
		return nil
	}
	rest := src[i:]
	end := strings.Index(rest, "]")
	if end < 0 {
		return nil
	}

	var deps []analysis.DependencyDeclaration
	for _, quoted := range quotedStrings(rest[:end]) {
		if dep, ok := parseRequirementLine(quoted, analysis.ManifestSetupPy); ok {
			deps = append(deps, dep)
		}
	}
	return deps
}

// quotedStrings returns the contents of all single- or double-quoted
// substrings in s.
func quotedStrings(s string) []string {
	var out []string
	for {
		start := strings.IndexAny(s, `"'`)
		if start < 0 {
			return out
		}
		quote := s[start]
		rest := s[start+1:]
		end := strings.IndexByte(rest, quote)
		if end < 0 {
			return out
		}
		out = append(out, rest[:end])
		s = rest[end+1:]
	}
}
