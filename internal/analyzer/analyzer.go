// Package analyzer extracts entry points and dependency declarations from
// source files using tree-sitter grammars, one analyzer per language.
package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// Analyzer is the per-language capability set. Entry-point detection is
// heuristic; false negatives are acceptable, false positives should be rare.
type Analyzer interface {
	Language() analysis.Language

	// Extensions returns the file extensions this analyzer handles.
	Extensions() []string

	// ParseEntryPoints extracts entry-point candidates from one source file.
	ParseEntryPoints(filename string, content []byte) ([]analysis.EntryPoint, error)

	// ParseManifest extracts dependency declarations from a manifest of the
	// given kind. Kinds the language does not own return nil, nil.
	ParseManifest(kind analysis.ManifestKind, content []byte) ([]analysis.DependencyDeclaration, error)
}

// ManifestSpec ties a manifest filename to its kind and owning language.
type ManifestSpec struct {
	Kind     analysis.ManifestKind
	Language analysis.Language
}

// manifestNames maps exact manifest filenames to their spec. *.csproj is
// handled by suffix in LookupManifest.
var manifestNames = map[string]ManifestSpec{
	"requirements.txt": {analysis.ManifestRequirements, analysis.LangPython},
	"pyproject.toml":   {analysis.ManifestPyProject, analysis.LangPython},
	"setup.py":         {analysis.ManifestSetupPy, analysis.LangPython},
	"package.json":     {analysis.ManifestPackageJSON, analysis.LangJavaScript},
	"pom.xml":          {analysis.ManifestPomXML, analysis.LangJava},
	"build.gradle":     {analysis.ManifestGradle, analysis.LangJava},
	"build.gradle.kts": {analysis.ManifestGradle, analysis.LangJava},
	"go.mod":           {analysis.ManifestGoMod, analysis.LangGo},
	"Cargo.toml":       {analysis.ManifestCargo, analysis.LangRust},
	"CMakeLists.txt":   {analysis.ManifestCMake, analysis.LangCPP},
}

// LookupManifest reports whether filename is a recognized project manifest.
func LookupManifest(filename string) (ManifestSpec, bool) {
	base := filepath.Base(filename)
	if spec, ok := manifestNames[base]; ok {
		return spec, true
	}
	if strings.HasSuffix(base, ".csproj") {
		return ManifestSpec{analysis.ManifestCSProj, analysis.LangCSharp}, true
	}
	return ManifestSpec{}, false
}

// Registry dispatches files to analyzers by extension and manifests by
// filename. Adding a language means registering one more Analyzer.
type Registry struct {
	byExt  map[string]Analyzer
	byLang map[analysis.Language]Analyzer
}

// NewRegistry creates a Registry over the given analyzers.
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{
		byExt:  make(map[string]Analyzer),
		byLang: make(map[analysis.Language]Analyzer),
	}
	for _, a := range analyzers {
		r.byLang[a.Language()] = a
		for _, ext := range a.Extensions() {
			r.byExt[ext] = a
		}
	}
	return r
}

// Default returns a Registry with all supported language analyzers.
func Default() *Registry {
	return NewRegistry(
		NewPython(),
		NewJavaScript(),
		NewTypeScript(),
		NewJava(),
		NewCPP(),
		NewGo(),
		NewRust(),
		NewCSharp(),
	)
}

// ForFile returns the analyzer handling the file's extension.
func (r *Registry) ForFile(filename string) (Analyzer, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	a, ok := r.byExt[ext]
	return a, ok
}

// ForLanguage returns the analyzer for a language tag.
func (r *Registry) ForLanguage(lang analysis.Language) (Analyzer, bool) {
	a, ok := r.byLang[lang]
	return a, ok
}

// Extensions returns all supported file extensions.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}
