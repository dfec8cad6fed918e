// Package analysis defines the extracted project metadata entities and the
// rules that classify a project from its dependency declarations.
package analysis

import (
	"path"
	"time"
)

// Language is a supported source language tag.
type Language string

// Supported languages. Adding one means adding an analyzer variant; callers
// dispatch through the analyzer registry and never switch on these directly.
const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangCSharp     Language = "csharp"
	LangUnknown    Language = "unknown"
)

// ProjectType classifies what a logical project is.
type ProjectType string

// Project types, in no particular order; inference priority lives in
// InferProjectType.
const (
	TypeWebApp       ProjectType = "web-app"
	TypeAPI          ProjectType = "api"
	TypeCLI          ProjectType = "cli"
	TypeLibrary      ProjectType = "library"
	TypeMicroservice ProjectType = "microservice"
	TypeUnknown      ProjectType = "unknown"
)

// ManifestKind identifies the manifest file a project or dependency came from.
type ManifestKind string

// Manifest kinds recognized as project-root markers.
const (
	ManifestRequirements ManifestKind = "requirements.txt"
	ManifestPyProject    ManifestKind = "pyproject.toml"
	ManifestSetupPy      ManifestKind = "setup.py"
	ManifestPackageJSON  ManifestKind = "package.json"
	ManifestPomXML       ManifestKind = "pom.xml"
	ManifestGradle       ManifestKind = "build.gradle"
	ManifestCargo        ManifestKind = "Cargo.toml"
	ManifestGoMod        ManifestKind = "go.mod"
	ManifestCSProj       ManifestKind = "csproj"
	ManifestCMake        ManifestKind = "CMakeLists.txt"
)

// EntryPointKind is the shape of an extracted entry point.
type EntryPointKind string

// Entry point kinds.
const (
	KindFunction EntryPointKind = "function"
	KindClass    EntryPointKind = "class"
	KindMethod   EntryPointKind = "method"
	KindRoute    EntryPointKind = "route"
)

// EntryPoint is a code location identified as externally invokable.
// Immutable once extracted; regenerated with its parent ProjectMetadata.
type EntryPoint struct {
	Kind      EntryPointKind `json:"kind"`
	Name      string         `json:"name"`
	File      string         `json:"file"`
	Line      int            `json:"line"`
	Framework string         `json:"framework,omitempty"`
}

// DependencyDeclaration is one declared dependency. Version is the raw
// constraint string; its semantics are not parsed.
type DependencyDeclaration struct {
	Name     string       `json:"name"`
	Version  string       `json:"version,omitempty"`
	Manifest ManifestKind `json:"manifest"`
}

// ProjectMetadata is the full extracted description of one logical project.
// It is created or replaced wholesale on each successful analysis pass.
type ProjectMetadata struct {
	ID           string                  `json:"id"`
	Repo         string                  `json:"repo"`
	Path         string                  `json:"path"` // sub-project dir relative to the worktree, "." for root
	Manifest     ManifestKind            `json:"manifest"`
	Type         ProjectType             `json:"type"`
	Language     Language                `json:"language"`
	Dependencies []DependencyDeclaration `json:"dependencies"`
	EntryPoints  []EntryPoint            `json:"entry_points"`
	FileCount    int                     `json:"file_count"`
	Freshness    time.Time               `json:"freshness"`
}

// ProjectID derives the stable project identity from the repository name and
// the manifest's path relative to the worktree root. One project exists per
// manifest, so polyglot directories yield distinct IDs.
func ProjectID(repoName, relManifestPath string) string {
	return path.Join(repoName, path.Clean(relManifestPath))
}
