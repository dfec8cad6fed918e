package detector_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/repolens/repolens/internal/analyzer"
	"github.com/repolens/repolens/internal/detector"
	"github.com/repolens/repolens/internal/domain/analysis"
)

func newDetector(t *testing.T, opts detector.Options) *detector.Detector {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return detector.New(analyzer.Default(), log, opts)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func findProject(projects []analysis.ProjectMetadata, id string) *analysis.ProjectMetadata {
	for i := range projects {
		if projects[i].ID == id {
			return &projects[i]
		}
	}
	return nil
}

func TestDetectSingleProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", "fastapi==0.100.0\nuvicorn\n")
	writeFile(t, root, "main.py", `from fastapi import FastAPI

app = FastAPI()

@app.get("/health")
def health_check():
    return {"status": "ok"}
`)
	writeFile(t, root, "util.py", "def helper():\n    pass\n")
	writeFile(t, root, "README.md", "docs\n")

	d := newDetector(t, detector.Options{})
	projects, err := d.DetectProjects(context.Background(), "sample-api", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %+v", projects)
	}

	p := projects[0]
	if p.ID != "sample-api/requirements.txt" {
		t.Errorf("id = %q", p.ID)
	}
	if p.Type != analysis.TypeAPI {
		t.Errorf("type = %q, want api", p.Type)
	}
	if p.Language != analysis.LangPython {
		t.Errorf("language = %q", p.Language)
	}
	if p.Path != "." {
		t.Errorf("path = %q, want .", p.Path)
	}
	if p.FileCount != 2 {
		t.Errorf("file count = %d, want 2", p.FileCount)
	}
	if len(p.Dependencies) != 2 || p.Dependencies[0].Name != "fastapi" {
		t.Errorf("dependencies = %+v", p.Dependencies)
	}

	var route *analysis.EntryPoint
	for i := range p.EntryPoints {
		if p.EntryPoints[i].Name == "health_check" {
			route = &p.EntryPoints[i]
		}
	}
	if route == nil || route.Kind != analysis.KindRoute || route.Framework != "FastAPI" {
		t.Errorf("entry points = %+v", p.EntryPoints)
	}
	if route != nil && route.File != "main.py" {
		t.Errorf("route file = %q", route.File)
	}
}

func TestDetectNestedProjectsStayDisjoint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {"react": "18.2.0"}}`)
	writeFile(t, root, "src/index.js", "function render() {}\n")
	writeFile(t, root, "api/requirements.txt", "flask==3.0.0\n")
	writeFile(t, root, "api/app.py", "def serve():\n    pass\n")

	d := newDetector(t, detector.Options{})
	projects, err := d.DetectProjects(context.Background(), "mono", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %+v", projects)
	}

	web := findProject(projects, "mono/package.json")
	if web == nil || web.Type != analysis.TypeWebApp {
		t.Fatalf("web project = %+v", projects)
	}
	api := findProject(projects, "mono/api/requirements.txt")
	if api == nil || api.Type != analysis.TypeAPI || api.Path != "api" {
		t.Fatalf("api project = %+v", projects)
	}

	if web.FileCount != 1 {
		t.Errorf("parent file count = %d, want 1", web.FileCount)
	}
	for _, ep := range web.EntryPoints {
		if strings.HasPrefix(ep.File, "api/") {
			t.Errorf("nested project file leaked into parent: %+v", ep)
		}
	}
	if api.FileCount != 1 {
		t.Errorf("nested file count = %d, want 1", api.FileCount)
	}
}

func TestDetectPolyglotDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {"express": "4.18.2"}}`)
	writeFile(t, root, "requirements.txt", "click==8.1.0\n")
	writeFile(t, root, "tool.py", "def run():\n    pass\n")
	writeFile(t, root, "server.js", "function start() {}\n")

	d := newDetector(t, detector.Options{})
	projects, err := d.DetectProjects(context.Background(), "poly", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected one project per manifest, got %+v", projects)
	}
	if findProject(projects, "poly/package.json") == nil {
		t.Error("missing package.json project")
	}
	py := findProject(projects, "poly/requirements.txt")
	if py == nil || py.Type != analysis.TypeCLI {
		t.Errorf("python project = %+v", projects)
	}
}

func TestDetectContainerizedBecomesMicroservice(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", "fastapi==0.100.0\n")
	writeFile(t, root, "Dockerfile", "FROM python:3.12\n")

	d := newDetector(t, detector.Options{})
	projects, err := d.DetectProjects(context.Background(), "svc", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Type != analysis.TypeMicroservice {
		t.Fatalf("expected microservice, got %+v", projects)
	}
}

func TestDetectSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {"express": "4.18.2"}}`)
	writeFile(t, root, "index.js", "function main() {}\n")
	writeFile(t, root, "node_modules/express/index.js", "function hidden() {}\n")
	writeFile(t, root, "node_modules/express/package.json", `{"name": "express"}`)
	writeFile(t, root, ".git/config", "[core]\n")

	d := newDetector(t, detector.Options{})
	projects, err := d.DetectProjects(context.Background(), "app", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 {
		t.Fatalf("vendored manifests should be ignored, got %+v", projects)
	}
	if projects[0].FileCount != 1 {
		t.Errorf("file count = %d, want 1", projects[0].FileCount)
	}
}

func TestDetectNoManifestNoProjects(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", "scratch\n")
	writeFile(t, root, "script.py", "def run():\n    pass\n")

	// Source files without a manifest are not a project.
	d := newDetector(t, detector.Options{})
	projects, err := d.DetectProjects(context.Background(), "scratch", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected no projects, got %+v", projects)
	}
}

func TestDetectOversizeFileSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", "fastapi==0.100.0\n")
	writeFile(t, root, "big.py", "def huge():\n    pass\n"+strings.Repeat("# pad\n", 100))
	writeFile(t, root, "small.py", "def tiny():\n    pass\n")

	d := newDetector(t, detector.Options{MaxFileSize: 64})
	projects, err := d.DetectProjects(context.Background(), "r", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %+v", projects)
	}
	for _, ep := range projects[0].EntryPoints {
		if ep.File == "big.py" {
			t.Errorf("oversize file should be skipped, got %+v", ep)
		}
		if ep.Name == "tiny" && ep.File != "small.py" {
			t.Errorf("unexpected entry point %+v", ep)
		}
	}
}

func TestDetectDependencyCap(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("pkg")
		b.WriteByte(byte('a' + i))
		b.WriteString("==1.0\n")
	}
	writeFile(t, root, "requirements.txt", b.String())

	d := newDetector(t, detector.Options{MaxDependencies: 3})
	projects, err := d.DetectProjects(context.Background(), "r", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || len(projects[0].Dependencies) != 3 {
		t.Fatalf("expected capped deps, got %+v", projects)
	}
}

func TestDetectDeterministicOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b/requirements.txt", "flask\n")
	writeFile(t, root, "b/app.py", "def b_handler():\n    pass\n")
	writeFile(t, root, "a/requirements.txt", "flask\n")
	writeFile(t, root, "a/app.py", "def a_handler():\n    pass\n")
	writeFile(t, root, "a/z.py", "def z_handler():\n    pass\n")

	d := newDetector(t, detector.Options{FileWorkers: 4})
	first, err := d.DetectProjects(context.Background(), "r", root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.DetectProjects(context.Background(), "r", root)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 projects, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("project order differs: %q vs %q", first[i].ID, second[i].ID)
		}
		if len(first[i].EntryPoints) != len(second[i].EntryPoints) {
			t.Fatalf("entry point count differs for %s", first[i].ID)
		}
		for j := range first[i].EntryPoints {
			if first[i].EntryPoints[j] != second[i].EntryPoints[j] {
				t.Errorf("entry point order differs: %+v vs %+v",
					first[i].EntryPoints[j], second[i].EntryPoints[j])
			}
		}
	}
	if first[0].ID != "r/a/requirements.txt" {
		t.Errorf("projects not sorted by id: %+v", first)
	}
}
