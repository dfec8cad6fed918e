// Package detector walks a repository working tree, groups source files
// into logical projects by manifest boundaries, and aggregates per-file
// analysis into project metadata.
package detector

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/repolens/repolens/internal/analyzer"
	"github.com/repolens/repolens/internal/domain/analysis"
)

// skipDirs are never descended into during the walk.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// Detector analyzes working trees. Safe for concurrent use.
type Detector struct {
	registry    *analyzer.Registry
	log         *slog.Logger
	fileWorkers int
	maxFileSize int64
	maxDeps     int
}

// Options bounds the per-repository analysis work.
type Options struct {
	FileWorkers     int   // parallel file parses per project
	MaxFileSize     int64 // bytes; larger source files are skipped
	MaxDependencies int   // cap on reported dependencies per project
}

// New creates a Detector over the given analyzer registry.
func New(registry *analyzer.Registry, log *slog.Logger, opts Options) *Detector {
	if opts.FileWorkers < 1 {
		opts.FileWorkers = 1
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 1 << 20
	}
	if opts.MaxDependencies <= 0 {
		opts.MaxDependencies = 50
	}
	return &Detector{
		registry:    registry,
		log:         log,
		fileWorkers: opts.FileWorkers,
		maxFileSize: opts.MaxFileSize,
		maxDeps:     opts.MaxDependencies,
	}
}

// manifest is one discovered project-root marker.
type manifest struct {
	relPath string // manifest path relative to root
	dir     string // manifest directory relative to root, "." for the root
	spec    analyzer.ManifestSpec
}

// DetectProjects walks root and returns one ProjectMetadata per discovered
// manifest. A directory with no manifest produces no project. Nested project
// roots are excluded from their parents. Per-file parse failures are logged
// and skipped, never failing the pass.
func (d *Detector) DetectProjects(ctx context.Context, repoName, root string) ([]analysis.ProjectMetadata, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}
	manifests, sources, dockerDirs, err := d.scan(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if len(manifests) == 0 {
		return nil, nil
	}

	roots := make(map[string]bool, len(manifests))
	for _, m := range manifests {
		roots[m.dir] = true
	}

	// Assign each source file to its nearest enclosing project root, so a
	// nested project's files never leak into the parent.
	filesByRoot := make(map[string][]string)
	for _, rel := range sources {
		if owner, ok := nearestRoot(rel, roots); ok {
			filesByRoot[owner] = append(filesByRoot[owner], rel)
		}
	}

	now := time.Now().UTC()
	projects := make([]analysis.ProjectMetadata, 0, len(manifests))
	for _, m := range manifests {
		p, err := d.buildProject(ctx, repoName, root, m, filesByRoot[m.dir], dockerDirs[m.dir], now)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// scan walks the tree once, collecting manifests, analyzable source files,
// and directories carrying a Dockerfile. All paths are root-relative.
func (d *Detector) scan(root string) ([]manifest, []string, map[string]bool, error) {
	var manifests []manifest
	var sources []string
	dockerDirs := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.log.Warn("walk error, skipping", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := entry.Name()
		if entry.IsDir() {
			if path == root {
				return nil
			}
			if skipDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if spec, ok := analyzer.LookupManifest(name); ok {
			manifests = append(manifests, manifest{
				relPath: rel,
				dir:     relDir(rel),
				spec:    spec,
			})
			return nil
		}
		if name == "Dockerfile" || strings.HasPrefix(name, "Dockerfile.") {
			dockerDirs[relDir(rel)] = true
			return nil
		}
		if _, ok := d.registry.ForFile(name); ok {
			sources = append(sources, rel)
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].relPath < manifests[j].relPath })
	return manifests, sources, dockerDirs, nil
}

// buildProject analyzes one project: manifest dependencies plus entry points
// from every assigned source file, parsed in parallel.
func (d *Detector) buildProject(ctx context.Context, repoName, root string, m manifest, files []string, containerized bool, now time.Time) (analysis.ProjectMetadata, error) {
	deps := d.parseManifestDeps(root, m)

	var mu sync.Mutex
	var eps []analysis.EntryPoint

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.fileWorkers)
	for _, rel := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fileEPs, err := d.parseFile(root, rel)
			if err != nil {
				d.log.Warn("file analysis skipped", "file", rel, "error", err)
				return nil
			}
			mu.Lock()
			eps = append(eps, fileEPs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return analysis.ProjectMetadata{}, fmt.Errorf("analyze %s: %w", m.relPath, err)
	}

	// Deterministic output: same tree in, same metadata out.
	sort.Slice(eps, func(i, j int) bool {
		if eps[i].File != eps[j].File {
			return eps[i].File < eps[j].File
		}
		if eps[i].Line != eps[j].Line {
			return eps[i].Line < eps[j].Line
		}
		return eps[i].Name < eps[j].Name
	})

	return analysis.ProjectMetadata{
		ID:           analysis.ProjectID(repoName, m.relPath),
		Repo:         repoName,
		Path:         m.dir,
		Manifest:     m.spec.Kind,
		Type:         analysis.InferProjectType(deps, m.spec.Kind, containerized),
		Language:     m.spec.Language,
		Dependencies: deps,
		EntryPoints:  eps,
		FileCount:    len(files),
		Freshness:    now,
	}, nil
}

func (d *Detector) parseManifestDeps(root string, m manifest) []analysis.DependencyDeclaration {
	a, ok := d.registry.ForLanguage(m.spec.Language)
	if !ok {
		return nil
	}
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(m.relPath)))
	if err != nil {
		d.log.Warn("manifest read failed", "manifest", m.relPath, "error", err)
		return nil
	}
	deps, err := a.ParseManifest(m.spec.Kind, content)
	if err != nil {
		d.log.Warn("manifest parse failed", "manifest", m.relPath, "error", err)
		return nil
	}
	if len(deps) > d.maxDeps {
		deps = deps[:d.maxDeps]
	}
	return deps
}

func (d *Detector) parseFile(root, rel string) ([]analysis.EntryPoint, error) {
	a, ok := d.registry.ForFile(rel)
	if !ok {
		return nil, nil
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.Size() > d.maxFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes", d.maxFileSize)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	return a.ParseEntryPoints(rel, content)
}

// relDir returns the slash-form directory of a root-relative path.
func relDir(rel string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	return dir
}

// nearestRoot finds the deepest project root containing rel.
func nearestRoot(rel string, roots map[string]bool) (string, bool) {
	dir := relDir(rel)
	for {
		if roots[dir] {
			return dir, true
		}
		if dir == "." {
			return "", false
		}
		parent := filepath.ToSlash(filepath.Dir(dir))
		dir = parent
	}
}
