package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/repolens/repolens/internal/adapter/otel"
	"github.com/repolens/repolens/internal/adapter/ws"
	"github.com/repolens/repolens/internal/detector"
	"github.com/repolens/repolens/internal/domain/analysis"
	"github.com/repolens/repolens/internal/port/broadcast"
	"github.com/repolens/repolens/internal/port/cache"
	"github.com/repolens/repolens/internal/port/database"
	"github.com/repolens/repolens/internal/port/eventbus"
)

// Cache keys for the metadata read path.
const (
	cacheKeyProjects = "projects:all"

	cacheKeyProjectPrefix    = "project:"
	cacheKeyEntryPointPrefix = "entrypoints:"
)

// AnalysisService runs the per-repository analysis pass and serves cached
// metadata reads.
type AnalysisService struct {
	store    database.Store
	detector *detector.Detector
	cache    cache.Cache
	hub      broadcast.Broadcaster
	bus      eventbus.Publisher
	metrics  *otel.Metrics
	cacheTTL time.Duration
}

// NewAnalysisService creates an AnalysisService. hub and bus must be non-nil;
// use the Nop implementations when the collaborator surfaces are disabled.
// metrics may be nil when telemetry is off.
func NewAnalysisService(
	store database.Store,
	det *detector.Detector,
	c cache.Cache,
	hub broadcast.Broadcaster,
	bus eventbus.Publisher,
	metrics *otel.Metrics,
	cacheTTL time.Duration,
) *AnalysisService {
	return &AnalysisService{
		store:    store,
		detector: det,
		cache:    c,
		hub:      hub,
		bus:      bus,
		metrics:  metrics,
		cacheTTL: cacheTTL,
	}
}

// Analyze runs a full analysis pass over the repository's working tree and
// replaces its project set. On any error the previously stored metadata is
// left untouched. Returns the number of projects detected.
func (s *AnalysisService) Analyze(ctx context.Context, repoName, worktree string) (int, error) {
	ctx, span := otel.StartAnalysisSpan(ctx, repoName)
	defer span.End()

	// Old IDs are needed to evict entries for projects that vanished.
	oldIDs := s.projectIDsFor(ctx, repoName)

	projects, err := s.detector.DetectProjects(ctx, repoName, worktree)
	if err != nil {
		return 0, fmt.Errorf("detect projects in %s: %w", repoName, err)
	}

	if err := s.store.ReplaceRepoProjects(ctx, repoName, projects); err != nil {
		return 0, fmt.Errorf("replace projects for %s: %w", repoName, err)
	}

	s.invalidate(ctx, oldIDs, projects)

	if s.metrics != nil {
		s.metrics.ProjectsDetected.Add(ctx, int64(len(projects)))
		var files int64
		for i := range projects {
			files += int64(projects[i].FileCount)
		}
		s.metrics.FilesAnalyzed.Add(ctx, files)
	}

	event := ws.AnalysisCompletedEvent{RepoName: repoName, ProjectCount: len(projects)}
	s.hub.BroadcastEvent(ctx, ws.EventAnalysisCompleted, event)
	if data, err := json.Marshal(event); err == nil {
		if err := s.bus.Publish(ctx, eventbus.SubjectAnalysisCompleted, data); err != nil {
			slog.Warn("analysis event publish failed", "repo", repoName, "error", err)
		}
	}

	slog.Info("analysis pass completed", "repo", repoName, "projects", len(projects))
	return len(projects), nil
}

// Projects returns all project metadata, served from cache when warm.
func (s *AnalysisService) Projects(ctx context.Context) ([]analysis.ProjectMetadata, error) {
	var cached []analysis.ProjectMetadata
	if s.fromCache(ctx, cacheKeyProjects, &cached) {
		return cached, nil
	}

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, cacheKeyProjects, projects)
	return projects, nil
}

// Project returns one project by ID.
func (s *AnalysisService) Project(ctx context.Context, id string) (*analysis.ProjectMetadata, error) {
	var cached analysis.ProjectMetadata
	if s.fromCache(ctx, cacheKeyProjectPrefix+id, &cached) {
		return &cached, nil
	}

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, cacheKeyProjectPrefix+id, p)
	return p, nil
}

// EntryPoints returns a project's entry points.
func (s *AnalysisService) EntryPoints(ctx context.Context, id string) ([]analysis.EntryPoint, error) {
	var cached []analysis.EntryPoint
	if s.fromCache(ctx, cacheKeyEntryPointPrefix+id, &cached) {
		return cached, nil
	}

	eps, err := s.store.ListEntryPoints(ctx, id)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, cacheKeyEntryPointPrefix+id, eps)
	return eps, nil
}

func (s *AnalysisService) projectIDsFor(ctx context.Context, repoName string) []string {
	all, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil
	}
	var ids []string
	for i := range all {
		if all[i].Repo == repoName {
			ids = append(ids, all[i].ID)
		}
	}
	return ids
}

// invalidate evicts the list key plus every per-project entry touched by the
// pass, both the replaced set and the new one.
func (s *AnalysisService) invalidate(ctx context.Context, oldIDs []string, projects []analysis.ProjectMetadata) {
	ids := make(map[string]struct{}, len(oldIDs)+len(projects))
	for _, id := range oldIDs {
		ids[id] = struct{}{}
	}
	for i := range projects {
		ids[projects[i].ID] = struct{}{}
	}

	s.evict(ctx, cacheKeyProjects)
	for id := range ids {
		s.evict(ctx, cacheKeyProjectPrefix+id)
		s.evict(ctx, cacheKeyEntryPointPrefix+id)
	}
}

func (s *AnalysisService) evict(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.Warn("cache eviction failed", "key", key, "error", err)
	}
}

func (s *AnalysisService) fromCache(ctx context.Context, key string, out any) bool {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *AnalysisService) toCache(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}
