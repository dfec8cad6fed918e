// Package memory provides an in-process database.Store used in dev mode
// (no DATABASE_URL) and in service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/repolens/repolens/internal/domain"
	"github.com/repolens/repolens/internal/domain/analysis"
	"github.com/repolens/repolens/internal/domain/repo"
)

// Store keeps everything in maps guarded by one mutex. Semantics mirror the
// postgres store: ErrNotFound for missing rows, ErrDuplicate on name reuse,
// and cascading deletes from repo to status and projects.
type Store struct {
	mu       sync.RWMutex
	repos    map[string]repo.Config
	statuses map[string]repo.SyncStatus
	projects map[string]analysis.ProjectMetadata
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		repos:    make(map[string]repo.Config),
		statuses: make(map[string]repo.SyncStatus),
		projects: make(map[string]analysis.ProjectMetadata),
	}
}

func (s *Store) CreateRepo(_ context.Context, cfg *repo.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.repos[cfg.Name]; exists {
		return fmt.Errorf("create repo %s: %w", cfg.Name, domain.ErrDuplicate)
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	s.repos[cfg.Name] = *cfg
	s.statuses[cfg.Name] = repo.SyncStatus{
		RepoID:   cfg.ID,
		RepoName: cfg.Name,
		State:    repo.StateNeverSynced,
	}
	return nil
}

func (s *Store) GetRepo(_ context.Context, name string) (*repo.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.repos[name]
	if !ok {
		return nil, fmt.Errorf("get repo %s: %w", name, domain.ErrNotFound)
	}
	return &cfg, nil
}

func (s *Store) ListRepos(_ context.Context) ([]repo.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	repos := make([]repo.Config, 0, len(s.repos))
	for _, cfg := range s.repos {
		repos = append(repos, cfg)
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name < repos[j].Name })
	return repos, nil
}

func (s *Store) DeleteRepo(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[name]; !ok {
		return fmt.Errorf("delete repo %s: %w", name, domain.ErrNotFound)
	}
	delete(s.repos, name)
	delete(s.statuses, name)
	for id, p := range s.projects {
		if p.Repo == name {
			delete(s.projects, id)
		}
	}
	return nil
}

func (s *Store) UpsertSyncStatus(_ context.Context, status *repo.SyncStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.RepoName] = *status
	return nil
}

func (s *Store) GetSyncStatus(_ context.Context, name string) (*repo.SyncStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[name]
	if !ok {
		return nil, fmt.Errorf("get sync status %s: %w", name, domain.ErrNotFound)
	}
	return &st, nil
}

func (s *Store) ListSyncStatuses(_ context.Context) ([]repo.SyncStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	statuses := make([]repo.SyncStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].RepoName < statuses[j].RepoName })
	return statuses, nil
}

func (s *Store) ReplaceRepoProjects(_ context.Context, repoName string, projects []analysis.ProjectMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.projects {
		if p.Repo == repoName {
			delete(s.projects, id)
		}
	}
	for _, p := range projects {
		s.projects[p.ID] = p
	}
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (*analysis.ProjectMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("get project %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) ListProjects(_ context.Context) ([]analysis.ProjectMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := make([]analysis.ProjectMetadata, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

func (s *Store) ListEntryPoints(_ context.Context, projectID string) ([]analysis.EntryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("list entry points %s: %w", projectID, domain.ErrNotFound)
	}
	return append([]analysis.EntryPoint(nil), p.EntryPoints...), nil
}
