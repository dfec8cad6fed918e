// Package database defines the persistence port for the registry and the
// metadata store.
package database

import (
	"context"

	"github.com/repolens/repolens/internal/domain/analysis"
	"github.com/repolens/repolens/internal/domain/repo"
)

// Store is the port interface for all persistence. Implementations must map
// missing rows to domain.ErrNotFound and unique-name violations to
// domain.ErrDuplicate.
type Store interface {
	// --- Repository registry ---

	// CreateRepo persists a new repository config and seeds its never-synced
	// status in the same transaction.
	CreateRepo(ctx context.Context, cfg *repo.Config) error
	GetRepo(ctx context.Context, name string) (*repo.Config, error)
	ListRepos(ctx context.Context) ([]repo.Config, error)
	// DeleteRepo removes the config, its status, and all of its project
	// metadata in one transaction.
	DeleteRepo(ctx context.Context, name string) error

	// --- Sync status ---

	// UpsertSyncStatus overwrites the repository's single status row.
	UpsertSyncStatus(ctx context.Context, status *repo.SyncStatus) error
	GetSyncStatus(ctx context.Context, name string) (*repo.SyncStatus, error)
	ListSyncStatuses(ctx context.Context) ([]repo.SyncStatus, error)

	// --- Project metadata ---

	// ReplaceRepoProjects atomically replaces the repository's full project
	// set. Readers never observe a half-written pass; on error the previous
	// set is left untouched.
	ReplaceRepoProjects(ctx context.Context, repoName string, projects []analysis.ProjectMetadata) error
	GetProject(ctx context.Context, id string) (*analysis.ProjectMetadata, error)
	ListProjects(ctx context.Context) ([]analysis.ProjectMetadata, error)
	ListEntryPoints(ctx context.Context, projectID string) ([]analysis.EntryPoint, error)
}
