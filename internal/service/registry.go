// Package service orchestrates the registry, sync worker, analysis pass,
// and scheduler over the port interfaces.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/repolens/repolens/internal/domain/repo"
	"github.com/repolens/repolens/internal/port/database"
	"github.com/repolens/repolens/internal/vault"
)

// RegistryService manages repository configurations and their credentials.
type RegistryService struct {
	store    database.Store
	vault    *vault.Vault
	reposDir string
}

// NewRegistryService creates a RegistryService rooted at reposDir.
func NewRegistryService(store database.Store, v *vault.Vault, reposDir string) *RegistryService {
	return &RegistryService{store: store, vault: v, reposDir: reposDir}
}

// WorktreePath returns the working-tree directory for a repository name.
// The name is validated at registration, so joining is safe.
func (s *RegistryService) WorktreePath(name string) string {
	return filepath.Join(s.reposDir, name)
}

// Register validates the request, stores the key pair in the vault, and
// persists the config with a seeded never-synced status. A duplicate name
// returns domain.ErrDuplicate with no credential left behind.
func (s *RegistryService) Register(ctx context.Context, req *repo.RegisterRequest) (*repo.Config, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate register request: %w", err)
	}

	now := time.Now().UTC()
	cfg := &repo.Config{
		ID:            uuid.NewString(),
		Name:          req.Name,
		URL:           req.URL,
		DefaultBranch: req.DefaultBranch,
		CredentialRef: req.Name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateRepo(ctx, cfg); err != nil {
		return nil, fmt.Errorf("create repo %s: %w", req.Name, err)
	}

	// The config row claims the name; storing the key after it means a
	// duplicate registration can never clobber the existing credential.
	if err := s.vault.Store(req.Name, req.SSHPrivateKey, req.SSHPublicKey); err != nil {
		if delErr := s.store.DeleteRepo(ctx, req.Name); delErr != nil {
			slog.Warn("config rollback failed", "repo", req.Name, "error", delErr)
		}
		return nil, fmt.Errorf("store credential: %w", err)
	}

	slog.Info("repository registered", "repo", cfg.Name, "url", cfg.URL, "branch", cfg.DefaultBranch)
	return cfg, nil
}

// Get returns one repository config by name.
func (s *RegistryService) Get(ctx context.Context, name string) (*repo.Config, error) {
	return s.store.GetRepo(ctx, name)
}

// List returns all registered repository configs.
func (s *RegistryService) List(ctx context.Context) ([]repo.Config, error) {
	return s.store.ListRepos(ctx)
}

// Status returns the repository's current sync status.
func (s *RegistryService) Status(ctx context.Context, name string) (*repo.SyncStatus, error) {
	return s.store.GetSyncStatus(ctx, name)
}

// Statuses returns the sync status of every registered repository.
func (s *RegistryService) Statuses(ctx context.Context) ([]repo.SyncStatus, error) {
	return s.store.ListSyncStatuses(ctx)
}

// Remove unregisters a repository: config, status, and project metadata rows
// go in one transaction, then the credential and working tree are removed.
// Cleanup failures after the delete are logged, not returned; the registry
// row is already gone and a retry would just report not-found.
func (s *RegistryService) Remove(ctx context.Context, name string) error {
	cfg, err := s.store.GetRepo(ctx, name)
	if err != nil {
		return fmt.Errorf("get repo %s: %w", name, err)
	}

	if err := s.store.DeleteRepo(ctx, name); err != nil {
		return fmt.Errorf("delete repo %s: %w", name, err)
	}

	if err := s.vault.Revoke(cfg.CredentialRef); err != nil {
		slog.Warn("credential revoke failed", "repo", name, "error", err)
	}
	if err := os.RemoveAll(s.WorktreePath(name)); err != nil {
		slog.Warn("worktree removal failed", "repo", name, "error", err)
	}

	slog.Info("repository removed", "repo", name)
	return nil
}
