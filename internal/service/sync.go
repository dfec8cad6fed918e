package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/repolens/repolens/internal/adapter/otel"
	"github.com/repolens/repolens/internal/adapter/ws"
	"github.com/repolens/repolens/internal/domain"
	"github.com/repolens/repolens/internal/domain/repo"
	"github.com/repolens/repolens/internal/git"
	"github.com/repolens/repolens/internal/port/broadcast"
	"github.com/repolens/repolens/internal/port/database"
	"github.com/repolens/repolens/internal/port/eventbus"
	"github.com/repolens/repolens/internal/port/gitclient"
	"github.com/repolens/repolens/internal/vault"
)

// SyncService drives the per-repository sync state machine:
// never-synced → syncing → {synced, failed}, failed repos retried on the
// next pass.
type SyncService struct {
	store     database.Store
	git       gitclient.Client
	vault     *vault.Vault
	locks     *git.Locks
	analysis  *AnalysisService
	hub       broadcast.Broadcaster
	bus       eventbus.Publisher
	metrics   *otel.Metrics
	reposDir  string
	opTimeout time.Duration
}

// NewSyncService creates a SyncService. metrics may be nil.
func NewSyncService(
	store database.Store,
	client gitclient.Client,
	v *vault.Vault,
	locks *git.Locks,
	analysisSvc *AnalysisService,
	hub broadcast.Broadcaster,
	bus eventbus.Publisher,
	metrics *otel.Metrics,
	reposDir string,
	opTimeout time.Duration,
) *SyncService {
	return &SyncService{
		store:     store,
		git:       client,
		vault:     v,
		locks:     locks,
		analysis:  analysisSvc,
		hub:       hub,
		bus:       bus,
		metrics:   metrics,
		reposDir:  reposDir,
		opTimeout: opTimeout,
	}
}

// SyncOne syncs a single repository on demand. A repository that is already
// syncing is rejected with domain.ErrSyncInProgress; the caller retries or
// waits for the scheduled pass.
func (s *SyncService) SyncOne(ctx context.Context, name string) (*repo.SyncResult, error) {
	cfg, err := s.store.GetRepo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get repo %s: %w", name, err)
	}

	if !s.locks.TryAcquire(name) {
		return nil, fmt.Errorf("repo %s: %w", name, domain.ErrSyncInProgress)
	}
	defer s.locks.Release(name)

	result := s.syncRepo(ctx, cfg)
	return result, nil
}

// SyncAll runs one pass over every registered repository. Outcomes are
// independent: one repository's failure never fails the pass, and a
// repository locked by an in-flight sync is reported as in progress and
// left alone. Git operations across repositories are bounded by the pool
// inside the git client.
func (s *SyncService) SyncAll(ctx context.Context) ([]repo.SyncResult, error) {
	repos, err := s.store.ListRepos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}

	results := make([]repo.SyncResult, len(repos))
	var wg sync.WaitGroup
	for i := range repos {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := &repos[i]
			if !s.locks.TryAcquire(cfg.Name) {
				results[i] = repo.SyncResult{
					RepoName: cfg.Name,
					State:    repo.StateSyncing,
					Error:    domain.ErrSyncInProgress.Error(),
				}
				return
			}
			defer s.locks.Release(cfg.Name)
			results[i] = *s.syncRepo(ctx, cfg)
		}()
	}
	wg.Wait()

	slog.Info("sync pass completed", "repos", len(repos))
	return results, nil
}

// syncRepo runs one attempt for a repository the caller has already locked.
func (s *SyncService) syncRepo(ctx context.Context, cfg *repo.Config) *repo.SyncResult {
	start := time.Now().UTC()
	ctx, span := otel.StartSyncSpan(ctx, cfg.Name, cfg.DefaultBranch)
	defer span.End()

	if s.metrics != nil {
		s.metrics.SyncsStarted.Add(ctx, 1)
	}

	status := s.currentStatus(ctx, cfg)
	status.State = repo.StateSyncing
	status.LastAttempt = &start
	status.LastError = ""
	s.recordStatus(ctx, status)

	commit, err := s.runGitOps(ctx, cfg)
	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.SyncDuration.Record(ctx, duration.Seconds())
	}

	if err != nil {
		status.State = repo.StateFailed
		status.LastError = err.Error()
		s.recordStatus(ctx, status)
		if s.metrics != nil {
			s.metrics.SyncsFailed.Add(ctx, 1)
		}
		slog.Warn("sync failed", "repo", cfg.Name, "error", err)
		return &repo.SyncResult{
			RepoName: cfg.Name,
			State:    repo.StateFailed,
			Error:    err.Error(),
			Duration: duration,
		}
	}

	success := time.Now().UTC()
	status.State = repo.StateSynced
	status.LastSuccess = &success
	status.Commit = commit
	s.recordStatus(ctx, status)
	if s.metrics != nil {
		s.metrics.SyncsCompleted.Add(ctx, 1)
	}
	s.publishSyncCompleted(ctx, status)

	// Analysis runs under the same lock, so metadata writes for this repo
	// are serialized. A failed pass keeps the previous metadata.
	if _, err := s.analysis.Analyze(ctx, cfg.Name, s.worktree(cfg.Name)); err != nil {
		slog.Warn("analysis failed, keeping previous metadata", "repo", cfg.Name, "error", err)
	}

	slog.Info("sync completed", "repo", cfg.Name, "commit", commit, "duration", duration)
	return &repo.SyncResult{
		RepoName: cfg.Name,
		State:    repo.StateSynced,
		Commit:   commit,
		Duration: duration,
	}
}

// runGitOps clones or fast-forwards the working tree and returns the
// resulting head commit. Each git operation runs under its own timeout.
func (s *SyncService) runGitOps(ctx context.Context, cfg *repo.Config) (string, error) {
	opts := gitclient.Options{}
	if s.vault.Has(cfg.CredentialRef) {
		keyPath, cleanup, err := s.vault.Materialize(cfg.CredentialRef)
		if err != nil {
			return "", fmt.Errorf("materialize credential: %w", err)
		}
		defer cleanup()
		opts.SSHKeyPath = keyPath
	}

	dir := s.worktree(cfg.Name)
	if s.cloned(dir) {
		if err := s.withTimeout(ctx, func(opCtx context.Context) error {
			return s.git.Update(opCtx, dir, cfg.DefaultBranch, opts)
		}); err != nil {
			return "", fmt.Errorf("update: %w", err)
		}
	} else {
		if err := s.withTimeout(ctx, func(opCtx context.Context) error {
			return s.git.Clone(opCtx, cfg.URL, cfg.DefaultBranch, dir, opts)
		}); err != nil {
			return "", fmt.Errorf("clone: %w", err)
		}
	}

	var commit string
	err := s.withTimeout(ctx, func(opCtx context.Context) error {
		var headErr error
		commit, headErr = s.git.HeadCommit(opCtx, dir)
		return headErr
	})
	if err != nil {
		return "", fmt.Errorf("head commit: %w", err)
	}
	return commit, nil
}

func (s *SyncService) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if s.opTimeout <= 0 {
		return fn(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return fn(opCtx)
}

func (s *SyncService) worktree(name string) string {
	return filepath.Join(s.reposDir, name)
}

func (s *SyncService) cloned(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// currentStatus loads the repository's status row, falling back to a fresh
// never-synced one so a missing row never blocks a sync.
func (s *SyncService) currentStatus(ctx context.Context, cfg *repo.Config) *repo.SyncStatus {
	status, err := s.store.GetSyncStatus(ctx, cfg.Name)
	if err != nil {
		return &repo.SyncStatus{RepoID: cfg.ID, RepoName: cfg.Name, State: repo.StateNeverSynced}
	}
	return status
}

// recordStatus persists a state transition and broadcasts it to connected
// clients.
func (s *SyncService) recordStatus(ctx context.Context, status *repo.SyncStatus) {
	if err := s.store.UpsertSyncStatus(ctx, status); err != nil {
		slog.Warn("status upsert failed", "repo", status.RepoName, "state", status.State, "error", err)
	}
	s.hub.BroadcastEvent(ctx, ws.EventSyncStatus, ws.SyncStatusEvent{
		RepoName: status.RepoName,
		State:    string(status.State),
		Commit:   status.Commit,
		Error:    status.LastError,
	})
}

func (s *SyncService) publishSyncCompleted(ctx context.Context, status *repo.SyncStatus) {
	data, err := json.Marshal(ws.SyncStatusEvent{
		RepoName: status.RepoName,
		State:    string(status.State),
		Commit:   status.Commit,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, eventbus.SubjectSyncCompleted, data); err != nil {
		slog.Warn("sync event publish failed", "repo", status.RepoName, "error", err)
	}
}
