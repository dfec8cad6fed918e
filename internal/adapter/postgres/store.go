package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/repolens/repolens/internal/domain"
	"github.com/repolens/repolens/internal/domain/repo"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Repository registry ---

func (s *Store) CreateRepo(ctx context.Context, cfg *repo.Config) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create repo %s: begin: %w", cfg.Name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	_, err = tx.Exec(ctx,
		`INSERT INTO repos (id, name, url, default_branch, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		cfg.ID, cfg.Name, cfg.URL, cfg.DefaultBranch, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return duplicateWrap(err, "create repo %s", cfg.Name)
	}

	// Seed the never-synced status row in the same transaction.
	_, err = tx.Exec(ctx,
		`INSERT INTO sync_status (repo_name, repo_id, state) VALUES ($1, $2, $3)`,
		cfg.Name, cfg.ID, repo.StateNeverSynced)
	if err != nil {
		return fmt.Errorf("create repo %s: seed status: %w", cfg.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("create repo %s: commit: %w", cfg.Name, err)
	}
	return nil
}

func (s *Store) GetRepo(ctx context.Context, name string) (*repo.Config, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, url, default_branch, created_at, updated_at
		 FROM repos WHERE name = $1`, name)

	cfg, err := scanRepo(row)
	if err != nil {
		return nil, notFoundWrap(err, "get repo %s", name)
	}
	return &cfg, nil
}

func (s *Store) ListRepos(ctx context.Context) ([]repo.Config, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, url, default_branch, created_at, updated_at
		 FROM repos ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	defer rows.Close()

	var repos []repo.Config
	for rows.Next() {
		cfg, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("list repos: %w", err)
		}
		repos = append(repos, cfg)
	}
	return repos, rows.Err()
}

func (s *Store) DeleteRepo(ctx context.Context, name string) error {
	// sync_status and projects cascade on the repos(name) FK.
	tag, err := s.pool.Exec(ctx, `DELETE FROM repos WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete repo %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete repo %s: %w", name, domain.ErrNotFound)
	}
	return nil
}

func scanRepo(row scannable) (repo.Config, error) {
	var cfg repo.Config
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.DefaultBranch, &cfg.CreatedAt, &cfg.UpdatedAt)
	return cfg, err
}

// --- Sync status ---

func (s *Store) UpsertSyncStatus(ctx context.Context, status *repo.SyncStatus) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_status (repo_name, repo_id, state, last_attempt, last_success, last_error, commit_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (repo_name) DO UPDATE SET
		   state = EXCLUDED.state,
		   last_attempt = EXCLUDED.last_attempt,
		   last_success = EXCLUDED.last_success,
		   last_error = EXCLUDED.last_error,
		   commit_hash = EXCLUDED.commit_hash`,
		status.RepoName, status.RepoID, status.State,
		nullTime(status.LastAttempt), nullTime(status.LastSuccess),
		status.LastError, status.Commit)
	if err != nil {
		return fmt.Errorf("upsert sync status %s: %w", status.RepoName, err)
	}
	return nil
}

func (s *Store) GetSyncStatus(ctx context.Context, name string) (*repo.SyncStatus, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT repo_name, repo_id, state, last_attempt, last_success, last_error, commit_hash
		 FROM sync_status WHERE repo_name = $1`, name)

	st, err := scanStatus(row)
	if err != nil {
		return nil, notFoundWrap(err, "get sync status %s", name)
	}
	return &st, nil
}

func (s *Store) ListSyncStatuses(ctx context.Context) ([]repo.SyncStatus, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT repo_name, repo_id, state, last_attempt, last_success, last_error, commit_hash
		 FROM sync_status ORDER BY repo_name`)
	if err != nil {
		return nil, fmt.Errorf("list sync statuses: %w", err)
	}
	defer rows.Close()

	var statuses []repo.SyncStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("list sync statuses: %w", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

func scanStatus(row scannable) (repo.SyncStatus, error) {
	var st repo.SyncStatus
	err := row.Scan(&st.RepoName, &st.RepoID, &st.State,
		&st.LastAttempt, &st.LastSuccess, &st.LastError, &st.Commit)
	return st, err
}
