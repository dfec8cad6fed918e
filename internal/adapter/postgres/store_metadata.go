package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/repolens/repolens/internal/domain/analysis"
)

// --- Project metadata ---

// ReplaceRepoProjects atomically replaces the repository's full project set.
func (s *Store) ReplaceRepoProjects(ctx context.Context, repoName string, projects []analysis.ProjectMetadata) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace projects %s: begin: %w", repoName, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM projects WHERE repo_name = $1`, repoName); err != nil {
		return fmt.Errorf("replace projects %s: clear: %w", repoName, err)
	}

	for i := range projects {
		p := &projects[i]
		depsJSON, err := json.Marshal(orEmpty(p.Dependencies))
		if err != nil {
			return fmt.Errorf("replace projects %s: marshal deps: %w", repoName, err)
		}
		epJSON, err := json.Marshal(orEmpty(p.EntryPoints))
		if err != nil {
			return fmt.Errorf("replace projects %s: marshal entry points: %w", repoName, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO projects (id, repo_name, path, manifest, type, language, dependencies, entry_points, file_count, freshness)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			p.ID, p.Repo, p.Path, p.Manifest, p.Type, p.Language,
			depsJSON, epJSON, p.FileCount, p.Freshness)
		if err != nil {
			return fmt.Errorf("replace projects %s: insert %s: %w", repoName, p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("replace projects %s: commit: %w", repoName, err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*analysis.ProjectMetadata, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, repo_name, path, manifest, type, language, dependencies, entry_points, file_count, freshness
		 FROM projects WHERE id = $1`, id)

	p, err := scanProject(row)
	if err != nil {
		return nil, notFoundWrap(err, "get project %s", id)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]analysis.ProjectMetadata, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, repo_name, path, manifest, type, language, dependencies, entry_points, file_count, freshness
		 FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []analysis.ProjectMetadata
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) ListEntryPoints(ctx context.Context, projectID string) ([]analysis.EntryPoint, error) {
	row := s.pool.QueryRow(ctx, `SELECT entry_points FROM projects WHERE id = $1`, projectID)

	var epJSON []byte
	if err := row.Scan(&epJSON); err != nil {
		return nil, notFoundWrap(err, "list entry points %s", projectID)
	}

	var eps []analysis.EntryPoint
	if err := json.Unmarshal(epJSON, &eps); err != nil {
		return nil, fmt.Errorf("list entry points %s: decode: %w", projectID, err)
	}
	return eps, nil
}

func scanProject(row scannable) (analysis.ProjectMetadata, error) {
	var (
		p                analysis.ProjectMetadata
		depsJSON, epJSON []byte
	)
	err := row.Scan(&p.ID, &p.Repo, &p.Path, &p.Manifest, &p.Type, &p.Language,
		&depsJSON, &epJSON, &p.FileCount, &p.Freshness)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(depsJSON, &p.Dependencies); err != nil {
		return p, fmt.Errorf("decode dependencies: %w", err)
	}
	if err := json.Unmarshal(epJSON, &p.EntryPoints); err != nil {
		return p, fmt.Errorf("decode entry points: %w", err)
	}
	return p, nil
}
