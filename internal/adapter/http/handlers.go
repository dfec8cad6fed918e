package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/repolens/repolens/internal/domain"
	"github.com/repolens/repolens/internal/domain/repo"
	"github.com/repolens/repolens/internal/service"
)

// Handlers bundles the services the API exposes.
type Handlers struct {
	Registry *service.RegistryService
	Sync     *service.SyncService
	Analysis *service.AnalysisService
}

// repoView pairs a config with its current sync status for list responses.
type repoView struct {
	repo.Config
	Status *repo.SyncStatus `json:"status,omitempty"`
}

// RegisterRepo handles POST /api/repos.
func (h *Handlers) RegisterRepo(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[repo.RegisterRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.Registry.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialWrite) {
			writeError(w, http.StatusBadRequest, "invalid ssh key material")
			return
		}
		writeDomainError(w, err, "repository not found")
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// ListRepos handles GET /api/repos.
func (h *Handlers) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.Registry.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "repositories not found")
		return
	}
	statuses, err := h.Registry.Statuses(r.Context())
	if err != nil {
		writeDomainError(w, err, "statuses not found")
		return
	}

	byName := make(map[string]*repo.SyncStatus, len(statuses))
	for i := range statuses {
		byName[statuses[i].RepoName] = &statuses[i]
	}
	views := make([]repoView, len(repos))
	for i := range repos {
		views[i] = repoView{Config: repos[i], Status: byName[repos[i].Name]}
	}
	writeJSON(w, http.StatusOK, views)
}

// DeleteRepo handles DELETE /api/repos/{name}.
func (h *Handlers) DeleteRepo(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	if err := h.Registry.Remove(r.Context(), name); err != nil {
		writeDomainError(w, err, "repository not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncRepo handles POST /api/repos/{name}/sync.
func (h *Handlers) SyncRepo(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	result, err := h.Sync.SyncOne(r.Context(), name)
	if err != nil {
		writeDomainError(w, err, "repository not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncAll handles POST /api/sync.
func (h *Handlers) SyncAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.Sync.SyncAll(r.Context())
	if err != nil {
		writeDomainError(w, err, "sync pass failed")
		return
	}
	if results == nil {
		results = []repo.SyncResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// ListProjects handles GET /api/projects.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Analysis.Projects(r.Context())
	if err != nil {
		writeDomainError(w, err, "projects not found")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// ProjectByID handles GET /api/projects/{id...} and the /entrypoints
// sub-resource. Project IDs contain slashes (repo name + manifest path), so
// the route is a wildcard and the sub-resource is matched by suffix.
func (h *Handlers) ProjectByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(urlParam(r, "*"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "project id is required")
		return
	}

	if rest, ok := strings.CutSuffix(id, "/entrypoints"); ok {
		eps, err := h.Analysis.EntryPoints(r.Context(), rest)
		if err != nil {
			writeDomainError(w, err, "project not found")
			return
		}
		writeJSON(w, http.StatusOK, eps)
		return
	}

	project, err := h.Analysis.Project(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, project)
}
