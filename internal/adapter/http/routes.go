package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/repolens/repolens/internal/adapter/ws"
)

// MountRoutes registers the API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/ws", hub.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/repos", h.RegisterRepo)
		r.Get("/repos", h.ListRepos)
		r.Delete("/repos/{name}", h.DeleteRepo)
		r.Post("/repos/{name}/sync", h.SyncRepo)

		r.Post("/sync", h.SyncAll)

		r.Get("/projects", h.ListProjects)
		r.Get("/projects/*", h.ProjectByID)
	})
}
