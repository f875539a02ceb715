package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultgraph/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Post("/rename", h.RenameNote)
	r.Post("/reindex", h.Reindex)
	r.Post("/reindex/*", h.Reindex)

	// Search.
	r.Get("/search", h.Search)

	// Graph.
	r.Get("/graph", h.Graph)
	r.Get("/graph/local/*", h.LocalGraph)
	r.Get("/graph/clusters", h.Clusters)
	r.Get("/graph/orphans", h.Orphans)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/names", h.NoteNames)
	r.Get("/resolve", h.Resolve)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
