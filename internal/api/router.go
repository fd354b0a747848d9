package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// Chat routes are mounted only when d.Chat is set, mention routes only when
// d.Context is set, and GET /events only when d.Events is set.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Index queries.
	r.Get("/files", h.ListFiles)
	r.Get("/files/search", h.SearchFiles)
	r.Get("/files/structure", h.Structure)
	r.Get("/files/*", h.GetFile)
	r.Get("/folders", h.Folders)
	r.Get("/tags", h.Tags)
	r.Get("/tags/{tag}", h.FilesByTag)
	r.Get("/index/status", h.IndexStatus)
	r.Post("/index/rebuild", h.Rebuild)

	// Raw vault files and uploads.
	r.Get("/raw/*", h.Raw)
	r.Post("/attachments", h.Upload)

	// Chat.
	if d.Chat != nil {
		r.Post("/chat", h.Chat)
	}
	if d.Context != nil {
		r.Get("/mentions", h.Mentions)
	}

	// Approvals.
	r.Get("/approvals", h.ListApprovals)
	r.Get("/approvals/{id}", h.GetApproval)
	r.Post("/approvals/{id}/approve", h.Approve)
	r.Post("/approvals/{id}/reject", h.Reject)
	r.Get("/changes", h.Changes)

	// SSE endpoint (protected by same auth middleware).
	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}
