package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/docservice"
	"github.com/starford/quill/internal/editor/mention"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// workspaceRoot is used to resolve the attachments directory.
func NewRouter(mgr *docservice.Manager, lookup mention.Lookup, authEnabled bool, token string, sseHandler http.Handler, workspaceRoot string) chi.Router {
	h := NewHandler(mgr, lookup)
	ah := NewAttachmentHandler(workspaceRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Editing sessions.
	r.Post("/sessions", h.OpenSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Delete("/sessions/{id}", h.CloseSession)
	r.Post("/sessions/{id}/commands", h.ExecuteCommand)
	r.Post("/sessions/{id}/undo", h.Undo)
	r.Post("/sessions/{id}/redo", h.Redo)
	r.Post("/sessions/{id}/save", h.Save)
	r.Get("/sessions/{id}/mentions", h.Mentions)

	// Workspace documents.
	r.Get("/documents", h.ListDocuments)

	// Portal record directory.
	r.Get("/records/search", h.SearchRecords)

	// Attachments (image sources for insertImage).
	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/{filename}", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
