package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/docservice"
	"github.com/starford/quill/internal/editor/mention"
)

// Handler holds API route handlers.
type Handler struct {
	mgr    *docservice.Manager
	lookup mention.Lookup
}

// NewHandler creates a new Handler. lookup serves the direct record search
// endpoint and may be nil.
func NewHandler(mgr *docservice.Manager, lookup mention.Lookup) *Handler {
	return &Handler{mgr: mgr, lookup: lookup}
}

// session resolves the {id} route param, writing the error response itself
// when the session does not exist.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*docservice.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := h.mgr.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return nil, false
	}
	return sess, true
}

func sessionState(sess *docservice.Session) SessionState {
	return SessionState{
		ID:            sess.ID,
		Path:          sess.Path,
		Checksum:      sess.Checksum(),
		Markup:        sess.Engine.Markup(),
		BlockType:     sess.Engine.CurrentBlockType(),
		ActiveFormats: nonNilSlice(sess.Engine.ActiveFormats()),
		Metadata:      sess.Engine.Metadata(),
		OpenedAt:      sess.OpenedAt,
	}
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open an editing session on a document
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	true	"Document to open"
//	@Success		201		{object}	SessionState
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	open := h.mgr.Open
	if req.Create {
		open = h.mgr.Create
	}
	sess, err := open(r.Context(), req.Path)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("document not found"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("document already exists"))
		default:
			slog.Error("open session failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, sessionState(sess))
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the current editor state of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionState
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionState(sess))
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Close a session without saving
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mgr.Close(id); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExecuteCommand handles POST /api/sessions/{id}/commands.
//
//	@Summary		Execute a named editing command
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		CommandRequest	true	"Command to run"
//	@Success		200		{object}	CommandResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/commands [post]
func (h *Handler) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("command name is required"))
		return
	}

	// A rejected command is a normal response, not an HTTP error: the
	// frontend disables controls off the ok flag.
	okCmd := sess.Engine.ExecuteCommand(req.Name, req.Value)
	writeJSON(w, http.StatusOK, CommandResponse{
		OK:            okCmd,
		Markup:        sess.Engine.Markup(),
		BlockType:     sess.Engine.CurrentBlockType(),
		ActiveFormats: nonNilSlice(sess.Engine.ActiveFormats()),
	})
}

// Undo handles POST /api/sessions/{id}/undo.
//
//	@Summary		Undo the last edit
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	CommandResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, func(s *docservice.Session) bool { return s.Engine.Undo() })
}

// Redo handles POST /api/sessions/{id}/redo.
//
//	@Summary		Redo the last undone edit
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	CommandResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/redo [post]
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, func(s *docservice.Session) bool { return s.Engine.Redo() })
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, step func(*docservice.Session) bool) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	okStep := step(sess)
	writeJSON(w, http.StatusOK, CommandResponse{
		OK:            okStep,
		Markup:        sess.Engine.Markup(),
		BlockType:     sess.Engine.CurrentBlockType(),
		ActiveFormats: nonNilSlice(sess.Engine.ActiveFormats()),
	})
}

// Save handles POST /api/sessions/{id}/save.
//
//	@Summary		Save the session's document with optimistic concurrency
//	@Tags			sessions
//	@Produce		json
//	@Param			id			path		string	true	"Session id"
//	@Param			If-Match	header		string	false	"SHA-256 checksum for optimistic concurrency"
//	@Success		200			{object}	SaveResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	chk, err := h.mgr.Save(r.Context(), id, ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		default:
			slog.Error("save failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Checksum: chk})
}

// Mentions handles GET /api/sessions/{id}/mentions.
//
//	@Summary		Query mention suggestions through the session's engine
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Param			q	query		string	false	"Query (empty returns recent records)"
//	@Success		200	{object}	MentionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/mentions [get]
func (h *Handler) Mentions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	recs, err := sess.Engine.SearchMentions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		// A failed lookup degrades to an empty suggestion list.
		slog.Warn("mention search failed", slog.String("error", err.Error()))
		recs = nil
	}
	writeJSON(w, http.StatusOK, MentionResponse{Records: nonNilSlice(recs)})
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List workspace documents
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.mgr.ListDocuments()
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: nonNilSlice(docs)})
}

// SearchRecords handles GET /api/records/search.
//
//	@Summary		Search the portal record directory
//	@Tags			records
//	@Produce		json
//	@Param			q	query		string	false	"Query (empty returns recent records)"
//	@Success		200	{object}	MentionResponse
//	@Security		BearerAuth
//	@Router			/records/search [get]
func (h *Handler) SearchRecords(w http.ResponseWriter, r *http.Request) {
	if h.lookup == nil {
		writeJSON(w, http.StatusOK, MentionResponse{Records: []mention.Record{}})
		return
	}
	recs, err := h.lookup.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("record search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, MentionResponse{Records: nonNilSlice(recs)})
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
