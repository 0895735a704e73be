package api

import (
	"time"

	"github.com/starford/quill/internal/editor/mention"
	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/storage"
)

// OpenSessionRequest is the request body for opening a session.
// Create makes a new empty document instead of requiring one to exist.
type OpenSessionRequest struct {
	Path   string `json:"path" example:"notes/biology.html" validate:"required"`
	Create bool   `json:"create,omitempty"`
}

// CommandRequest is the request body for executing an editing command.
type CommandRequest struct {
	Name  string `json:"name" example:"bold" validate:"required"`
	Value any    `json:"value,omitempty"`
}

// SessionState is the editor state the portal frontend renders from.
type SessionState struct {
	ID            string        `json:"id"`
	Path          string        `json:"path"`
	Checksum      string        `json:"checksum"`
	Markup        string        `json:"markup"`
	BlockType     string        `json:"block_type"`
	ActiveFormats []string      `json:"active_formats"`
	Metadata      node.Metadata `json:"metadata"`
	OpenedAt      time.Time     `json:"opened_at"`
}

// CommandResponse reports a command result with the refreshed state.
type CommandResponse struct {
	OK            bool     `json:"ok"`
	Markup        string   `json:"markup"`
	BlockType     string   `json:"block_type"`
	ActiveFormats []string `json:"active_formats"`
}

// SaveResponse is returned after a successful save.
type SaveResponse struct {
	Checksum string `json:"checksum" validate:"required"`
}

// MentionResponse wraps mention suggestions.
type MentionResponse struct {
	Records []mention.Record `json:"records" validate:"required"`
}

// DocumentListResponse wraps workspace document listings.
type DocumentListResponse struct {
	Documents []storage.DocumentInfo `json:"documents" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"diagram.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/diagram.png" validate:"required"`
}
