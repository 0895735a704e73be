// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Quill editing tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quill/internal/docservice"
	"github.com/starford/quill/internal/editor/mention"
	"github.com/starford/quill/internal/storage"
)

// Server wraps the MCP server with Quill tools.
type Server struct {
	mcp    *server.MCPServer
	mgr    *docservice.Manager
	store  storage.Provider
	lookup mention.Lookup
}

// New creates a new MCP server with all Quill tools registered.
func New(mgr *docservice.Manager, store storage.Provider, lookup mention.Lookup) *Server {
	s := &Server{mgr: mgr, store: store, lookup: lookup}

	s.mcp = server.NewMCPServer(
		"Quill",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Search the portal record directory (assignments, classes, teachers, notes). "+
			"Use the returned id and kind when writing mention tokens."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query (empty returns recent records)")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw markup of a document without opening a session."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/note.html)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents or documents in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open an editing session on a document and return its id and current markup. "+
			"Documents MUST follow the Quill markup contract; read it first via the "+
			"get_markup_contract tool or the quill://markup-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (must end with .html)")),
		mcp.WithBoolean("create", mcp.Description("Create the document if it does not exist")),
	), s.openSession)

	s.mcp.AddTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Execute a named editing command in an open session "+
			"(insertText, bold, italic, setHeading, toggleBulletList, insertLink, insertMention, undo, redo, ...). "+
			"Returns ok=false when the command is rejected in the current state."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from open_session")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Command name")),
		mcp.WithString("value", mcp.Description("Optional command payload (text, heading level, href, ...)")),
	), s.executeCommand)

	s.mcp.AddTool(mcp.NewTool("save_session",
		mcp.WithDescription("Save an open session's document back to disk."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from open_session")),
	), s.saveSession)

	s.mcp.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Close an open session without saving."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from open_session")),
	), s.closeSession)

	s.mcp.AddTool(mcp.NewTool("get_markup_contract",
		mcp.WithDescription("Returns the canonical Quill markup contract. "+
			"Call this before creating or editing documents to ensure correct structure."),
	), s.getMarkupContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Upload an image or PDF into the shared attachments directory "+
			"from an http(s) URL or a base64 data URI. Returns an htmlImage field ready "+
			"for the insertImage command."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional target filename (extension decides the format)")),
	), s.uploadAsset)

	// Resource: markup contract.
	s.mcp.AddResource(
		mcp.NewResource("quill://markup-format", "Markup Format Contract",
			mcp.WithResourceDescription("Canonical HTML-subset markup that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkupResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recs, err := s.lookup.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(recs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	infos, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, info := range infos {
		paths = append(paths, info.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

type sessionResult struct {
	SessionID string `json:"sessionId"`
	Path      string `json:"path"`
	Markup    string `json:"markup"`
}

type commandResult struct {
	OK     bool   `json:"ok"`
	Markup string `json:"markup"`
}

func (s *Server) openSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	open := s.mgr.Open
	if req.GetBool("create", false) {
		open = s.mgr.Create
	}
	sess, err := open(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.Marshal(sessionResult{
		SessionID: sess.ID,
		Path:      sess.Path,
		Markup:    sess.Engine.Markup(),
	})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) executeCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.mgr.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}

	var value any
	if v, vErr := req.RequireString("value"); vErr == nil {
		value = v
	}

	var ok bool
	switch name {
	case "undo":
		ok = sess.Engine.Undo()
	case "redo":
		ok = sess.Engine.Redo()
	default:
		ok = sess.Engine.ExecuteCommand(name, value)
	}

	out, _ := json.Marshal(commandResult{OK: ok, Markup: sess.Engine.Markup()})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chk, err := s.mgr.Save(ctx, id, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved (checksum %s)", chk)), nil
}

func (s *Server) closeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.mgr.Close(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("closed: %s", id)), nil
}

func (s *Server) getMarkupContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkupContract), nil
}

func (s *Server) readMarkupResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "quill://markup-format",
			MIMEType: "text/markdown",
			Text:     MarkupContract,
		},
	}, nil
}
