// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quill/internal/api"
	"github.com/starford/quill/internal/directory"
	"github.com/starford/quill/internal/docservice"
	"github.com/starford/quill/internal/editor"
	"github.com/starford/quill/internal/mcpserver"
	"github.com/starford/quill/internal/sse"
	"github.com/starford/quill/internal/storage"
)

// engineOptions maps editor config tunables to engine options, leaving
// zero values to the engine defaults.
func engineOptions(cfg EditorConfig) []editor.Option {
	var opts []editor.Option
	if cfg.HistoryLimit > 0 {
		opts = append(opts, editor.WithHistoryLimit(cfg.HistoryLimit))
	}
	if cfg.HistoryDebounceMS > 0 {
		opts = append(opts, editor.WithHistoryDebounce(time.Duration(cfg.HistoryDebounceMS)*time.Millisecond))
	}
	if cfg.MentionDebounceMS > 0 {
		opts = append(opts, editor.WithMentionDebounce(time.Duration(cfg.MentionDebounceMS)*time.Millisecond))
	}
	if cfg.MentionQueryCap > 0 {
		opts = append(opts, editor.WithMentionQueryCap(cfg.MentionQueryCap))
	}
	return opts
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. MCP mode logs to stderr because
	// stdout carries the protocol.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("records_path", cfg.Records.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure workspace and records directories exist.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Records.Path, 0o755); err != nil {
		return fmt.Errorf("create records dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the SQLite record directory.
	db, err := directory.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init directory: %w", err)
	}
	defer db.Close()

	// Run initial sync of the record YAML files.
	if err := directory.Sync(db, cfg.Records.Path, logger); err != nil {
		logger.Warn("initial record sync failed", slog.String("error", err.Error()))
	}

	if app.mcpMode {
		mgr := docservice.NewManager(store, db,
			docservice.WithLogger(logger),
			docservice.WithEngineOptions(engineOptions(cfg.Editor)...),
		)
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(mgr, store, db).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Document session manager. Session events flow to SSE subscribers.
	mgr := docservice.NewManager(store, db,
		docservice.WithLogger(logger),
		docservice.WithEngineOptions(engineOptions(cfg.Editor)...),
		docservice.WithNotifier(broker.PublishDocumentEvent),
	)

	// Build API router.
	apiRouter := api.NewRouter(mgr, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Workspace.Path)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the records directory; index changes flow to SSE subscribers.
	g.Go(func() error {
		return directory.Watch(gCtx, db, cfg.Records.Path, logger, func(kind, path string) {
			broker.PublishRecordEvent(kind, path)
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
