// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/hollis/easel/internal/api"
	"github.com/hollis/easel/internal/designstore"
	"github.com/hollis/easel/internal/index"
	"github.com/hollis/easel/internal/library"
	"github.com/hollis/easel/internal/mcpserver"
	"github.com/hollis/easel/internal/preview"
	"github.com/hollis/easel/internal/sse"
	"github.com/hollis/easel/internal/storage"
)

// runtime bundles the initialized components shared by both serving modes.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	lib    *library.Library
	gen    *preview.Generator
	svc    *designstore.Service
	db     *index.DB
}

// setup performs the initialization common to HTTP and MCP modes: logger,
// directories, storage providers, design index, and the startup preview pass.
// logOut is where structured logs go; MCP mode must keep stdout free for the
// protocol stream.
func setup(logOut io.Writer, opts ...Option) (*runtime, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("designs_path", cfg.Designs.Path),
		slog.String("previews_path", cfg.Previews.Path),
		slog.String("exports_path", cfg.Exports.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the on-disk directories exist.
	for _, dir := range []string{cfg.Library.Path, cfg.Designs.Path, cfg.Previews.Path, cfg.Exports.Path} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	lib, err := library.New(cfg.Library.Path, cfg.Library.MaxTemplates, logger)
	if err != nil {
		return nil, fmt.Errorf("init library: %w", err)
	}

	designsFS, err := storage.NewFS(cfg.Designs.Path)
	if err != nil {
		return nil, fmt.Errorf("init designs storage: %w", err)
	}
	exportsFS, err := storage.NewFS(cfg.Exports.Path)
	if err != nil {
		return nil, fmt.Errorf("init exports storage: %w", err)
	}

	gen, err := preview.NewGenerator(lib, cfg.Previews.Path, cfg.Previews.Width, cfg.Previews.Quality, logger)
	if err != nil {
		return nil, fmt.Errorf("init preview generator: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Regenerate previews before serving; readiness blocks on this.
	if _, err := gen.GenerateAll(); err != nil {
		db.Close()
		return nil, fmt.Errorf("generate previews: %w", err)
	}

	// Reconcile the design index with the designs directory.
	if err := index.Sync(db, designsFS, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := designstore.NewService(designsFS, exportsFS, db)

	return &runtime{cfg: cfg, logger: logger, lib: lib, gen: gen, svc: svc, db: db}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(os.Stdout, opts...)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	pages, err := api.NewPages(rt.lib)
	if err != nil {
		return err
	}
	appRouter := api.NewRouter(api.Deps{
		Pages:       pages,
		Handler:     api.NewHandler(rt.svc, broker),
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		SSE:         broker,
		TemplateDir: cfg.Library.Path,
		PreviewsDir: cfg.Previews.Path,
		ExportsDir:  cfg.Exports.Path,
	})

	// Build chi root.
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

	r.Mount("/", appRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep previews in step with the template directory when enabled.
	if cfg.Library.Watch {
		g.Go(func() error {
			return library.Watch(gCtx, rt.lib, rt.gen, logger, func(kind, template string) {
				broker.PublishLibraryEvent(kind, template)
			})
		})
	}

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

// RunMCP starts the stdio MCP server instead of the HTTP server.
func RunMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(os.Stderr, opts...)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	rt.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(rt.lib, rt.svc).ServeStdio()
}
