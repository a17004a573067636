// Package internal provides the application initialization and runtime logic.
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

	"github.com/starford/shelf/internal/api"
	"github.com/starford/shelf/internal/bookservice"
	"github.com/starford/shelf/internal/datafile"
	"github.com/starford/shelf/internal/mcpserver"
	"github.com/starford/shelf/internal/sse"
)

func (app *application) setup() (*Config, *slog.Logger, error) {
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app.config, logger, nil
}

// Run starts the HTTP server, the library file watcher and the signal
// handler, and blocks until one of them stops.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := newApplication(opts).setup()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("autosave", cfg.Library.Autosave),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	lib, err := OpenLibrary(cfg, logger, false,
		bookservice.WithAutosave(cfg.Library.Autosave),
		bookservice.WithChangeFunc(func(c bookservice.Change) {
			broker.PublishChange(sse.BookChange{
				Type:  "book." + c.Kind,
				ISBN:  c.ISBN,
				Title: c.Title,
				Books: c.Books,
			})
		}),
	)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()
	svc := lib.Service

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, cfg.Search.Mode(), broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.Verify(r.Context()); err != nil {
			logger.Error("library index check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"corrupt"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Reload when another process rewrites the library file.
	g.Go(func() error {
		return datafile.Watch(gCtx, lib.Path, logger, func() {
			changed, err := svc.Reload(gCtx)
			if err != nil {
				logger.Warn("reload failed", slog.String("error", err.Error()))
				return
			}
			if changed {
				logger.Info("library reloaded", slog.Int("books", svc.Len()))
				broker.PublishReload(svc.Len())
			}
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		if svc.Dirty() {
			res, err := svc.Save(shutdownCtx)
			if err != nil {
				return fmt.Errorf("save on shutdown: %w", err)
			}
			logger.Info("library saved", slog.String("result", res.String()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown stops the group once the signal handler has drained the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the library over MCP on stdin/stdout until the client
// disconnects. Logs go to stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.logger == nil && app.config != nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	lib, err := OpenLibrary(cfg, logger, false, bookservice.WithAutosave(cfg.Library.Autosave))
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()

	logger.Info("MCP server starting", slog.String("library_path", lib.Path))
	srv := mcpserver.New(lib.Service, cfg.Search.Mode(), app.version)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	if lib.Service.Dirty() {
		if _, err := lib.Service.Save(ctx); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}
