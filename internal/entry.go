// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultgraph/internal/api"
	"github.com/starford/vaultgraph/internal/mcpserver"
	"github.com/starford/vaultgraph/internal/noteservice"
	"github.com/starford/vaultgraph/internal/search"
	"github.com/starford/vaultgraph/internal/sse"
	"github.com/starford/vaultgraph/internal/storage"
	"github.com/starford/vaultgraph/internal/vault"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openVault prepares storage and the search database, then runs the initial full index.
func openVault(ctx context.Context, cfg *Config, logger *slog.Logger) (*vault.Vault, vault.Stats, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, vault.Stats{}, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, vault.Stats{}, fmt.Errorf("init storage: %w", err)
	}

	searchPath := cfg.SearchPath()
	if err := os.MkdirAll(filepath.Dir(searchPath), 0o755); err != nil {
		return nil, vault.Stats{}, fmt.Errorf("create search dir: %w", err)
	}
	idx, err := search.Open(searchPath)
	if err != nil {
		return nil, vault.Stats{}, fmt.Errorf("init search: %w", err)
	}

	v, stats, err := vault.Open(ctx, store, idx,
		vault.WithLogger(logger),
		vault.WithWorkers(cfg.Vault.IndexWorkers),
		vault.WithDebounce(cfg.Vault.Debounce),
	)
	if err != nil {
		idx.Close()
		return nil, stats, fmt.Errorf("index vault: %w", err)
	}
	return v, stats, nil
}

func newService(v *vault.Vault, cfg *Config, logger *slog.Logger, opts ...noteservice.Option) *noteservice.Service {
	opts = append([]noteservice.Option{
		noteservice.WithLocalDepth(cfg.Graph.LocalDepth),
		noteservice.WithSearchLimit(cfg.Search.DefaultLimit),
		noteservice.WithLogger(logger),
	}, opts...)
	return noteservice.NewService(v, opts...)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg, os.Stdout)
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("search_path", cfg.SearchPath()),
		slog.Bool("watch", cfg.Vault.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	v, _, err := openVault(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	broker := sse.NewBroker(cfg.Events.GraphThrottle, cfg.Events.Heartbeat)
	defer broker.Close()

	// With the watcher running, every write made through the API is also
	// observed on disk, so the service only publishes when it is off.
	var svcOpts []noteservice.Option
	if !cfg.Vault.Watch {
		svcOpts = append(svcOpts, noteservice.WithNotifier(broker.PublishNoteEvent))
	}
	svc := newService(v, cfg, logger, svcOpts...)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Vault.Watch {
		g.Go(func() error {
			if err := v.Watch(gCtx, broker.PublishNoteEvent); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		logger.Info("Shutting down server...")

		// SSE streams only end when the broker closes their channels.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
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

// errShutdown cancels the errgroup context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so the
// protocol stream stays clean.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	v, stats, err := openVault(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()
	logger.Info("MCP server starting",
		slog.String("vault_path", cfg.Vault.Path),
		slog.Int("notes", stats.Indexed))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.Vault.Watch {
		g.Go(func() error {
			if err := v.Watch(gCtx, nil); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	srv := mcpserver.New(newService(v, cfg, logger), app.version)
	serveErr := srv.ServeStdio()
	cancel()
	_ = g.Wait()

	if serveErr != nil {
		return fmt.Errorf("mcp: serve: %w", serveErr)
	}
	return nil
}

// RunIndex performs one full index of the vault, prints the statistics as
// JSON and exits.
func RunIndex(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	v, stats, err := openVault(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	report := struct {
		vault.Stats
		Names   int `json:"names"`
		Orphans int `json:"orphans"`
	}{
		Stats:   stats,
		Names:   len(v.Graph().NoteNames()),
		Orphans: len(v.Graph().Orphans()),
	}
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
