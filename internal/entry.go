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

	"github.com/starford/muninn/internal/api"
	"github.com/starford/muninn/internal/approval"
	"github.com/starford/muninn/internal/changes"
	"github.com/starford/muninn/internal/chat"
	"github.com/starford/muninn/internal/fulltext"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/llm"
	"github.com/starford/muninn/internal/mcpserver"
	"github.com/starford/muninn/internal/sse"
	"github.com/starford/muninn/internal/storage"
	"github.com/starford/muninn/internal/tools"
)

// vault holds the components shared by the HTTP server and the MCP server.
type vault struct {
	store    *storage.FS
	fulltext *fulltext.DB
	index    *index.VaultIndex
	memory   *tools.Memory
	registry *tools.Registry
}

func (v *vault) Close() {
	if v.fulltext != nil {
		v.fulltext.Close()
	}
}

// openVault builds storage, the fulltext mirror, the index (fully rebuilt) and
// the tool registry. opener may be nil.
func openVault(ctx context.Context, cfg *Config, logger *slog.Logger, opener tools.Opener) (*vault, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Ignore...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	v := &vault{store: store}

	idxOpts := []index.Option{
		index.WithLogger(logger),
		index.WithTextExtensions(cfg.Vault.TextExtensions...),
	}
	if cfg.Fulltext.Enabled {
		db, err := fulltext.Open(cfg.Fulltext.DSN)
		if err != nil {
			return nil, fmt.Errorf("init fulltext: %w", err)
		}
		v.fulltext = db
		idxOpts = append(idxOpts, index.WithMirror(db))
	}
	v.index = index.New(store, idxOpts...)

	start := time.Now()
	n, err := v.index.RebuildAll(ctx)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("initial index: %w", err)
	}
	logger.Info("Vault indexed",
		slog.Int("files", n),
		slog.Duration("took", time.Since(start)))

	v.memory = tools.NewMemory(store, cfg.Memory.Path)
	v.registry = tools.NewRegistry(logger)
	env := tools.Env{
		Store:  store,
		Index:  v.index,
		Memory: v.memory,
		Opener: opener,
	}
	if v.fulltext != nil {
		env.Fulltext = v.fulltext
	}
	if err := tools.RegisterBuiltins(v.registry, env); err != nil {
		v.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return v, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("model_provider", cfg.Model.Provider),
		slog.String("model_name", cfg.Model.Name),
		slog.Bool("fulltext", cfg.Fulltext.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker; also the editor opener for open_file.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	v, err := openVault(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer v.Close()

	history, err := approval.NewHistory(cfg.Approval.HistorySize)
	if err != nil {
		return fmt.Errorf("init approval history: %w", err)
	}
	gate := approval.NewGate(
		approval.WithHistory(history),
		approval.WithOnResolved(broker.PublishResolution),
	)

	model, err := llm.NewModel(ctx, cfg.Model.LLM())
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}
	runner := llm.NewRunner(model, v.registry, cfg.Model.Retry.LLM(), logger)

	contextBuilder := chat.NewContextBuilder(v.index, v.store, v.memory, logger)
	orchestrator := chat.NewOrchestrator(runner, v.registry.Declarations(), gate,
		changes.NewApplier(v.store, logger),
		chat.WithLogger(logger),
		chat.WithGeneration(cfg.Model.Temperature, cfg.Model.MaxOutputTokens),
		chat.WithMaxSteps(cfg.Model.MaxToolRounds),
		chat.WithContext(contextBuilder),
	)

	deps := api.Deps{
		Index:   v.index,
		Store:   v.store,
		Chat:    orchestrator,
		Context: contextBuilder,
		Gate:    gate,
		History: history,
		Events:  broker,
		Logger:  logger,
	}
	if v.fulltext != nil {
		deps.Fulltext = v.fulltext
	}
	apiRouter := api.NewRouter(deps, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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
		if v.index.Status().Rebuilding {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"indexing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, v.index, v.store, logger, broker.PublishFileEvent); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stop()

		// Close open event streams first; Shutdown waits for active handlers.
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

// RunMCP serves the vault's read-only tools over MCP on stdin/stdout until the
// client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	v, err := openVault(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer v.Close()

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := index.Watch(gCtx, v.index, v.store, logger, nil); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	srv := mcpserver.New(v.registry, v.index, app.version, logger)
	logger.Info("MCP server starting", slog.Int("tools", len(srv.ToolNames())))
	err = srv.ServeStdio()

	// ServeStdio returns when the client disconnects or on a signal.
	stop()
	_ = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
