package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dshills/lostfound/internal/config"
	"github.com/dshills/lostfound/internal/embedder"
	"github.com/dshills/lostfound/internal/imaging"
	"github.com/dshills/lostfound/internal/lifecycle"
	"github.com/dshills/lostfound/internal/location"
	"github.com/dshills/lostfound/internal/logging"
	"github.com/dshills/lostfound/internal/matcher"
	"github.com/dshills/lostfound/internal/mcp"
	"github.com/dshills/lostfound/internal/notify"
	"github.com/dshills/lostfound/internal/searcher"
	"github.com/dshills/lostfound/internal/service"
	"github.com/dshills/lostfound/internal/storage"
	"github.com/dshills/lostfound/internal/worker"
	"github.com/dshills/lostfound/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("Lost & Found MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is reserved for the MCP protocol
	logger := logging.New(cfg.Log)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("version", version).
		Str("build_mode", storage.BuildMode).
		Str("driver", storage.DriverName).
		Msg("lost & found server starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	// The model loads once at startup. Reports are refused and search falls
	// back to fuzzy matching while it is unavailable.
	model, err := embedder.New(cfg.Embeddings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	defer func() { _ = model.Close() }()
	if err := model.Load(ctx); err != nil {
		logger.Warn().Err(err).Str("backend", model.Backend()).Msg("embedding model failed to load")
	}

	images, err := imaging.NewFileStore(cfg.Uploads.Dir)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(notify.NewSender(cfg.Notify, logger), cfg.Office, logger)
	engine := matcher.New(store, location.NewTable(), dispatcher, cfg.Matching, logger)
	search := searcher.New(store, model, cfg.Search, logger)

	pool := worker.NewPool(store, engine, cfg.Matching, func([]*types.Match) {
		search.InvalidateCache()
	}, logger)
	pool.Start(ctx)
	defer func() { _ = pool.Close() }()

	svc := service.New(service.Deps{
		Store:     store,
		Embedder:  model,
		Images:    images,
		Queue:     pool,
		Searcher:  search,
		Lifecycle: lifecycle.New(store, cfg.Office, logger),
		Notifier:  dispatcher,
		Uploads:   cfg.Uploads,
	}, logger)

	server := mcp.NewServer(svc, version, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}
