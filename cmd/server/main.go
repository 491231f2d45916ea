package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sunghokim-dev/presbytery-site/internal/config"
	"github.com/sunghokim-dev/presbytery-site/internal/core"
	"github.com/sunghokim-dev/presbytery-site/internal/logging"
	_ "github.com/sunghokim-dev/presbytery-site/internal/schema" // Register all targets
	"github.com/sunghokim-dev/presbytery-site/internal/store"
	"github.com/sunghokim-dev/presbytery-site/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"document_dir", cfg.Store.DocumentDir,
		"asset_dir", cfg.Store.AssetDir,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	// Wire the three persistence collaborators
	documents, err := store.NewDocumentDir(cfg.Store.DocumentDir)
	if err != nil {
		slog.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	assets, err := store.NewAssetDir(cfg.Store.AssetDir)
	if err != nil {
		slog.Error("failed to open asset store", "error", err)
		os.Exit(1)
	}
	stores := store.Stores{
		Records:   store.NewPostgres(pool),
		Documents: documents,
		Assets:    assets,
	}

	service := core.NewService(stores)
	slog.Info("targets registered", "count", len(service.Targets()))

	server := web.NewServer(cfg, service, stores)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight imports and restores drain before stopping
		for service.ActiveOperations() > 0 {
			if shutdownCtx.Err() != nil {
				slog.Warn("operations did not complete in time",
					"active", service.ActiveOperations())
				break
			}
			time.Sleep(100 * time.Millisecond)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
