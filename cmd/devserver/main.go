package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/therapy-console/internal/config"
	"github.com/hongminglow/therapy-console/internal/logging"
	"github.com/hongminglow/therapy-console/internal/server"
	"github.com/hongminglow/therapy-console/internal/storage/blob"
	"github.com/hongminglow/therapy-console/internal/storage/memory"
	"github.com/hongminglow/therapy-console/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx := context.Background()
	stores, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer closeStores()

	if _, err := server.EnsureAdmin(ctx, stores.Users, cfg.AdminPassword); err != nil {
		logger.Error("seed admin user", "error", err)
		os.Exit(1)
	}
	if cfg.SeedMockData {
		if err := server.SeedMockData(ctx, stores.Records, uint64(time.Now().UnixNano())); err != nil {
			logger.Error("seed mock data", "error", err)
			os.Exit(1)
		}
	}

	srv := server.New(cfg, stores, logger)

	go func() {
		logger.Info("therapy dev server listening", "addr", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Warn("graceful shutdown error", "error", err)
	}
}

// openStores uses Postgres when DATABASE_URL is set and process memory otherwise.
func openStores(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (server.Stores, func(), error) {
	blobs, err := blob.New(cfg.FilesDir)
	if err != nil {
		return server.Stores{}, nil, err
	}
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set; using in-memory storage", "files_dir", cfg.FilesDir)
		mem := memory.New()
		return server.Stores{Users: mem, Records: mem, Blobs: blobs}, func() {}, nil
	}
	pg, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return server.Stores{}, nil, err
	}
	return server.Stores{Users: pg, Records: pg, Blobs: blobs}, pg.Close, nil
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; relying on existing environment")
	}
}
