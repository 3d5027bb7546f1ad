package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/config"
	"github.com/kjarir/swordrobe-edge-shop/internal/database"
	"github.com/kjarir/swordrobe-edge-shop/internal/logger"
	"github.com/kjarir/swordrobe-edge-shop/internal/server"
)

const (
	// databaseStartupWait bounds how long startup retries the first connection.
	databaseStartupWait = 30 * time.Second
	shutdownGrace       = 30 * time.Second
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("Graceful shutdown complete")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting shop API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	dbService, err := database.New(ctx, cfg.Database, log, databaseStartupWait)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

	if err := database.RunMigrations(ctx, dbService.DB(), "migrations", log); err != nil {
		dbService.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	srv, err := server.NewServer(ctx, cfg, log, dbService)
	if err != nil {
		dbService.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}
	// Drains analytics and image cleanup before closing the pool.
	defer srv.Close()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	return nil
}
