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

	"github.com/parklistmc/parklist/config"
	deps "github.com/parklistmc/parklist/internal/debs"
	api "github.com/parklistmc/parklist/internal/http/rest"
	"golang.org/x/sync/errgroup"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
)

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dependencies, err := deps.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	a := &api.API{
		Config: cfg,
		Deps:   dependencies,
		Logger: logger,
	}
	a.Init()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dependencies.WebSocket.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server running", "port", cfg.Port, "env", cfg.AppEnv)
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("request to shutdown server", "grace", allowConnectionsAfterShutdown)
		time.Sleep(allowConnectionsAfterShutdown)

		logger.Info("shutting down server")
		return a.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
	}

	if err := dependencies.Close(); err != nil {
		logger.Error("failed to close dependencies", "error", err)
		os.Exit(1)
	}
	logger.Info("database connections closed")
}
