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

	"github.com/glabrego/chirp-cli/internal/chirp"
	"github.com/glabrego/chirp-cli/internal/config"
	"github.com/glabrego/chirp-cli/internal/server"
	"github.com/glabrego/chirp-cli/internal/storage"
	"github.com/glabrego/chirp-cli/internal/validate"
)

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("chirpd stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerFromEnv()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := repo.Init(initCtx); err != nil {
		return err
	}
	for _, u := range cfg.SeedUsers {
		user := chirp.User{ID: u.ID, Name: u.Name, Image: u.Image}
		if err := repo.UpsertUser(initCtx, user, u.Token); err != nil {
			return err
		}
		logger.Info("Seeded user", "user_id", u.ID, "name", u.Name)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           &server.API{Logger: logger, Store: repo, Val: validate.New()},
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Addr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
