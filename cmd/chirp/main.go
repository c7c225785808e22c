package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/glabrego/chirp-cli/internal/app"
	"github.com/glabrego/chirp-cli/internal/chirp"
	"github.com/glabrego/chirp-cli/internal/config"
	"github.com/glabrego/chirp-cli/internal/tui"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("log file error: %v", err)
	}
	defer closeLog()

	client := chirp.NewClient(cfg.APIBaseURL, cfg.Token, nil)
	service := app.NewService(client)
	if !client.HasToken() {
		fmt.Fprintln(os.Stderr, "warning: CHIRP_TOKEN is not set, starting signed out")
	}
	logger.Info("Starting chirp", "api", cfg.APIBaseURL, "page_size", cfg.Feed.PageSize, "threshold", cfg.Feed.ScrollThresholdPercent)

	model := tui.NewModel(service, cfg.Feed, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}

// newLogger writes JSON logs to the configured file. The terminal belongs to
// the TUI, so without a file logs are discarded.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.LogFile, err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return logger, func() { _ = f.Close() }, nil
}
