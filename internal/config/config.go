package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/glabrego/chirp-cli/internal/feed"
)

const (
	defaultAPIBaseURL = "http://localhost:8080"
	defaultAddr       = ":8080"
	defaultDBPath     = "chirp.db"
)

// Config holds runtime settings for the CLI app.
type Config struct {
	APIBaseURL string
	Token      string
	LogFile    string
	LogLevel   slog.Level
	Feed       feed.Config
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIBaseURL: os.Getenv("CHIRP_API_BASE_URL"),
		Token:      strings.TrimSpace(os.Getenv("CHIRP_TOKEN")),
		LogFile:    os.Getenv("CHIRP_LOG_FILE"),
		Feed:       feed.DefaultConfig(),
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}

	level, err := ParseLogLevel(os.Getenv("CHIRP_LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if raw := os.Getenv("CHIRP_PAGE_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("CHIRP_PAGE_SIZE must be an integer: %s", raw)
		}
		cfg.Feed.PageSize = n
	}
	if raw := os.Getenv("CHIRP_SCROLL_THRESHOLD"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("CHIRP_SCROLL_THRESHOLD must be a number: %s", raw)
		}
		cfg.Feed.ScrollThresholdPercent = f
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("APIBaseURL is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("APIBaseURL must be an http(s) URL: %s", c.APIBaseURL)
	}
	if c.APIBaseURL[len(c.APIBaseURL)-1] == '/' {
		return fmt.Errorf("APIBaseURL must not end with '/': %s", c.APIBaseURL)
	}
	if err := c.Feed.Validate(); err != nil {
		return fmt.Errorf("feed config: %w", err)
	}
	return nil
}

// SeedUser is an account the server creates on startup.
type SeedUser struct {
	Token string
	ID    string
	Name  string
	Image string
}

// ServerConfig holds runtime settings for the reference server.
type ServerConfig struct {
	Addr      string
	DBPath    string
	LogLevel  slog.Level
	SeedUsers []SeedUser
}

func LoadServerFromEnv() (ServerConfig, error) {
	cfg := ServerConfig{
		Addr:   os.Getenv("CHIRPD_ADDR"),
		DBPath: os.Getenv("CHIRPD_DB_PATH"),
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}

	level, err := ParseLogLevel(os.Getenv("CHIRP_LOG_LEVEL"))
	if err != nil {
		return ServerConfig{}, err
	}
	cfg.LogLevel = level

	users, err := ParseSeedUsers(os.Getenv("CHIRPD_SEED_USERS"))
	if err != nil {
		return ServerConfig{}, err
	}
	cfg.SeedUsers = users

	return cfg, nil
}

// ParseSeedUsers parses a comma separated list of token:id:name[:image].
// The image may itself contain colons.
func ParseSeedUsers(raw string) ([]SeedUser, error) {
	var users []SeedUser
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 4)
		if len(fields) < 3 || fields[0] == "" || fields[1] == "" || fields[2] == "" {
			return nil, fmt.Errorf("CHIRPD_SEED_USERS entry must be token:id:name[:image]: %q", part)
		}
		if _, dup := seen[fields[0]]; dup {
			return nil, fmt.Errorf("CHIRPD_SEED_USERS repeats token %q", fields[0])
		}
		seen[fields[0]] = struct{}{}
		u := SeedUser{Token: fields[0], ID: fields[1], Name: fields[2]}
		if len(fields) == 4 {
			u.Image = fields[3]
		}
		users = append(users, u)
	}
	return users, nil
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("CHIRP_LOG_LEVEL must be debug, info, warn or error: %s", s)
	}
}
