package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	FinalizeBestEffort = "best_effort"
	FinalizeStrict     = "strict"
)

type Config struct {
	// Discord Bot
	DiscordToken  string
	CommandPrefix string

	// Discord OAuth2
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	// Database
	DatabaseURL string

	// Web Server
	WebBind      string
	WebUIBaseURL string

	// Session
	JWTSecret string

	// Trading
	RequestTimeout time.Duration
	AddAllTimeout  time.Duration
	FinalizeMode   string
	AuditDir       string
	CatalogPath    string

	// Logging
	LogLevel  slog.Level
	LogFormat string
}

// WebEnabled reports whether the dashboard API has OAuth credentials.
func (c *Config) WebEnabled() bool {
	return c.DiscordClientID != ""
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		CommandPrefix:       getEnvDefault("COMMAND_PREFIX", "p!"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		WebBind:             getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  getEnvDefault("DISCORD_REDIRECT_URI", "http://localhost:3000/api/auth/callback"),
		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		RequestTimeout:      getEnvDuration("TRADE_REQUEST_TIMEOUT", 60*time.Second),
		AddAllTimeout:       getEnvDuration("TRADE_ADDALL_TIMEOUT", 30*time.Second),
		FinalizeMode:        strings.ToLower(getEnvDefault("TRADE_FINALIZE_MODE", FinalizeBestEffort)),
		AuditDir:            strings.TrimSpace(os.Getenv("TRADE_AUDIT_DIR")),
		CatalogPath:         strings.TrimSpace(os.Getenv("CATALOG_PATH")),
		LogLevel:            getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		LogFormat:           strings.ToLower(getEnvDefault("LOG_FORMAT", "json")),
	}

	// Extract base URL from redirect URI
	cfg.WebUIBaseURL = extractBaseURL(cfg.DiscordRedirectURI)

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DiscordClientID != "" && cfg.DiscordClientSecret == "" {
		return nil, fmt.Errorf("DISCORD_CLIENT_SECRET is required when DISCORD_CLIENT_ID is set")
	}
	if cfg.WebEnabled() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when DISCORD_CLIENT_ID is set")
	}
	if cfg.FinalizeMode != FinalizeBestEffort && cfg.FinalizeMode != FinalizeStrict {
		return nil, fmt.Errorf("TRADE_FINALIZE_MODE must be %q or %q", FinalizeBestEffort, FinalizeStrict)
	}

	return cfg, nil
}

// LoadDatabase loads only what the admin tooling needs.
func LoadDatabase() (string, error) {
	_ = godotenv.Load()
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is required")
	}
	return databaseURL, nil
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func getEnvDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}

func extractBaseURL(redirectURI string) string {
	// e.g., "http://localhost:3000/api/auth/callback" -> "http://localhost:3000"
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "http://localhost:3000"
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}
