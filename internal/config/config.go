// Package config provides centralized configuration loaded from environment
// variables. Shared by every gagwatch subcommand.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/gagwatch/internal/gardenapi"
)

const defaultAPIBase = "https://grow-a-garden-api-production-ec78.up.railway.app"

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Discord
	DiscordToken      string
	DiscordGuildID    string
	DiscordChannelID  string
	DiscordWebhookURL string

	// Status API
	APIBaseURL     string
	APIPaths       gardenapi.Paths
	APIRequestsPM  int
	FetchTimeout   time.Duration
	PollInterval   time.Duration
	WeatherEnabled bool

	// Notifications
	AnnounceEventsCleared bool
	Watchlist             []string
	MentionTarget         string
	UTCOffsetHours        int
	IconsFile             string
	Footer                string

	// HTTP server
	HTTPEnabled bool
	APIHost     string
	APIPort     int
	Environment string // development, staging, production

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled  bool
	QueryCacheTTL time.Duration

	// Delivery history (optional)
	DatabaseURL      string
	DBPoolMinConns   int
	DBPoolMaxConns   int
	DBPoolMaxLife    time.Duration
	HistoryRetention time.Duration
	HistoryCleanup   time.Duration

	// Logging
	LogLevel  string
	LogFormat string // text | json
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	offset := envInt("DISPLAY_UTC_OFFSET", 7)
	if offset < -12 || offset > 14 {
		return nil, fmt.Errorf("DISPLAY_UTC_OFFSET out of range: %d", offset)
	}

	cfg := &Config{
		DiscordToken:      envOr("DISCORD_TOKEN", envOr("TOKEN", "")),
		DiscordGuildID:    envOr("DISCORD_GUILD_ID", ""),
		DiscordChannelID:  envOr("DISCORD_CHANNEL_ID", ""),
		DiscordWebhookURL: envOr("DISCORD_WEBHOOK_URL", ""),

		APIBaseURL: envOr("GAG_API_BASE", defaultAPIBase),
		APIPaths: gardenapi.Paths{
			Stock:   envOr("GAG_STOCK_PATH", gardenapi.DefaultStockPath),
			Restock: envOr("GAG_RESTOCK_PATH", gardenapi.DefaultRestockPath),
			Weather: envOr("GAG_WEATHER_PATH", gardenapi.DefaultWeatherPath),
		},
		APIRequestsPM:  envInt("GAG_API_RPM", 120),
		FetchTimeout:   time.Duration(envInt("FETCH_TIMEOUT", 15)) * time.Second,
		PollInterval:   time.Duration(envInt("CHECK_EVERY", 10)) * time.Second,
		WeatherEnabled: envBool("WEATHER_ENABLED", true),

		AnnounceEventsCleared: envBool("ANNOUNCE_EVENTS_CLEARED", false),
		Watchlist:             envList("WATCHLIST", nil),
		MentionTarget:         envOr("MENTION_TARGET", "@here"),
		UTCOffsetHours:        offset,
		IconsFile:             envOr("ICONS_FILE", ""),
		Footer:                envOr("FOOTER_TEXT", ""),

		HTTPEnabled: envBool("HTTP_ENABLED", true),
		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled:  envBool("CACHE_ENABLED", true),
		QueryCacheTTL: envDuration("QUERY_CACHE_TTL", 5*time.Second),

		DatabaseURL:      envOr("DATABASE_URL", ""),
		DBPoolMinConns:   envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns:   envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:    time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		HistoryRetention: time.Duration(envInt("HISTORY_RETENTION_DAYS", 30)) * 24 * time.Hour,
		HistoryCleanup:   time.Duration(envInt("HISTORY_CLEANUP_MINUTES", 60)) * time.Minute,

		LogLevel:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("LOG_FORMAT", "text")),
	}

	// Production logs go to collectors that expect JSON.
	if os.Getenv("LOG_FORMAT") == "" && cfg.IsProduction() {
		cfg.LogFormat = "json"
	}
	return cfg, nil
}

// Validate checks the settings the long-running watcher depends on.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("CHECK_EVERY must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.DiscordToken != "" && c.DiscordChannelID == "" && c.DiscordWebhookURL == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID must be set when DISCORD_TOKEN is set")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("GAG_API_BASE must be set")
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HistoryEnabled reports whether a database is configured.
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("5s") or bare seconds ("5").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
