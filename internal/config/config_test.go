package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval != 10*time.Second || cfg.FetchTimeout != 15*time.Second {
		t.Fatalf("interval=%v timeout=%v", cfg.PollInterval, cfg.FetchTimeout)
	}
	if cfg.UTCOffsetHours != 7 || cfg.APIBaseURL != defaultAPIBase || !cfg.WeatherEnabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.APIPaths.Stock != "/api/stock/GetStock" || cfg.APIPaths.Weather != "/api/GetWeather" {
		t.Fatalf("paths=%+v", cfg.APIPaths)
	}
	if cfg.HistoryEnabled() {
		t.Fatalf("history must be off without DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TOKEN", "legacy-token")
	t.Setenv("DISCORD_CHANNEL_ID", "123")
	t.Setenv("CHECK_EVERY", "30")
	t.Setenv("WATCHLIST", " Beanstalk, ,Godly Sprinkler ")
	t.Setenv("WEATHER_ENABLED", "false")
	t.Setenv("DISPLAY_UTC_OFFSET", "-5")
	t.Setenv("DATABASE_URL", "postgres://localhost/gag")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscordToken != "legacy-token" || cfg.DiscordChannelID != "123" {
		t.Fatalf("discord=%q/%q", cfg.DiscordToken, cfg.DiscordChannelID)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("interval=%v", cfg.PollInterval)
	}
	if !reflect.DeepEqual(cfg.Watchlist, []string{"Beanstalk", "Godly Sprinkler"}) {
		t.Fatalf("watchlist=%q", cfg.Watchlist)
	}
	if cfg.WeatherEnabled || cfg.UTCOffsetHours != -5 || !cfg.HistoryEnabled() {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadRejectsBadOffset(t *testing.T) {
	t.Setenv("DISPLAY_UTC_OFFSET", "20")
	if _, err := Load(); err == nil {
		t.Fatalf("expected offset error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.DiscordToken = "x"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("token without channel must fail")
	}
	cfg.DiscordWebhookURL = "https://discord.com/api/webhooks/1/abc"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("webhook should satisfy destination: %v", err)
	}

	cfg = base()
	cfg.PollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero interval must fail")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("GAG_TEST_INT", "nope")
	t.Setenv("GAG_TEST_BOOL", "maybe")
	if envInt("GAG_TEST_INT", 4) != 4 || envBool("GAG_TEST_BOOL", true) != true {
		t.Fatalf("malformed values must fall back")
	}
	for in, want := range map[string]time.Duration{"7": 7 * time.Second, "1500ms": 1500 * time.Millisecond, "bad": time.Second} {
		t.Setenv("GAG_TEST_DUR", in)
		if got := envDuration("GAG_TEST_DUR", time.Second); got != want {
			t.Fatalf("envDuration(%q)=%v, want %v", in, got, want)
		}
	}
	if got := envList("GAG_TEST_MISSING", []string{"a"}); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("envList fallback=%v", got)
	}
}

func TestLogFormatFollowsEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsProduction() || cfg.LogFormat != "json" {
		t.Fatalf("production=%v format=%q", cfg.IsProduction(), cfg.LogFormat)
	}

	t.Setenv("LOG_FORMAT", "TEXT")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("explicit LOG_FORMAT must win, got %q", cfg.LogFormat)
	}
}
