package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/albapepper/gagwatch/internal/config"
	"github.com/albapepper/gagwatch/internal/maintenance"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "info", "json")
	l.Debug("hidden")
	l.Info("Poller started", "interval", "10s")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "Poller started" || rec["interval"] != "10s" {
		t.Fatalf("record=%v", rec)
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "text").Debug("Cycle finished")
	if !strings.Contains(buf.String(), "msg=\"Cycle finished\"") {
		t.Fatalf("text output=%q", buf.String())
	}
}

func TestNewSenderSelection(t *testing.T) {
	cfg := &config.Config{DiscordWebhookURL: "https://discord.com/api/webhooks/7/tok"}
	s, channel, bot, err := newSender(cfg, nil, false)
	if err != nil || s == nil || channel != "webhook:7" || bot != nil {
		t.Fatalf("webhook: channel=%q bot=%v err=%v", channel, bot, err)
	}

	s, channel, bot, err = newSender(cfg, nil, true)
	if err != nil || s == nil || channel != "log" || bot != nil {
		t.Fatalf("dry run: channel=%q bot=%v err=%v", channel, bot, err)
	}

	_, channel, _, err = newSender(&config.Config{}, nil, false)
	if err != nil || channel != "log" {
		t.Fatalf("unconfigured: channel=%q err=%v", channel, err)
	}

	_, channel, bot, err = newSender(&config.Config{DiscordToken: "t", DiscordChannelID: "99"}, nil, false)
	if err != nil || channel != "99" || bot == nil {
		t.Fatalf("bot: channel=%q bot=%v err=%v", channel, bot, err)
	}

	if _, _, _, err := newSender(&config.Config{DiscordWebhookURL: "not a url"}, nil, false); err == nil {
		t.Fatalf("expected webhook parse error")
	}
}

func TestMaintenanceConfig(t *testing.T) {
	def := maintenance.DefaultConfig()
	if got := maintenanceConfig(&config.Config{}); got != def {
		t.Fatalf("unset config should keep defaults, got %+v", got)
	}

	got := maintenanceConfig(&config.Config{HistoryCleanup: 10 * time.Minute, HistoryRetention: 48 * time.Hour})
	if got.CleanupInterval != 10*time.Minute || got.Retention != 48*time.Hour || got.EvictInterval != def.EvictInterval {
		t.Fatalf("config=%+v", got)
	}
}
