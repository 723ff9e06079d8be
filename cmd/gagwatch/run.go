package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/albapepper/gagwatch/internal/api"
	"github.com/albapepper/gagwatch/internal/api/handler"
	"github.com/albapepper/gagwatch/internal/cache"
	"github.com/albapepper/gagwatch/internal/config"
	"github.com/albapepper/gagwatch/internal/db"
	"github.com/albapepper/gagwatch/internal/discord"
	"github.com/albapepper/gagwatch/internal/maintenance"
	"github.com/albapepper/gagwatch/internal/notifications"
	"github.com/albapepper/gagwatch/internal/watcher"

	_ "github.com/albapepper/gagwatch/docs" // swagger docs
)

func runCmd() *cobra.Command {
	var (
		dryRun   bool
		noHTTP   bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the shop and post restocks and events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			if interval > 0 {
				cfg.PollInterval = interval
			}
			if noHTTP {
				cfg.HTTPEnabled = false
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return runWatcher(cfg, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log messages instead of posting them to Discord")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "Disable the HTTP server")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling period (overrides CHECK_EVERY)")
	return cmd
}

func runWatcher(cfg *config.Config, dryRun bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	client := newClient(cfg)
	query := watcher.NewQuery(client, renderer, logger)

	// Delivery history (optional)
	var (
		history notifications.History
		pinger  handler.Pinger
	)
	if cfg.HistoryEnabled() {
		logger.Info("Connecting to database...")
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		history = notifications.NewPGHistory(pool.Pool)
		pinger = pool
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
	} else {
		logger.Info("Delivery history disabled (no DATABASE_URL)")
	}

	// Discord
	sender, channel, bot, err := newSender(cfg, query, dryRun)
	if err != nil {
		return err
	}
	if bot != nil {
		if err := bot.Open(); err != nil {
			return err
		}
		defer bot.Close()
	}

	dispatcher := notifications.NewDispatcher(sender, history, channel, logger)
	poller := watcher.NewPoller(client, renderer, dispatcher, watcher.Options{
		Interval:              cfg.PollInterval,
		WeatherEnabled:        cfg.WeatherEnabled,
		AnnounceEventsCleared: cfg.AnnounceEventsCleared,
		Watchlist:             cfg.Watchlist,
		MentionTarget:         cfg.MentionTarget,
	}, logger)

	queryCache := cache.New(cfg.CacheEnabled, cfg.QueryCacheTTL)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled, "ttl", cfg.QueryCacheTTL)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		maintenance.Start(ctx, history, queryCache, maintenanceConfig(cfg), logger)
	}()

	var srv *http.Server
	serveErr := make(chan error, 1)
	if cfg.HTTPEnabled {
		h := handler.New(query, history, queryCache, pinger, version)
		addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
		srv = &http.Server{
			Addr:         addr,
			Handler:      api.NewRouter(h, cfg),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info("Starting HTTP server",
				"addr", addr,
				"environment", cfg.Environment,
				"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	// Wait for interrupt or a fatal server error
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		logger.Error("Server failed", "error", runErr)
		cancel()
	}
	logger.Info("Shutting down...")

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}
	wg.Wait()
	logger.Info("Stopped")
	return runErr
}

// maintenanceConfig applies the configured retention to the defaults.
func maintenanceConfig(cfg *config.Config) maintenance.Config {
	mc := maintenance.DefaultConfig()
	if cfg.HistoryCleanup > 0 {
		mc.CleanupInterval = cfg.HistoryCleanup
	}
	if cfg.HistoryRetention > 0 {
		mc.Retention = cfg.HistoryRetention
	}
	return mc
}

// newSender picks the delivery path: dry run, webhook, bot, or log-only
// when nothing is configured. The bot is returned whenever a token is set
// so slash commands work even when delivery goes through a webhook.
func newSender(cfg *config.Config, query *watcher.Query, dryRun bool) (notifications.Sender, string, *discord.Bot, error) {
	var bot *discord.Bot
	if cfg.DiscordToken != "" && !dryRun {
		b, err := discord.NewBot(cfg.DiscordToken, cfg.DiscordGuildID, query, logger)
		if err != nil {
			return nil, "", nil, err
		}
		bot = b
	}

	switch {
	case dryRun:
		logger.Info("Dry run: messages are logged, not posted")
		return notifications.NewLogSender(logger), "log", nil, nil
	case cfg.DiscordWebhookURL != "":
		wh, err := discord.NewWebhook(cfg.DiscordWebhookURL)
		if err != nil {
			return nil, "", nil, fmt.Errorf("discord webhook: %w", err)
		}
		return wh, wh.Channel(), bot, nil
	case bot != nil:
		return bot, cfg.DiscordChannelID, bot, nil
	default:
		logger.Warn("No Discord credentials configured; messages will only be logged")
		return notifications.NewLogSender(logger), "log", nil, nil
	}
}
