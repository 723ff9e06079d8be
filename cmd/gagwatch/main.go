// Command gagwatch watches the Grow a Garden shop and posts restocks and
// weather events to Discord.
//
// Usage:
//
//	gagwatch run
//	gagwatch run --dry-run --interval 30s
//	gagwatch stock
//	gagwatch weather
//	gagwatch icons --file icons.toml

// @title gagwatch API
// @version 1.0.0
// @description On-demand Grow a Garden stock and weather queries, delivery history and health checks.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name gagwatch
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/albapepper/gagwatch/internal/config"
	"github.com/albapepper/gagwatch/internal/gardenapi"
	"github.com/albapepper/gagwatch/internal/icons"
	"github.com/albapepper/gagwatch/internal/notifications"
	"github.com/albapepper/gagwatch/internal/watcher"
)

const version = "1.0.0"

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "gagwatch",
		Short:         "Grow a Garden stock and weather watcher",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(stockCmd())
	root.AddCommand(weatherCmd())
	root.AddCommand(iconsCmd())

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setup loads configuration and replaces the package logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRenderer(cfg *config.Config) (notifications.Renderer, error) {
	table, err := icons.LoadOrDefault(cfg.IconsFile)
	if err != nil {
		return notifications.Renderer{}, fmt.Errorf("load icons: %w", err)
	}
	return notifications.NewRenderer(table, cfg.UTCOffsetHours, cfg.Footer), nil
}

func newClient(cfg *config.Config) *gardenapi.Client {
	return gardenapi.NewClient(cfg.APIBaseURL, cfg.APIPaths, cfg.FetchTimeout, cfg.APIRequestsPM, logger)
}

// --------------------------------------------------------------------------
// one-shot query commands
// --------------------------------------------------------------------------

func stockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stock",
		Short: "Print the current shop stock once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.OutOrStdout(), (*watcher.Query).Stock)
		},
	}
}

func weatherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weather",
		Short: "Print the active weather and events once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.OutOrStdout(), (*watcher.Query).Weather)
		},
	}
}

func runQuery(out io.Writer, fn func(*watcher.Query, context.Context) (notifications.Message, error)) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	q := watcher.NewQuery(newClient(cfg), renderer, logger)

	// The failure message is printed too; the error sets the exit status.
	msg, err := fn(q, ctx)
	fmt.Fprintln(out, notifications.PlainText(msg))
	return err
}

// --------------------------------------------------------------------------
// icons command
// --------------------------------------------------------------------------

func iconsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "icons",
		Short: "Print the resolved icon table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = os.Getenv("ICONS_FILE")
			}
			table, err := icons.LoadOrDefault(file)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(table); err != nil {
				return fmt.Errorf("encode icons: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Icon table file (.yaml, .json, .toml); defaults to ICONS_FILE or the embedded table")
	return cmd
}
