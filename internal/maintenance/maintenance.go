// Package maintenance runs periodic background tasks as Go tickers:
// delivery history retention and query cache eviction.
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes history rows older than a given age.
// Satisfied by notifications.History.
type Purger interface {
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Evicter drops expired cache entries. Satisfied by *cache.Cache.
type Evicter interface {
	Evict() int
}

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration // History retention purge
	Retention       time.Duration // Age after which history rows are purged
	EvictInterval   time.Duration // Expired query cache entries
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 1 * time.Hour,
		Retention:       30 * 24 * time.Hour,
		EvictInterval:   5 * time.Minute,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`. history and c may be nil.
func Start(ctx context.Context, history Purger, c Evicter, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"retention", cfg.Retention,
		"evict", cfg.EvictInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if history != nil && cfg.CleanupInterval > 0 && cfg.Retention > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, history, cfg.Retention, logger) })
	}

	if c != nil && cfg.EvictInterval > 0 {
		t := time.NewTicker(cfg.EvictInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { evict(c, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// cleanup removes delivery history rows older than the retention window.
func cleanup(ctx context.Context, history Purger, retention time.Duration, logger *slog.Logger) {
	n, err := history.Purge(ctx, retention)
	if err != nil {
		logger.Warn("Cleanup: failed to purge delivery history", "error", err)
		return
	}
	if n > 0 {
		logger.Info("Cleanup: purged delivery history", "count", n)
	}
}

func evict(c Evicter, logger *slog.Logger) {
	if n := c.Evict(); n > 0 {
		logger.Debug("Evicted expired cache entries", "count", n)
	}
}
