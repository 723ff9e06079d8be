package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/gagwatch/internal/gardenapi"
	"github.com/albapepper/gagwatch/internal/metrics"
	"github.com/albapepper/gagwatch/internal/notifications"
	"github.com/albapepper/gagwatch/internal/snapshot"
)

// Query answers on-demand requests. It is stateless and never touches the
// poller's detector state, so it can run alongside a poll cycle.
type Query struct {
	source   Source
	renderer notifications.Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewQuery creates a query service.
func NewQuery(source Source, renderer notifications.Renderer, logger *slog.Logger) *Query {
	if logger == nil {
		logger = slog.Default()
	}
	return &Query{source: source, renderer: renderer, logger: logger, now: time.Now}
}

// Stock renders the current stock. On error the returned message is the
// short failure reply meant for the requester.
func (q *Query) Stock(ctx context.Context) (notifications.Message, error) {
	stockRaw, err := q.source.Stock(ctx)
	if err != nil {
		return q.fail("stock", gardenapi.EndpointStock, err)
	}
	restockRaw, err := q.source.RestockTimes(ctx)
	if err != nil {
		return q.fail("stock", gardenapi.EndpointRestock, err)
	}
	stock := snapshot.NormalizeStock(stockRaw)
	countdown := snapshot.NormalizeCountdown(restockRaw)
	return q.renderer.Stock(stock, countdown, q.now()), nil
}

// Weather renders the currently active events.
func (q *Query) Weather(ctx context.Context) (notifications.Message, error) {
	raw, err := q.source.Weather(ctx)
	if err != nil {
		return q.fail("weather", gardenapi.EndpointWeather, err)
	}
	return q.renderer.Events(snapshot.NormalizeEvents(raw).Active(), q.now()), nil
}

func (q *Query) fail(what, endpoint string, err error) (notifications.Message, error) {
	err = asFetchError(endpoint, err)
	metrics.FetchFailures.WithLabelValues(gardenapi.EndpointOf(err)).Inc()
	err = fmt.Errorf("query %s: %w", what, err)
	q.logger.Error("Query failed", "query", what, "error", err)
	return q.renderer.Failure(what, q.now()), err
}
