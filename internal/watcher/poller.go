// Package watcher drives the poll cycle (fetch → normalize → detect →
// render → dispatch) and serves on-demand stock and weather queries.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/gagwatch/internal/gardenapi"
	"github.com/albapepper/gagwatch/internal/metrics"
	"github.com/albapepper/gagwatch/internal/notifications"
	"github.com/albapepper/gagwatch/internal/snapshot"
)

// Source returns the raw documents of the status API.
type Source interface {
	Stock(ctx context.Context) ([]byte, error)
	RestockTimes(ctx context.Context) ([]byte, error)
	Weather(ctx context.Context) ([]byte, error)
}

// Options controls what the poller fetches and announces.
type Options struct {
	Interval              time.Duration
	WeatherEnabled        bool
	AnnounceEventsCleared bool
	Watchlist             []string
	MentionTarget         string
}

// CycleResult summarises one poll cycle.
type CycleResult struct {
	ID            string
	Err           error // fetch failure that aborted the cycle
	Restock       notifications.RestockResult
	EventsChanged bool
	Sent          []notifications.Delivery
}

// Poller owns the detector state and runs one cycle per tick.
type Poller struct {
	source     Source
	renderer   notifications.Renderer
	dispatcher *notifications.Dispatcher
	opts       Options
	logger     *slog.Logger
	now        func() time.Time

	busy    atomic.Bool
	stateMu sync.Mutex
	state   *notifications.DetectorState
}

// NewPoller creates a poller with a fresh detector state.
func NewPoller(source Source, renderer notifications.Renderer, dispatcher *notifications.Dispatcher, opts Options, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:     source,
		renderer:   renderer,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		state:      notifications.NewDetectorState(),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
// Blocks; intended to be called with `go`. A tick that arrives while a
// cycle is still running is dropped.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Poller started", "interval", p.opts.Interval, "weather", p.opts.WeatherEnabled)

	var wg sync.WaitGroup
	tick := func() {
		if p.busy.Load() {
			metrics.PollCyclesSkipped.Inc()
			p.logger.Debug("cycle still running, tick skipped")
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ran := p.TryCycle(ctx); !ran {
				p.logger.Debug("cycle still running, tick skipped")
			}
		}()
	}

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	tick()
	for {
		select {
		case <-ticker.C:
			tick()
		case <-ctx.Done():
			wg.Wait()
			p.logger.Info("Poller stopped")
			return
		}
	}
}

// TryCycle runs a cycle unless one is already in flight.
func (p *Poller) TryCycle(ctx context.Context) (CycleResult, bool) {
	if !p.busy.CompareAndSwap(false, true) {
		metrics.PollCyclesSkipped.Inc()
		return CycleResult{}, false
	}
	defer p.busy.Store(false)
	return p.RunCycle(ctx), true
}

// RunCycle performs one fetch → detect → dispatch pass. Callers must not
// run cycles concurrently; Run and TryCycle enforce that.
func (p *Poller) RunCycle(ctx context.Context) CycleResult {
	res := CycleResult{ID: uuid.NewString()}
	start := time.Now()
	defer func() {
		metrics.PollCycleDuration.Observe(time.Since(start).Seconds())
	}()

	// All fetches complete before any state is touched, so a failure
	// leaves the detector exactly as it was.
	stockRaw, err := p.fetch(ctx, gardenapi.EndpointStock, p.source.Stock)
	if err != nil {
		return p.abort(res, err)
	}
	restockRaw, err := p.fetch(ctx, gardenapi.EndpointRestock, p.source.RestockTimes)
	if err != nil {
		return p.abort(res, err)
	}
	var weatherRaw []byte
	if p.opts.WeatherEnabled {
		weatherRaw, err = p.fetch(ctx, gardenapi.EndpointWeather, p.source.Weather)
		if err != nil {
			return p.abort(res, err)
		}
	}

	stock := snapshot.NormalizeStock(stockRaw)
	countdown := snapshot.NormalizeCountdown(restockRaw)
	var active []snapshot.Event
	if p.opts.WeatherEnabled {
		active = snapshot.NormalizeEvents(weatherRaw).Active()
	}

	p.stateMu.Lock()
	res.Restock = p.state.ClassifyRestock(stock.RestockTimers)
	if p.opts.WeatherEnabled {
		res.EventsChanged = p.state.ClassifyEventChange(active)
	}
	p.stateMu.Unlock()

	now := p.now()
	if res.Restock.Fired {
		p.logger.Info("Restock detected", "cycle_id", res.ID, "changed", res.Restock.Changed)
		msg := p.renderer.Stock(stock, countdown, now)
		msg.Mention = notifications.WatchlistMention(stock, p.opts.Watchlist, p.opts.MentionTarget)
		res.Sent = append(res.Sent, p.dispatcher.Dispatch(ctx, res.ID, msg))
	}
	if res.EventsChanged {
		if len(active) > 0 || p.opts.AnnounceEventsCleared {
			p.logger.Info("Active events changed", "cycle_id", res.ID, "active", len(active))
			res.Sent = append(res.Sent, p.dispatcher.Dispatch(ctx, res.ID, p.renderer.Events(active, now)))
		} else {
			p.logger.Info("Active events cleared", "cycle_id", res.ID)
		}
	}

	metrics.PollCycles.WithLabelValues(metrics.CycleOK).Inc()
	return res
}

func (p *Poller) fetch(ctx context.Context, endpoint string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	b, err := fn(ctx)
	if err != nil {
		return nil, asFetchError(endpoint, err)
	}
	return b, nil
}

func (p *Poller) abort(res CycleResult, err error) CycleResult {
	res.Err = err
	metrics.FetchFailures.WithLabelValues(gardenapi.EndpointOf(err)).Inc()
	metrics.PollCycles.WithLabelValues(metrics.CycleFetchFailed).Inc()
	p.logger.Error("Fetch error, cycle skipped", "cycle_id", res.ID, "error", err)
	return res
}

// State returns a copy of the detector state.
func (p *Poller) State() notifications.DetectorState {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state.Snapshot()
}

// asFetchError tags err with endpoint unless the source already did.
func asFetchError(endpoint string, err error) error {
	if gardenapi.IsFetchFailure(err) {
		return err
	}
	return &gardenapi.FetchError{Endpoint: endpoint, Err: err}
}
